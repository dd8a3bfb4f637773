package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/bankquality/internal/config"
	"github.com/JonMunkholm/bankquality/internal/core"
	"github.com/JonMunkholm/bankquality/internal/logging"
	"github.com/JonMunkholm/bankquality/internal/pipeline"
	"github.com/JonMunkholm/bankquality/internal/store"
)

// runFlags override the environment configuration for one invocation.
type runFlags struct {
	input   string
	output  string
	noHTML  bool
	noDB    bool
	summary bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.input, "input", "", "directory holding customers.csv, accounts.csv and transactions.csv (overrides PIPELINE_INPUT_DIR)")
	fs.StringVar(&f.output, "output", "", "directory receiving the cleaned tables and reports (overrides PIPELINE_OUTPUT_DIR)")
	fs.BoolVar(&f.noHTML, "no-html", false, "skip the HTML report")
	fs.BoolVar(&f.noDB, "no-db", false, "skip the database sink even when DATABASE_URL is set")
	fs.BoolVar(&f.summary, "json", false, "print the run summary as JSON instead of a table")
}

func (f *runFlags) apply(cfg *config.Config) {
	if f.input != "" {
		cfg.Pipeline.InputDir = f.input
	}
	if f.output != "" {
		cfg.Pipeline.OutputDir = f.output
	}
	if f.noHTML {
		cfg.Pipeline.WriteHTML = false
	}
	if f.noDB {
		cfg.Database.URL = ""
	}
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	root := &cobra.Command{
		Use:   "pipeline",
		Short: "clean and validate customers, accounts and transactions",
		Long: `
Reads customers.csv, accounts.csv and transactions.csv from the input
directory, cleans them, applies the business rules and writes the cleaned
tables with a quality report to the output directory. When DATABASE_URL is
set the cleaned tables also replace the contents of the database tables.
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, &flags)
		},
	}
	flags.register(root.Flags())

	root.AddCommand(newResetCmd(), newChecksCmd())
	return root
}

// loadConfig reads and validates the environment, then sets up logging.
func loadConfig(mutate func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func runOnce(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadConfig(flags.apply)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var extra []pipeline.Sink
	if cfg.Database.Enabled() {
		pool, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		extra = append(extra, store.NewSink(pool))
	}

	run, err := pipeline.NewFromConfig(cfg.Pipeline, extra...).Run(ctx)
	if err != nil {
		return err
	}

	if flags.summary {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run.Summary())
	}
	return printSummary(cmd.OutOrStdout(), run, cfg.Pipeline.OutputDir)
}

func printSummary(w io.Writer, run pipeline.Run, outputDir string) error {
	r, d := run.Result.Report, run.Result.Diagnostics

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", run.ID)
	fmt.Fprintf(tw, "output\t%s\n", outputDir)
	fmt.Fprintln(tw)
	for _, row := range []struct {
		label string
		n     int
	}{
		{"duplicate customers", r.DuplicateCustomers},
		{"duplicate accounts", r.DuplicateAccounts},
		{"duplicate transactions", r.DuplicateTransactions},
		{"invalid account links", r.InvalidAccountLinks},
		{"invalid transaction links", r.InvalidTransactionLinks},
		{"future transactions", r.FutureTransactions},
		{"sign inconsistencies", r.SignInconsistencies},
		{"high risk alerts", d.HighRiskAlerts},
		{"extreme outliers", d.ExtremeOutliers},
		{"balance mismatches", d.BalanceMismatches},
	} {
		fmt.Fprintf(tw, "%s\t%d\n", row.label, row.n)
	}
	return tw.Flush()
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "empty the database output tables",
		Long: `
Truncates customers_clean, accounts_clean, transactions_clean and
quality_report, creating them first when missing. Requires DATABASE_URL.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("reset needs DATABASE_URL")
			}

			ctx := cmd.Context()
			pool, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.NewSink(pool).Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "output tables reset")
			return nil
		},
	}
}

func newChecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "list the validators reported per run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var empty core.Issues
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range core.Checks() {
				set, err := empty.Lookup(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", c, set.Table)
			}
			return tw.Flush()
		},
	}
}
