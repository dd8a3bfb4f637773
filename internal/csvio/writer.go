package csvio

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/bankquality/internal/core"
)

// ReportFile is the name of the JSON quality report inside an output directory.
const ReportFile = "quality_report.json"

// WriteTable writes def's header followed by one encoded row per record.
func WriteTable[T any](w io.Writer, def core.TableDefinition, rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(def.Info.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(def.Encode(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport writes summary as indented JSON.
func WriteReport(w io.Writer, summary core.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// DirSink writes the cleaned tables as <table>_clean.csv and the quality
// report as quality_report.json into Dir, replacing earlier outputs.
type DirSink struct {
	Dir string
}

// Name identifies the sink in logs.
func (s DirSink) Name() string { return "csv" }

// Write persists one run. Each file is written to a temporary name and
// renamed into place, so readers never observe a partial file.
func (s DirSink) Write(ctx context.Context, runID string, res core.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ds := res.Dataset
	files := []struct {
		key   string
		write func(io.Writer, core.TableDefinition) error
	}{
		{core.TableCustomers, func(w io.Writer, def core.TableDefinition) error {
			return WriteTable(w, def, ds.Customers)
		}},
		{core.TableAccounts, func(w io.Writer, def core.TableDefinition) error {
			return WriteTable(w, def, ds.Accounts)
		}},
		{core.TableTransactions, func(w io.Writer, def core.TableDefinition) error {
			return WriteTable(w, def, ds.Transactions)
		}},
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		def := core.MustGet(f.key)
		path := filepath.Join(s.Dir, def.Info.OutputName+".csv")
		if err := WriteFileAtomic(path, func(w io.Writer) error { return f.write(w, def) }); err != nil {
			return fmt.Errorf("write %s: %w", def.Info.OutputName, err)
		}
	}

	summary := res.Summary(runID)
	path := filepath.Join(s.Dir, ReportFile)
	if err := WriteFileAtomic(path, func(w io.Writer) error { return WriteReport(w, summary) }); err != nil {
		return fmt.Errorf("write %s: %w", ReportFile, err)
	}
	return nil
}

// WriteFileAtomic writes path through a temporary file in the same directory
// so readers never see a partial file.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
