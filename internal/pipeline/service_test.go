package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/bankquality/internal/config"
	"github.com/JonMunkholm/bankquality/internal/core"
	_ "github.com/JonMunkholm/bankquality/internal/core/tables"
	"github.com/JonMunkholm/bankquality/internal/csvio"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func sampleRaw() core.RawDataset {
	return core.RawDataset{
		Customers: []core.RawCustomer{
			{CustomerID: "CUST_00001", Email: "a@example.com", RiskSegment: "high"},
		},
		Accounts: []core.RawAccount{
			{AccountID: "ACC_1", CustomerID: "CUST_00001", Balance: "100", Status: "active", OpenedDate: "2024-01-01"},
		},
		Transactions: []core.RawTransaction{
			{TransactionID: "T1", AccountID: "ACC_1", Amount: "-60000", TransactionType: "debit", TransactionDate: "2024-02-01", IsFraudFlag: "0"},
			{TransactionID: "T2", AccountID: "ACC_9", Amount: "10", TransactionType: "credit", TransactionDate: "2030-01-01", IsFraudFlag: "0"},
		},
	}
}

type fakeSource struct {
	raw   core.RawDataset
	err   error
	block chan struct{} // when set, Load waits for it to close
	ready chan struct{} // closed once Load is entered
	runID string
}

func (f *fakeSource) Load(ctx context.Context) (core.RawDataset, error) {
	f.runID = core.RunIDFromContext(ctx)
	if f.ready != nil {
		close(f.ready)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return core.RawDataset{}, ctx.Err()
		}
	}
	return f.raw, f.err
}

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	runIDs []string
	last   core.Result
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Write(_ context.Context, runID string, res core.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runIDs = append(r.runIDs, runID)
	r.last = res
	return r.err
}

func newTestService(src Source, sinks ...Sink) *Service {
	return NewService(src, sinks, Options{Now: func() time.Time { return fixedNow }})
}

func TestService_Run(t *testing.T) {
	src := &fakeSource{raw: sampleRaw()}
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}
	svc := newTestService(src, first, second)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := uuid.Parse(run.ID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", run.ID, err)
	}
	if src.runID != run.ID {
		t.Errorf("source saw run id %q, want %q", src.runID, run.ID)
	}
	for _, s := range []*recordingSink{first, second} {
		if len(s.runIDs) != 1 || s.runIDs[0] != run.ID {
			t.Errorf("sink %s got run ids %v", s.name, s.runIDs)
		}
	}

	res := run.Result
	if !res.ProcessedAt.Equal(fixedNow) {
		t.Errorf("ProcessedAt = %v, want %v", res.ProcessedAt, fixedNow)
	}
	if res.Report.InvalidTransactionLinks != 1 {
		t.Errorf("InvalidTransactionLinks = %d, want 1", res.Report.InvalidTransactionLinks)
	}
	if res.Report.FutureTransactions != 1 {
		t.Errorf("FutureTransactions = %d, want 1", res.Report.FutureTransactions)
	}
	if !res.Dataset.Transactions[0].HighRiskAlert {
		t.Error("T1 should raise a high-risk alert")
	}

	latest, err := svc.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != run.ID {
		t.Errorf("Latest().ID = %q, want %q", latest.ID, run.ID)
	}
	if latest.Summary().RunID != run.ID {
		t.Errorf("Summary().RunID = %q", latest.Summary().RunID)
	}
}

func TestService_Thresholds(t *testing.T) {
	src := &fakeSource{raw: sampleRaw()}
	svc := NewService(src, nil, Options{
		HighRiskThreshold: decimal.NewFromInt(70000),
		Now:               func() time.Time { return fixedNow },
	})

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Result.Dataset.Transactions[0].HighRiskAlert {
		t.Error("60000 is below a 70000 threshold and should not alert")
	}
}

func TestService_LatestBeforeRun(t *testing.T) {
	svc := newTestService(&fakeSource{})

	_, err := svc.Latest()
	if !errors.Is(err, ErrNoRun) {
		t.Fatalf("Latest() error = %v, want ErrNoRun", err)
	}
	if core.MapError(err).Code != "RUN004" {
		t.Errorf("code = %s, want RUN004", core.MapError(err).Code)
	}
}

func TestService_LoadError(t *testing.T) {
	loadErr := errors.New("load customers: open customers.csv: no such file or directory")
	sink := &recordingSink{name: "sink"}
	svc := newTestService(&fakeSource{err: loadErr}, sink)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, loadErr) {
		t.Fatalf("Run() error = %v, want wrapped load error", err)
	}
	if len(sink.runIDs) != 0 {
		t.Error("sinks must not be called when loading fails")
	}
	if _, err := svc.Latest(); !errors.Is(err, ErrNoRun) {
		t.Error("a failed run must not become the latest")
	}
}

func TestService_SinkErrorStopsRun(t *testing.T) {
	sinkErr := errors.New("disk full")
	failing := &recordingSink{name: "failing", err: sinkErr}
	after := &recordingSink{name: "after"}
	svc := newTestService(&fakeSource{raw: sampleRaw()}, failing, after)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Run() error = %v, want sink error", err)
	}
	if !strings.Contains(err.Error(), "write failing") {
		t.Errorf("error should name the sink: %v", err)
	}
	if len(after.runIDs) != 0 {
		t.Error("sinks after a failure must not run")
	}
	if _, err := svc.Latest(); !errors.Is(err, ErrNoRun) {
		t.Error("a failed run must not become the latest")
	}
}

func TestService_RunInProgress(t *testing.T) {
	src := &fakeSource{raw: sampleRaw(), block: make(chan struct{}), ready: make(chan struct{})}
	svc := newTestService(src)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()
	<-src.ready

	if got := svc.Status().Active; got != 1 {
		t.Errorf("Status().Active = %d, want 1", got)
	}

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second Run() error = %v, want ErrRunInProgress", err)
	}
	if core.MapError(err).Code != "RUN001" {
		t.Errorf("code = %s, want RUN001", core.MapError(err).Code)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}

func TestService_RunTimeout(t *testing.T) {
	src := &fakeSource{raw: sampleRaw(), block: make(chan struct{})}
	svc := NewService(src, nil, Options{RunTimeout: 20 * time.Millisecond})

	_, err := svc.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if core.MapError(err).Code != "RUN003" {
		t.Errorf("code = %s, want RUN003", core.MapError(err).Code)
	}
}

func TestService_FileSinks(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "clean")

	files := map[string]string{
		"customers.csv": "customer_id,full_name,email,country,signup_date,risk_segment\n" +
			"CUST_00001,Ada,ada@example.com,UK,2021-03-04,high\n",
		"accounts.csv": "account_id,customer_id,account_type,currency,balance,opened_date,status\n" +
			"ACC_1,CUST_00001,savings,GBP,100,2021-03-05,active\n",
		"transactions.csv": "transaction_id,account_id,transaction_date,amount,transaction_type,merchant_name,category,is_fraud_flag\n" +
			"T1,ACC_1,2024-01-15,-50,debit,Tesco,groceries,0\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(in, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	svc := newTestService(csvio.DirSource{Dir: in}, csvio.DirSink{Dir: out}, HTMLSink{Dir: out})
	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"customers_clean.csv", "accounts_clean.csv", "transactions_clean.csv",
		csvio.ReportFile, HTMLReportFile,
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	page, err := os.ReadFile(filepath.Join(out, HTMLReportFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), run.ID) {
		t.Error("HTML report should show the run id")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.PipelineConfig{InputDir: "in", OutputDir: "out", WriteHTML: true}
	extra := &recordingSink{name: "postgres"}

	svc := NewFromConfig(cfg, extra)
	if got, want := strings.Join(svc.SinkNames(), ","), "csv,html,postgres"; got != want {
		t.Errorf("sinks = %s, want %s", got, want)
	}

	cfg.WriteHTML = false
	if got := strings.Join(NewFromConfig(cfg).SinkNames(), ","); got != "csv" {
		t.Errorf("sinks without HTML = %s, want csv", got)
	}
}
