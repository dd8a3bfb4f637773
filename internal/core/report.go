package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QualityReport is the aggregate summary of one run.
type QualityReport struct {
	DuplicateCustomers      int `json:"duplicate_customers"`
	DuplicateAccounts       int `json:"duplicate_accounts"`
	DuplicateTransactions   int `json:"duplicate_transactions"`
	InvalidAccountLinks     int `json:"invalid_account_links"`
	InvalidTransactionLinks int `json:"invalid_transaction_links"`
	FutureTransactions      int `json:"future_transactions"`
	SignInconsistencies     int `json:"sign_inconsistencies"`
}

// BuildQualityReport aggregates duplicate counts and validator results over
// the given tables. Duplicates are recomputed here rather than trusted from
// the cleaners. Empty tables yield zero counts.
func BuildQualityReport(customers []Customer, accounts []Account, txns []Transaction, now time.Time) QualityReport {
	return QualityReport{
		DuplicateCustomers:      DuplicateKeys(customers, func(c Customer) string { return c.CustomerID }),
		DuplicateAccounts:       DuplicateKeys(accounts, func(a Account) string { return a.AccountID }),
		DuplicateTransactions:   DuplicateKeys(txns, func(t Transaction) string { return t.TransactionID }),
		InvalidAccountLinks:     len(AccountCustomerOrphans(accounts, customers)),
		InvalidTransactionLinks: len(TransactionAccountOrphans(txns, accounts)),
		FutureTransactions:      len(FutureTransactions(txns, now)),
		SignInconsistencies:     len(SignTypeViolations(txns)),
	}
}

// Diagnostics holds the counts of every validator, beyond the quality report.
type Diagnostics struct {
	ExtremeOutliers         int `json:"extreme_outliers"`
	HighRiskAlerts          int `json:"high_risk_alerts"`
	InvalidSignupDates      int `json:"invalid_signup_dates"`
	InvalidOpenedDates      int `json:"invalid_opened_dates"`
	InvalidTransactionDates int `json:"invalid_transaction_dates"`
	InvalidAccountStatus    int `json:"invalid_account_status"`
	InvalidRiskSegment      int `json:"invalid_risk_segment"`
	InvalidAccountType      int `json:"invalid_account_type"`
	InvalidTransactionType  int `json:"invalid_transaction_type"`
	BalanceMismatches       int `json:"balance_mismatches"`
	SmallTransactions       int `json:"small_transactions"`
	MediumTransactions      int `json:"medium_transactions"`
	LargeTransactions       int `json:"large_transactions"`
	UnknownTransactions     int `json:"unknown_transactions"`
}

// Issues holds the offending subsets found by the validators.
type Issues struct {
	OrphanAccounts          []Account
	OrphanTransactions      []Transaction
	SignTypeViolations      []Transaction
	ExtremeOutliers         []Transaction
	FutureTransactions      []Transaction
	InvalidSignupDates      []Customer
	InvalidOpenedDates      []Account
	InvalidTransactionDates []Transaction
	InvalidAccountStatus    []Account
	InvalidRiskSegment      []Customer
	InvalidAccountType      []Account
	InvalidTransactionType  []Transaction
	BalanceMismatches       []Account
}

// Validate runs every validator over a rule-enforced dataset.
func Validate(ds Dataset, outlierThreshold decimal.Decimal, now time.Time) Issues {
	return Issues{
		OrphanAccounts:          AccountCustomerOrphans(ds.Accounts, ds.Customers),
		OrphanTransactions:      TransactionAccountOrphans(ds.Transactions, ds.Accounts),
		SignTypeViolations:      SignTypeViolations(ds.Transactions),
		ExtremeOutliers:         ExtremeOutliers(ds.Transactions, outlierThreshold),
		FutureTransactions:      FutureTransactions(ds.Transactions, now),
		InvalidSignupDates:      InvalidDates(ds.Customers, CustomerSignupDate),
		InvalidOpenedDates:      InvalidDates(ds.Accounts, AccountOpenedDate),
		InvalidTransactionDates: InvalidDates(ds.Transactions, TransactionDateColumn),
		InvalidAccountStatus:    InvalidAccountStatus(ds.Accounts),
		InvalidRiskSegment:      InvalidRiskSegment(ds.Customers),
		InvalidAccountType:      InvalidAccountType(ds.Accounts),
		InvalidTransactionType:  InvalidTransactionType(ds.Transactions),
		BalanceMismatches:       BalanceMismatches(ds.Accounts),
	}
}

// BuildDiagnostics summarizes a dataset and its validator results.
func BuildDiagnostics(ds Dataset, issues Issues) Diagnostics {
	d := Diagnostics{
		ExtremeOutliers:         len(issues.ExtremeOutliers),
		InvalidSignupDates:      len(issues.InvalidSignupDates),
		InvalidOpenedDates:      len(issues.InvalidOpenedDates),
		InvalidTransactionDates: len(issues.InvalidTransactionDates),
		InvalidAccountStatus:    len(issues.InvalidAccountStatus),
		InvalidRiskSegment:      len(issues.InvalidRiskSegment),
		InvalidAccountType:      len(issues.InvalidAccountType),
		InvalidTransactionType:  len(issues.InvalidTransactionType),
		BalanceMismatches:       len(issues.BalanceMismatches),
	}
	for _, t := range ds.Transactions {
		if t.HighRiskAlert {
			d.HighRiskAlerts++
		}
		switch t.TransactionSize {
		case SizeSmall:
			d.SmallTransactions++
		case SizeMedium:
			d.MediumTransactions++
		case SizeLarge:
			d.LargeTransactions++
		default:
			d.UnknownTransactions++
		}
	}
	return d
}

// Check names accepted by Issues.Lookup.
const (
	CheckOrphanAccounts          = "orphan_accounts"
	CheckOrphanTransactions      = "orphan_transactions"
	CheckSignTypeViolations      = "sign_type_violations"
	CheckExtremeOutliers         = "extreme_outliers"
	CheckFutureTransactions      = "future_transactions"
	CheckInvalidSignupDates      = "invalid_signup_dates"
	CheckInvalidOpenedDates      = "invalid_opened_dates"
	CheckInvalidTransactionDates = "invalid_transaction_dates"
	CheckInvalidAccountStatus    = "invalid_account_status"
	CheckInvalidRiskSegment      = "invalid_risk_segment"
	CheckInvalidAccountType      = "invalid_account_type"
	CheckInvalidTransactionType  = "invalid_transaction_type"
	CheckBalanceMismatches       = "balance_mismatches"
)

// IssueSet is one validator's offending subset. Rows hold records of the
// table named by Table.
type IssueSet struct {
	Check string
	Table string
	Rows  []any
}

// Checks returns every check name, sorted.
func Checks() []string {
	return []string{
		CheckBalanceMismatches,
		CheckExtremeOutliers,
		CheckFutureTransactions,
		CheckInvalidAccountStatus,
		CheckInvalidAccountType,
		CheckInvalidOpenedDates,
		CheckInvalidRiskSegment,
		CheckInvalidSignupDates,
		CheckInvalidTransactionDates,
		CheckInvalidTransactionType,
		CheckOrphanAccounts,
		CheckOrphanTransactions,
		CheckSignTypeViolations,
	}
}

// Lookup returns the subset found by the named check.
func (i Issues) Lookup(check string) (IssueSet, error) {
	var (
		table string
		rows  []any
	)
	switch check {
	case CheckOrphanAccounts:
		table, rows = TableAccounts, toAny(i.OrphanAccounts)
	case CheckOrphanTransactions:
		table, rows = TableTransactions, toAny(i.OrphanTransactions)
	case CheckSignTypeViolations:
		table, rows = TableTransactions, toAny(i.SignTypeViolations)
	case CheckExtremeOutliers:
		table, rows = TableTransactions, toAny(i.ExtremeOutliers)
	case CheckFutureTransactions:
		table, rows = TableTransactions, toAny(i.FutureTransactions)
	case CheckInvalidSignupDates:
		table, rows = TableCustomers, toAny(i.InvalidSignupDates)
	case CheckInvalidOpenedDates:
		table, rows = TableAccounts, toAny(i.InvalidOpenedDates)
	case CheckInvalidTransactionDates:
		table, rows = TableTransactions, toAny(i.InvalidTransactionDates)
	case CheckInvalidAccountStatus:
		table, rows = TableAccounts, toAny(i.InvalidAccountStatus)
	case CheckInvalidRiskSegment:
		table, rows = TableCustomers, toAny(i.InvalidRiskSegment)
	case CheckInvalidAccountType:
		table, rows = TableAccounts, toAny(i.InvalidAccountType)
	case CheckInvalidTransactionType:
		table, rows = TableTransactions, toAny(i.InvalidTransactionType)
	case CheckBalanceMismatches:
		table, rows = TableAccounts, toAny(i.BalanceMismatches)
	default:
		return IssueSet{}, fmt.Errorf("unknown check %q", check)
	}
	return IssueSet{Check: check, Table: table, Rows: rows}, nil
}

func toAny[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// RunSummary is the serialized report of one run: the quality report fields
// at the top level, followed by diagnostics and cleaning statistics.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	ProcessedAt time.Time `json:"processed_at"`
	QualityReport
	Diagnostics Diagnostics  `json:"diagnostics"`
	CleanStats  []CleanStats `json:"clean_stats"`
}

// Summary renders r as the report of run runID.
func (r Result) Summary(runID string) RunSummary {
	return RunSummary{
		RunID:         runID,
		ProcessedAt:   r.ProcessedAt,
		QualityReport: r.Report,
		Diagnostics:   r.Diagnostics,
		CleanStats:    r.CleanStats,
	}
}
