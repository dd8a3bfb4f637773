package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage names reported to a StageObserver, in execution order.
const (
	StageCleanCustomers    = "clean_customers"
	StageCleanAccounts     = "clean_accounts"
	StageCleanTransactions = "clean_transactions"
	StageEnforceSign       = "enforce_transaction_sign"
	StageRemoveAfterClose  = "remove_transactions_after_account_closure"
	StageRecalcBalance     = "recalculate_account_balance"
	StageFlagHighRisk      = "flag_high_risk_large_transactions"
	StageClassifySize      = "classify_transaction_size"
	StageValidate          = "validate"
)

// StageObserver is called after each stage with the row counts it saw.
type StageObserver func(stage string, rowsIn, rowsOut int)

// Options parameterize a Process call.
type Options struct {
	HighRiskThreshold decimal.Decimal
	OutlierThreshold  decimal.Decimal
	Now               time.Time // processing time for temporal checks
	Observer          StageObserver
}

// DefaultOptions returns the standard thresholds evaluated at now.
func DefaultOptions(now time.Time) Options {
	return Options{
		HighRiskThreshold: DefaultHighRiskThreshold,
		OutlierThreshold:  DefaultOutlierThreshold,
		Now:               now,
	}
}

// Result is everything a run produces.
type Result struct {
	Dataset     Dataset
	Report      QualityReport
	Diagnostics Diagnostics
	Issues      Issues
	CleanStats  []CleanStats
	ProcessedAt time.Time
}

// Process cleans the raw tables, applies the business rules and validates
// the outcome. It never fails; malformed input degrades to nulls, dropped
// duplicates and non-empty validator subsets.
func Process(raw RawDataset, opts Options) Result {
	observe := opts.Observer
	if observe == nil {
		observe = func(string, int, int) {}
	}

	customers, cStats := CleanCustomersWithStats(raw.Customers)
	observe(StageCleanCustomers, cStats.RowsIn, cStats.RowsOut)
	accounts, aStats := CleanAccountsWithStats(raw.Accounts)
	observe(StageCleanAccounts, aStats.RowsIn, aStats.RowsOut)
	txns, tStats := CleanTransactionsWithStats(raw.Transactions)
	observe(StageCleanTransactions, tStats.RowsIn, tStats.RowsOut)

	n := len(txns)
	txns = EnforceTransactionSign(txns)
	observe(StageEnforceSign, n, len(txns))

	n = len(txns)
	txns = RemoveTransactionsAfterAccountClosure(txns, accounts)
	observe(StageRemoveAfterClose, n, len(txns))

	accounts = RecalculateAccountBalance(accounts, txns)
	observe(StageRecalcBalance, len(accounts), len(accounts))

	n = len(txns)
	txns = FlagHighRiskLargeTransactions(txns, accounts, customers, opts.HighRiskThreshold)
	observe(StageFlagHighRisk, n, len(txns))

	txns = ClassifyTransactionSize(txns)
	observe(StageClassifySize, n, len(txns))

	ds := Dataset{Customers: customers, Accounts: accounts, Transactions: txns}
	issues := Validate(ds, opts.OutlierThreshold, opts.Now)
	observe(StageValidate, len(customers)+len(accounts)+len(txns), len(customers)+len(accounts)+len(txns))

	return Result{
		Dataset:     ds,
		Report:      BuildQualityReport(customers, accounts, txns, opts.Now),
		Diagnostics: BuildDiagnostics(ds, issues),
		Issues:      issues,
		CleanStats:  []CleanStats{cStats, aStats, tStats},
		ProcessedAt: opts.Now,
	}
}
