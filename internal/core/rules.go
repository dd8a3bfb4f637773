package core

// rules.go implements the business rule engine: cross-record transforms that
// encode the financial semantics of the dataset. Each rule takes its input
// tables by value and returns a new table; inputs are never modified.

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Default thresholds for the risk rules.
var (
	DefaultHighRiskThreshold = decimal.NewFromInt(50000)
	DefaultOutlierThreshold  = decimal.NewFromInt(100000)
)

// Transaction size bucket bounds. Both bounds belong to the medium bucket.
var (
	mediumSizeFloor   = decimal.NewFromInt(100)
	mediumSizeCeiling = decimal.NewFromInt(1000)
)

// EnforceTransactionSign forces debit amounts to be non-positive and credit
// amounts non-negative by re-signing the absolute value. Rows with a null
// type or a null amount are left untouched.
func EnforceTransactionSign(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	for i, t := range txns {
		if t.Amount.Valid {
			switch t.TransactionType {
			case TypeDebit:
				t.Amount.Decimal = t.Amount.Decimal.Abs().Neg()
			case TypeCredit:
				t.Amount.Decimal = t.Amount.Decimal.Abs()
			}
		}
		out[i] = t
	}
	return out
}

// RecalculateAccountBalance sets RecalculatedBalance on every account to the
// sum of the amounts of the transactions referencing it, or zero when there
// are none. Null amounts contribute nothing. The raw Balance is preserved.
func RecalculateAccountBalance(accounts []Account, txns []Transaction) []Account {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if !t.AccountID.Valid || !t.Amount.Valid {
			continue
		}
		sums[t.AccountID.String] = sums[t.AccountID.String].Add(t.Amount.Decimal)
	}

	out := make([]Account, len(accounts))
	for i, a := range accounts {
		a.RecalculatedBalance = sums[a.AccountID] // zero value when absent
		out[i] = a
	}
	return out
}

// FlagHighRiskLargeTransactions sets HighRiskAlert on transactions whose
// owning customer is in the high risk segment, whose absolute amount exceeds
// threshold, and which are not already flagged as fraud (is_fraud_flag == 0).
// Any null along the transaction → account → customer chain yields false.
func FlagHighRiskLargeTransactions(txns []Transaction, accounts []Account, customers []Customer, threshold decimal.Decimal) []Transaction {
	owners := accountOwners(accounts)
	risk := customerRisk(customers)

	out := make([]Transaction, len(txns))
	for i, t := range txns {
		t.HighRiskAlert = false
		if t.AccountID.Valid && t.Amount.Valid && t.IsFraudFlag.Valid && t.IsFraudFlag.Int32 == 0 {
			if owner, ok := owners[t.AccountID.String]; ok && owner.Valid {
				t.HighRiskAlert = risk[owner.String] == RiskHigh &&
					t.Amount.Decimal.Abs().GreaterThan(threshold)
			}
		}
		out[i] = t
	}
	return out
}

// RemoveTransactionsAfterAccountClosure drops transactions on closed accounts
// dated after the account's cutoff. The cutoff is the closed_date when the
// account has one, otherwise its opened_date. Transactions whose date or
// cutoff is null are kept.
func RemoveTransactionsAfterAccountClosure(txns []Transaction, accounts []Account) []Transaction {
	cutoffs := make(map[string]pgtype.Date)
	for _, a := range accounts {
		if a.Status != StatusClosed {
			continue
		}
		if _, seen := cutoffs[a.AccountID]; seen {
			continue
		}
		cutoff := a.OpenedDate
		if a.ClosedDate.Valid {
			cutoff = a.ClosedDate
		}
		cutoffs[a.AccountID] = cutoff
	}

	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if t.AccountID.Valid && t.TransactionDate.Valid {
			if cutoff, ok := cutoffs[t.AccountID.String]; ok && cutoff.Valid &&
				t.TransactionDate.Time.After(cutoff.Time) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ClassifyTransactionSize buckets every transaction by absolute amount:
// below 100 is small, 100 to 1000 inclusive is medium, above 1000 is large,
// and a null amount is unknown.
func ClassifyTransactionSize(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	for i, t := range txns {
		t.TransactionSize = SizeOf(t.Amount)
		out[i] = t
	}
	return out
}

// SizeOf returns the size bucket for a single amount.
func SizeOf(amount decimal.NullDecimal) TransactionSize {
	if !amount.Valid {
		return SizeUnknown
	}
	abs := amount.Decimal.Abs()
	switch {
	case abs.LessThan(mediumSizeFloor):
		return SizeSmall
	case abs.LessThanOrEqual(mediumSizeCeiling):
		return SizeMedium
	default:
		return SizeLarge
	}
}

// accountOwners indexes account_id → customer_id. The first account with a
// given id wins, mirroring duplicate resolution in the cleaners.
func accountOwners(accounts []Account) map[string]pgtype.Text {
	owners := make(map[string]pgtype.Text, len(accounts))
	for _, a := range accounts {
		if _, ok := owners[a.AccountID]; !ok {
			owners[a.AccountID] = a.CustomerID
		}
	}
	return owners
}

// customerRisk indexes customer_id → risk segment, first occurrence wins.
func customerRisk(customers []Customer) map[string]RiskSegment {
	risk := make(map[string]RiskSegment, len(customers))
	for _, c := range customers {
		if _, ok := risk[c.CustomerID]; !ok {
			risk[c.CustomerID] = c.RiskSegment
		}
	}
	return risk
}
