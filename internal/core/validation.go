package core

// validation.go provides the relational, temporal and domain validators.
//
// Validation happens at two levels:
//  1. Header validation: ensures required columns are present in a source file
//  2. Table validation: pure predicates that return the offending subset of a
//     table without modifying it
//
// Every table validator treats null as "not matching": a comparison with a
// null operand is false, and a null foreign key never finds its target.
// Validators are independent of each other and may run in any order.

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ValidateHeaders validates that all required columns exist in the CSV headers.
// Returns a mapping from column name to index, or an error listing missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required && !spec.Derived {
			if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
				missing = append(missing, spec.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

// filter returns the rows matching keep, in order, as a new slice.
func filter[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// AccountCustomerOrphans returns accounts whose customer_id matches no customer.
func AccountCustomerOrphans(accounts []Account, customers []Customer) []Account {
	known := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		known[c.CustomerID] = struct{}{}
	}
	return filter(accounts, func(a Account) bool {
		if !a.CustomerID.Valid {
			return true
		}
		_, ok := known[a.CustomerID.String]
		return !ok
	})
}

// TransactionAccountOrphans returns transactions whose account_id matches no account.
func TransactionAccountOrphans(txns []Transaction, accounts []Account) []Transaction {
	known := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		known[a.AccountID] = struct{}{}
	}
	return filter(txns, func(t Transaction) bool {
		if !t.AccountID.Valid {
			return true
		}
		_, ok := known[t.AccountID.String]
		return !ok
	})
}

// SignTypeViolations returns debits with a positive amount and credits with a
// negative amount.
func SignTypeViolations(txns []Transaction) []Transaction {
	return filter(txns, func(t Transaction) bool {
		if !t.Amount.Valid {
			return false
		}
		switch t.TransactionType {
		case TypeDebit:
			return t.Amount.Decimal.IsPositive()
		case TypeCredit:
			return t.Amount.Decimal.IsNegative()
		}
		return false
	})
}

// ExtremeOutliers returns transactions whose absolute amount exceeds threshold.
func ExtremeOutliers(txns []Transaction, threshold decimal.Decimal) []Transaction {
	return filter(txns, func(t Transaction) bool {
		return t.Amount.Valid && t.Amount.Decimal.Abs().GreaterThan(threshold)
	})
}

// FutureTransactions returns transactions dated after the calendar day of
// now, taken in now's own location. A transaction dated today is never
// future, whatever the hour or zone offset.
func FutureTransactions(txns []Transaction, now time.Time) []Transaction {
	today := truncateDay(now)
	return filter(txns, func(t Transaction) bool {
		return t.TransactionDate.Valid && t.TransactionDate.Time.After(today)
	})
}

// InvalidDates returns the rows whose date, as selected by column, is null.
//
//	missing := InvalidDates(accounts, func(a Account) pgtype.Date { return a.OpenedDate })
func InvalidDates[T any](rows []T, column func(T) pgtype.Date) []T {
	return filter(rows, func(r T) bool { return !column(r).Valid })
}

// Date column selectors for InvalidDates.
var (
	CustomerSignupDate    = func(c Customer) pgtype.Date { return c.SignupDate }
	AccountOpenedDate     = func(a Account) pgtype.Date { return a.OpenedDate }
	TransactionDateColumn = func(t Transaction) pgtype.Date { return t.TransactionDate }
)

// InvalidAccountStatus returns accounts whose status is outside
// active/closed/suspended. A null status is outside the domain.
func InvalidAccountStatus(accounts []Account) []Account {
	return filter(accounts, func(a Account) bool { return !a.Status.Valid() })
}

// InvalidRiskSegment returns customers whose risk segment is outside
// low/medium/high. A null segment is outside the domain.
func InvalidRiskSegment(customers []Customer) []Customer {
	return filter(customers, func(c Customer) bool { return !c.RiskSegment.Valid() })
}

// InvalidAccountType returns accounts whose type is outside savings/checking.
func InvalidAccountType(accounts []Account) []Account {
	return filter(accounts, func(a Account) bool { return !a.AccountType.Valid() })
}

// InvalidTransactionType returns transactions whose type is outside debit/credit.
func InvalidTransactionType(txns []Transaction) []Transaction {
	return filter(txns, func(t Transaction) bool { return !t.TransactionType.Valid() })
}

// BalanceMismatches returns accounts whose reported balance differs from the
// recalculated balance. A null reported balance never matches and is returned.
func BalanceMismatches(accounts []Account) []Account {
	return filter(accounts, func(a Account) bool {
		return !a.Balance.Valid || !a.Balance.Decimal.Equal(a.RecalculatedBalance)
	})
}

// DuplicateKeys counts rows whose key already appeared earlier in rows.
func DuplicateKeys[T any](rows []T, key func(T) string) int {
	_, dropped := dedupe(rows, key)
	return dropped
}
