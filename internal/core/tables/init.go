// Package tables registers the customer, account and transaction table
// definitions with the core registry. Import this package to ensure all
// tables are registered.
package tables

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func init() {
	registerCustomers()
	registerAccounts()
	registerTransactions()
}

// toNumeric converts a nullable decimal to pgtype.Numeric for COPY.
func toNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{Valid: false}
	}
	var n pgtype.Numeric
	if err := n.Scan(d.Decimal.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// enumText converts an enumerated value, where "" is null, to pgtype.Text.
func enumText[T ~string](v T) pgtype.Text {
	return pgtype.Text{String: string(v), Valid: v != ""}
}
