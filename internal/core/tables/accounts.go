package tables

import (
	"github.com/JonMunkholm/bankquality/internal/core"
	"github.com/shopspring/decimal"
)

func registerAccounts() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableAccounts,
			Label:      "Accounts",
			InputFile:  "accounts.csv",
			OutputName: "accounts_clean",
			UniqueKey:  "account_id",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "account_id", Required: true},
			{Name: "customer_id", Required: true},
			{Name: "account_type", Required: true},
			{Name: "currency", Required: true},
			{Name: "balance", Required: true},
			{Name: "opened_date", Required: true},
			{Name: "status", Required: true},
			{Name: "closed_date"},
			{Name: "recalculated_balance", Derived: true},
		},
		Decode: func(row []string, idx core.HeaderIndex) any {
			return core.RawAccount{
				AccountID:   idx.Cell(row, "account_id"),
				CustomerID:  idx.Cell(row, "customer_id"),
				AccountType: idx.Cell(row, "account_type"),
				Currency:    idx.Cell(row, "currency"),
				Balance:     idx.Cell(row, "balance"),
				OpenedDate:  idx.Cell(row, "opened_date"),
				Status:      idx.Cell(row, "status"),
				ClosedDate:  idx.Cell(row, "closed_date"),
			}
		},
		Encode: func(rec any) []string {
			a := rec.(core.Account)
			return []string{
				a.AccountID,
				core.FormatText(a.CustomerID),
				string(a.AccountType),
				core.FormatText(a.Currency),
				core.FormatDecimal(a.Balance),
				core.FormatDate(a.OpenedDate),
				string(a.Status),
				core.FormatDate(a.ClosedDate),
				a.RecalculatedBalance.String(),
			}
		},
		CreateSQL: `CREATE TABLE IF NOT EXISTS accounts_clean (
	account_id           TEXT PRIMARY KEY,
	customer_id          TEXT,
	account_type         TEXT CHECK (account_type IN ('savings', 'checking')),
	currency             TEXT,
	balance              NUMERIC,
	opened_date          DATE,
	status               TEXT CHECK (status IN ('active', 'closed', 'suspended')),
	closed_date          DATE,
	recalculated_balance NUMERIC NOT NULL DEFAULT 0
)`,
		CopyColumns: []string{
			"account_id", "customer_id", "account_type", "currency", "balance",
			"opened_date", "status", "closed_date", "recalculated_balance",
		},
		CopyRow: func(rec any) []any {
			a := rec.(core.Account)
			return []any{
				a.AccountID,
				a.CustomerID,
				enumText(a.AccountType),
				a.Currency,
				toNumeric(a.Balance),
				a.OpenedDate,
				enumText(a.Status),
				a.ClosedDate,
				toNumeric(decimal.NullDecimal{Decimal: a.RecalculatedBalance, Valid: true}),
			}
		},
	})
}
