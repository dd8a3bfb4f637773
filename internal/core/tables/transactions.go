package tables

import (
	"strconv"

	"github.com/JonMunkholm/bankquality/internal/core"
)

func registerTransactions() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableTransactions,
			Label:      "Transactions",
			InputFile:  "transactions.csv",
			OutputName: "transactions_clean",
			UniqueKey:  "transaction_id",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "transaction_id", Required: true},
			{Name: "account_id", Required: true},
			{Name: "transaction_date", Required: true},
			{Name: "amount", Required: true},
			{Name: "transaction_type", Required: true},
			{Name: "merchant_name", Required: true},
			{Name: "category", Required: true},
			{Name: "is_fraud_flag", Required: true},
			{Name: "high_risk_alert", Derived: true},
			{Name: "transaction_size", Derived: true},
		},
		Decode: func(row []string, idx core.HeaderIndex) any {
			return core.RawTransaction{
				TransactionID:   idx.Cell(row, "transaction_id"),
				AccountID:       idx.Cell(row, "account_id"),
				TransactionDate: idx.Cell(row, "transaction_date"),
				Amount:          idx.Cell(row, "amount"),
				TransactionType: idx.Cell(row, "transaction_type"),
				MerchantName:    idx.Cell(row, "merchant_name"),
				Category:        idx.Cell(row, "category"),
				IsFraudFlag:     idx.Cell(row, "is_fraud_flag"),
			}
		},
		Encode: func(rec any) []string {
			t := rec.(core.Transaction)
			return []string{
				t.TransactionID,
				core.FormatText(t.AccountID),
				core.FormatDate(t.TransactionDate),
				core.FormatDecimal(t.Amount),
				string(t.TransactionType),
				core.FormatText(t.MerchantName),
				core.FormatText(t.Category),
				core.FormatInt(t.IsFraudFlag),
				strconv.FormatBool(t.HighRiskAlert),
				string(t.TransactionSize),
			}
		},
		CreateSQL: `CREATE TABLE IF NOT EXISTS transactions_clean (
	transaction_id   TEXT PRIMARY KEY,
	account_id       TEXT,
	transaction_date DATE,
	amount           NUMERIC,
	transaction_type TEXT CHECK (transaction_type IN ('debit', 'credit')),
	merchant_name    TEXT,
	category         TEXT,
	is_fraud_flag    INTEGER,
	high_risk_alert  BOOLEAN NOT NULL DEFAULT FALSE,
	transaction_size TEXT NOT NULL CHECK (transaction_size IN ('small', 'medium', 'large', 'unknown'))
)`,
		CopyColumns: []string{
			"transaction_id", "account_id", "transaction_date", "amount", "transaction_type",
			"merchant_name", "category", "is_fraud_flag", "high_risk_alert", "transaction_size",
		},
		CopyRow: func(rec any) []any {
			t := rec.(core.Transaction)
			size := t.TransactionSize
			if size == "" {
				size = core.SizeUnknown
			}
			return []any{
				t.TransactionID,
				t.AccountID,
				t.TransactionDate,
				toNumeric(t.Amount),
				enumText(t.TransactionType),
				t.MerchantName,
				t.Category,
				t.IsFraudFlag,
				t.HighRiskAlert,
				string(size),
			}
		},
	})
}
