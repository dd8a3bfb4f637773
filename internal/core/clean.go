package core

// clean.go implements the per-table record cleaners.
//
// Every cleaner follows the same contract:
//  1. Duplicate primary keys are dropped, keeping the first occurrence.
//  2. Money, date and string fields go through the field normalizers.
//  3. Format fields (email) are checked against a pattern; misses are nulled.
//  4. Enumerated columns are restricted to their domain; misses are nulled.
//
// A cleaner never fails and never adds rows. The input slice is not modified.

// CleanStats describes what a cleaner did to one table.
type CleanStats struct {
	Table      string         `json:"table"`
	RowsIn     int            `json:"rows_in"`
	RowsOut    int            `json:"rows_out"`
	Duplicates int            `json:"duplicates"`
	Nulled     map[string]int `json:"nulled"` // non-empty raw values that became null, by column
}

func newCleanStats(table string, rowsIn int) CleanStats {
	return CleanStats{Table: table, RowsIn: rowsIn, Nulled: make(map[string]int)}
}

// nulled records a non-empty raw value that did not survive normalization.
func (s *CleanStats) nulled(column, raw string, valid bool) {
	if !valid && ToText(raw).Valid {
		s.Nulled[column]++
	}
}

// dedupe returns the rows whose key has not been seen before, in input order.
func dedupe[T any](rows []T, key func(T) string) (kept []T, dropped int) {
	seen := make(map[string]struct{}, len(rows))
	kept = make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

// enumValue normalizes raw and returns it if it belongs to domain, else "".
func enumValue(raw string, domain []string) string {
	v := NormalizeString(raw)
	for _, d := range domain {
		if v == d {
			return v
		}
	}
	return ""
}

// CleanCustomers deduplicates on customer_id, validates emails, parses
// signup dates and restricts risk_segment to low/medium/high.
func CleanCustomers(raw []RawCustomer) []Customer {
	out, _ := CleanCustomersWithStats(raw)
	return out
}

// CleanCustomersWithStats is CleanCustomers plus a description of the changes.
func CleanCustomersWithStats(raw []RawCustomer) ([]Customer, CleanStats) {
	stats := newCleanStats("customers", len(raw))
	rows, dropped := dedupe(raw, func(r RawCustomer) string { return r.CustomerID })
	stats.Duplicates = dropped

	out := make([]Customer, len(rows))
	for i, r := range rows {
		c := Customer{
			CustomerID:  r.CustomerID,
			FullName:    ToText(r.FullName),
			Email:       ValidEmail(r.Email),
			Country:     ToText(r.Country),
			SignupDate:  ParseDate(r.SignupDate),
			RiskSegment: RiskSegment(enumValue(r.RiskSegment, RiskSegments)),
		}
		stats.nulled("email", r.Email, c.Email.Valid)
		stats.nulled("signup_date", r.SignupDate, c.SignupDate.Valid)
		stats.nulled("risk_segment", r.RiskSegment, c.RiskSegment != "")
		out[i] = c
	}

	stats.RowsOut = len(out)
	return out, stats
}

// CleanAccounts deduplicates on account_id, parses balance and dates and
// restricts status and account_type to their domains.
func CleanAccounts(raw []RawAccount) []Account {
	out, _ := CleanAccountsWithStats(raw)
	return out
}

// CleanAccountsWithStats is CleanAccounts plus a description of the changes.
func CleanAccountsWithStats(raw []RawAccount) ([]Account, CleanStats) {
	stats := newCleanStats("accounts", len(raw))
	rows, dropped := dedupe(raw, func(r RawAccount) string { return r.AccountID })
	stats.Duplicates = dropped

	out := make([]Account, len(rows))
	for i, r := range rows {
		a := Account{
			AccountID:   r.AccountID,
			CustomerID:  ToText(r.CustomerID),
			AccountType: AccountType(enumValue(r.AccountType, AccountTypes)),
			Currency:    ToText(r.Currency),
			Balance:     ParseCurrency(r.Balance),
			OpenedDate:  ParseDate(r.OpenedDate),
			Status:      AccountStatus(enumValue(r.Status, AccountStatuses)),
			ClosedDate:  ParseDate(r.ClosedDate),
		}
		stats.nulled("account_type", r.AccountType, a.AccountType != "")
		stats.nulled("balance", r.Balance, a.Balance.Valid)
		stats.nulled("opened_date", r.OpenedDate, a.OpenedDate.Valid)
		stats.nulled("status", r.Status, a.Status != "")
		stats.nulled("closed_date", r.ClosedDate, a.ClosedDate.Valid)
		out[i] = a
	}

	stats.RowsOut = len(out)
	return out, stats
}

// CleanTransactions deduplicates on transaction_id, parses amount, date and
// fraud flag and restricts transaction_type to debit/credit.
func CleanTransactions(raw []RawTransaction) []Transaction {
	out, _ := CleanTransactionsWithStats(raw)
	return out
}

// CleanTransactionsWithStats is CleanTransactions plus a description of the changes.
func CleanTransactionsWithStats(raw []RawTransaction) ([]Transaction, CleanStats) {
	stats := newCleanStats("transactions", len(raw))
	rows, dropped := dedupe(raw, func(r RawTransaction) string { return r.TransactionID })
	stats.Duplicates = dropped

	out := make([]Transaction, len(rows))
	for i, r := range rows {
		t := Transaction{
			TransactionID:   r.TransactionID,
			AccountID:       ToText(r.AccountID),
			TransactionDate: ParseDate(r.TransactionDate),
			Amount:          ParseCurrency(r.Amount),
			TransactionType: TransactionType(enumValue(r.TransactionType, TransactionTypes)),
			MerchantName:    ToText(r.MerchantName),
			Category:        ToText(r.Category),
			IsFraudFlag:     ParseFlag(r.IsFraudFlag),
		}
		stats.nulled("transaction_date", r.TransactionDate, t.TransactionDate.Valid)
		stats.nulled("amount", r.Amount, t.Amount.Valid)
		stats.nulled("transaction_type", r.TransactionType, t.TransactionType != "")
		stats.nulled("is_fraud_flag", r.IsFraudFlag, t.IsFraudFlag.Valid)
		out[i] = t
	}

	stats.RowsOut = len(out)
	return out, stats
}

// Raw renders a cleaned customer back to its untyped form.
func (c Customer) Raw() RawCustomer {
	return RawCustomer{
		CustomerID:  c.CustomerID,
		FullName:    FormatText(c.FullName),
		Email:       FormatText(c.Email),
		Country:     FormatText(c.Country),
		SignupDate:  FormatDate(c.SignupDate),
		RiskSegment: string(c.RiskSegment),
	}
}

// Raw renders a cleaned account back to its untyped form. The derived
// recalculated balance has no raw column and is dropped.
func (a Account) Raw() RawAccount {
	return RawAccount{
		AccountID:   a.AccountID,
		CustomerID:  FormatText(a.CustomerID),
		AccountType: string(a.AccountType),
		Currency:    FormatText(a.Currency),
		Balance:     FormatDecimal(a.Balance),
		OpenedDate:  FormatDate(a.OpenedDate),
		Status:      string(a.Status),
		ClosedDate:  FormatDate(a.ClosedDate),
	}
}

// Raw renders a cleaned transaction back to its untyped form. Derived
// columns are dropped.
func (t Transaction) Raw() RawTransaction {
	return RawTransaction{
		TransactionID:   t.TransactionID,
		AccountID:       FormatText(t.AccountID),
		TransactionDate: FormatDate(t.TransactionDate),
		Amount:          FormatDecimal(t.Amount),
		TransactionType: string(t.TransactionType),
		MerchantName:    FormatText(t.MerchantName),
		Category:        FormatText(t.Category),
		IsFraudFlag:     FormatInt(t.IsFraudFlag),
	}
}

// RawCustomers renders a cleaned table back to its untyped form.
func RawCustomers(rows []Customer) []RawCustomer {
	out := make([]RawCustomer, len(rows))
	for i, r := range rows {
		out[i] = r.Raw()
	}
	return out
}

// RawAccounts renders a cleaned table back to its untyped form.
func RawAccounts(rows []Account) []RawAccount {
	out := make([]RawAccount, len(rows))
	for i, r := range rows {
		out[i] = r.Raw()
	}
	return out
}

// RawTransactions renders a cleaned table back to its untyped form.
func RawTransactions(rows []Transaction) []RawTransaction {
	out := make([]RawTransaction, len(rows))
	for i, r := range rows {
		out[i] = r.Raw()
	}
	return out
}
