package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// decimalEqual compares decimals by value so 412.10 equals 412.1.
var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func messyCustomers() []RawCustomer {
	return []RawCustomer{
		{CustomerID: "CUST_00001", FullName: "Ada Lovelace", Email: " Ada@Example.com ", Country: "UK", SignupDate: "2021-03-04", RiskSegment: " HIGH "},
		{CustomerID: "CUST_00002", FullName: "Grace Hopper", Email: "invalid_email", Country: "US", SignupDate: "31-02-2020", RiskSegment: "extreme"},
		{CustomerID: "CUST_00001", FullName: "Duplicate Ada", Email: "dup@example.com", Country: "UK", SignupDate: "2022-01-01", RiskSegment: "low"},
		{CustomerID: "CUST_00003", FullName: "", Email: "", Country: "nan", SignupDate: "", RiskSegment: ""},
	}
}

func messyAccounts() []RawAccount {
	return []RawAccount{
		{AccountID: "ACC_000001", CustomerID: "CUST_00001", AccountType: "Savings", Currency: "GBP", Balance: "£4,820.10", OpenedDate: "2021-03-05", Status: "Active"},
		{AccountID: "ACC_000002", CustomerID: "CUST_99999", AccountType: "brokerage", Currency: "USD", Balance: "abc", OpenedDate: "1/15/2024", Status: "frozen"},
		{AccountID: "ACC_000001", CustomerID: "CUST_00002", AccountType: "checking", Currency: "USD", Balance: "1", OpenedDate: "2020-01-01", Status: "closed"},
		{AccountID: "ACC_000003", CustomerID: "CUST_00002", AccountType: "checking", Currency: "USD", Balance: "($12.50)", OpenedDate: "2020-01-01", Status: "closed", ClosedDate: "2023-06-30"},
	}
}

func messyTransactions() []RawTransaction {
	return []RawTransaction{
		{TransactionID: "TXN_1", AccountID: "ACC_000001", TransactionDate: "2024-01-15", Amount: "$-412.10", TransactionType: "DEBIT", MerchantName: "Tesco", Category: "groceries", IsFraudFlag: "0"},
		{TransactionID: "TXN_2", AccountID: "ACC_000001", TransactionDate: "2024-01-16 10:11:12", Amount: "250", TransactionType: "debit", MerchantName: "Shell", Category: "fuel", IsFraudFlag: "1"},
		{TransactionID: "TXN_1", AccountID: "ACC_000002", TransactionDate: "2024-02-01", Amount: "1", TransactionType: "credit", IsFraudFlag: "0"},
		{TransactionID: "TXN_3", AccountID: "", TransactionDate: "garbage", Amount: "n/a", TransactionType: "refund", IsFraudFlag: "maybe"},
	}
}

func TestCleanCustomers(t *testing.T) {
	got, stats := CleanCustomersWithStats(messyCustomers())

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if stats.Duplicates != 1 || stats.RowsIn != 4 || stats.RowsOut != 3 {
		t.Errorf("stats = %+v", stats)
	}

	ada := got[0]
	if ada.FullName.String != "Ada Lovelace" {
		t.Errorf("first occurrence should win, got %q", ada.FullName.String)
	}
	if !ada.Email.Valid || ada.Email.String != "ada@example.com" {
		t.Errorf("email = %+v, want normalized ada@example.com", ada.Email)
	}
	if ada.RiskSegment != RiskHigh {
		t.Errorf("risk = %q, want high", ada.RiskSegment)
	}

	grace := got[1]
	if grace.Email.Valid {
		t.Errorf("invalid email should be null, got %q", grace.Email.String)
	}
	if grace.SignupDate.Valid {
		t.Errorf("impossible date should be null, got %v", grace.SignupDate.Time)
	}
	if grace.RiskSegment != "" {
		t.Errorf("out-of-domain risk should be null, got %q", grace.RiskSegment)
	}

	empty := got[2]
	if empty.FullName.Valid || empty.Country.Valid || empty.Email.Valid || empty.SignupDate.Valid {
		t.Errorf("empty cells should all be null: %+v", empty)
	}

	wantNulled := map[string]int{"email": 1, "signup_date": 1, "risk_segment": 1}
	if diff := cmp.Diff(wantNulled, stats.Nulled); diff != "" {
		t.Errorf("nulled mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanAccounts(t *testing.T) {
	got := CleanAccounts(messyAccounts())

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	first := got[0]
	if first.CustomerID.String != "CUST_00001" {
		t.Errorf("duplicate account should keep first row, got owner %q", first.CustomerID.String)
	}
	if first.AccountType != AccountSavings || first.Status != StatusActive {
		t.Errorf("enums not normalized: %q %q", first.AccountType, first.Status)
	}
	if !first.Balance.Decimal.Equal(decimal.RequireFromString("4820.10")) {
		t.Errorf("balance = %s, want 4820.10", first.Balance.Decimal)
	}

	bad := got[1]
	if bad.AccountType != "" || bad.Status != "" || bad.Balance.Valid {
		t.Errorf("invalid values should be null: %+v", bad)
	}
	if !bad.OpenedDate.Valid || bad.OpenedDate.Time.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("opened date = %v", bad.OpenedDate)
	}

	closed := got[2]
	if !closed.Balance.Decimal.Equal(decimal.RequireFromString("-12.5")) {
		t.Errorf("accounting balance = %s, want -12.5", closed.Balance.Decimal)
	}
	if !closed.ClosedDate.Valid {
		t.Error("closed_date should parse")
	}
}

func TestCleanTransactions(t *testing.T) {
	got, stats := CleanTransactionsWithStats(messyTransactions())

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}

	if got[0].TransactionType != TypeDebit || !got[0].Amount.Decimal.Equal(decimal.RequireFromString("-412.1")) {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].TransactionDate.Time.Format("2006-01-02") != "2024-01-16" {
		t.Errorf("timestamp should truncate to day, got %v", got[1].TransactionDate.Time)
	}
	if !got[1].IsFraudFlag.Valid || got[1].IsFraudFlag.Int32 != 1 {
		t.Errorf("fraud flag = %+v", got[1].IsFraudFlag)
	}

	junk := got[2]
	if junk.AccountID.Valid || junk.TransactionDate.Valid || junk.Amount.Valid ||
		junk.TransactionType != "" || junk.IsFraudFlag.Valid {
		t.Errorf("junk row should be all null: %+v", junk)
	}
	// "n/a" is a null token, so only genuinely unparseable values count.
	wantNulled := map[string]int{"transaction_date": 1, "transaction_type": 1, "is_fraud_flag": 1}
	if diff := cmp.Diff(wantNulled, stats.Nulled); diff != "" {
		t.Errorf("nulled mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Run("customers", func(t *testing.T) {
		once := CleanCustomers(messyCustomers())
		twice := CleanCustomers(RawCustomers(once))
		if diff := cmp.Diff(once, twice, decimalEqual); diff != "" {
			t.Errorf("clean(clean(x)) != clean(x) (-once +twice):\n%s", diff)
		}
	})

	t.Run("accounts", func(t *testing.T) {
		once := CleanAccounts(messyAccounts())
		twice := CleanAccounts(RawAccounts(once))
		if diff := cmp.Diff(once, twice, decimalEqual); diff != "" {
			t.Errorf("clean(clean(x)) != clean(x) (-once +twice):\n%s", diff)
		}
	})

	t.Run("transactions", func(t *testing.T) {
		once := CleanTransactions(messyTransactions())
		twice := CleanTransactions(RawTransactions(once))
		if diff := cmp.Diff(once, twice, decimalEqual); diff != "" {
			t.Errorf("clean(clean(x)) != clean(x) (-once +twice):\n%s", diff)
		}
	})
}

func TestCleanDoesNotModifyInput(t *testing.T) {
	raw := messyCustomers()
	before := append([]RawCustomer(nil), raw...)

	CleanCustomers(raw)

	if diff := cmp.Diff(before, raw); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := CleanCustomers(nil); len(got) != 0 {
		t.Errorf("CleanCustomers(nil) = %v", got)
	}
	if got := CleanAccounts([]RawAccount{}); len(got) != 0 {
		t.Errorf("CleanAccounts(empty) = %v", got)
	}
	if got := CleanTransactions(nil); len(got) != 0 {
		t.Errorf("CleanTransactions(nil) = %v", got)
	}
}
