// Package core provides the cleaning, business-rule and validation engine for
// the banking dataset. This package has no I/O dependencies and can be used by
// any frontend.
package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// RiskSegment is a customer's risk classification. The zero value is null.
type RiskSegment string

const (
	RiskLow    RiskSegment = "low"
	RiskMedium RiskSegment = "medium"
	RiskHigh   RiskSegment = "high"
)

// Valid reports whether s is one of the known segments.
func (s RiskSegment) Valid() bool {
	return s == RiskLow || s == RiskMedium || s == RiskHigh
}

// AccountStatus is the lifecycle state of an account. The zero value is null.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusClosed    AccountStatus = "closed"
	StatusSuspended AccountStatus = "suspended"
)

func (s AccountStatus) Valid() bool {
	return s == StatusActive || s == StatusClosed || s == StatusSuspended
}

// AccountType is the product type of an account. The zero value is null.
type AccountType string

const (
	AccountSavings  AccountType = "savings"
	AccountChecking AccountType = "checking"
)

func (t AccountType) Valid() bool {
	return t == AccountSavings || t == AccountChecking
}

// TransactionType is the direction of a transaction. The zero value is null.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

func (t TransactionType) Valid() bool {
	return t == TypeDebit || t == TypeCredit
}

// TransactionSize buckets a transaction by absolute amount.
type TransactionSize string

const (
	SizeSmall   TransactionSize = "small"
	SizeMedium  TransactionSize = "medium"
	SizeLarge   TransactionSize = "large"
	SizeUnknown TransactionSize = "unknown"
)

// Valid domains, in declaration order. Used by cleaners and domain validators.
var (
	RiskSegments     = []string{string(RiskLow), string(RiskMedium), string(RiskHigh)}
	AccountStatuses  = []string{string(StatusActive), string(StatusClosed), string(StatusSuspended)}
	AccountTypes     = []string{string(AccountSavings), string(AccountChecking)}
	TransactionTypes = []string{string(TypeDebit), string(TypeCredit)}
)

// RawCustomer is a customer row exactly as read from the source file.
type RawCustomer struct {
	CustomerID  string
	FullName    string
	Email       string
	Country     string
	SignupDate  string
	RiskSegment string
}

// RawAccount is an account row exactly as read from the source file.
type RawAccount struct {
	AccountID   string
	CustomerID  string
	AccountType string
	Currency    string
	Balance     string
	OpenedDate  string
	Status      string
	ClosedDate  string // optional column; empty when the source has none
}

// RawTransaction is a transaction row exactly as read from the source file.
type RawTransaction struct {
	TransactionID   string
	AccountID       string
	TransactionDate string
	Amount          string
	TransactionType string
	MerchantName    string
	Category        string
	IsFraudFlag     string
}

// Customer is a cleaned customer record.
type Customer struct {
	CustomerID  string
	FullName    pgtype.Text
	Email       pgtype.Text
	Country     pgtype.Text
	SignupDate  pgtype.Date
	RiskSegment RiskSegment
}

// Account is a cleaned account record. RecalculatedBalance is derived from
// the transaction table and is zero until balances are recalculated.
type Account struct {
	AccountID           string
	CustomerID          pgtype.Text
	AccountType         AccountType
	Currency            pgtype.Text
	Balance             decimal.NullDecimal
	OpenedDate          pgtype.Date
	Status              AccountStatus
	ClosedDate          pgtype.Date
	RecalculatedBalance decimal.Decimal
}

// Transaction is a cleaned transaction record. HighRiskAlert and
// TransactionSize are derived by the business rules.
type Transaction struct {
	TransactionID   string
	AccountID       pgtype.Text
	TransactionDate pgtype.Date
	Amount          decimal.NullDecimal
	TransactionType TransactionType
	MerchantName    pgtype.Text
	Category        pgtype.Text
	IsFraudFlag     pgtype.Int4
	HighRiskAlert   bool
	TransactionSize TransactionSize
}

// Dataset bundles the three tables of one pipeline run.
type Dataset struct {
	Customers    []Customer
	Accounts     []Account
	Transactions []Transaction
}

// RawDataset bundles the three untyped input tables.
type RawDataset struct {
	Customers    []RawCustomer
	Accounts     []RawAccount
	Transactions []RawTransaction
}

// FieldSpec describes a single CSV column of an entity table.
type FieldSpec struct {
	Name     string // Column header name (matched case-insensitively)
	Required bool   // Column must exist in the CSV header
	Derived  bool   // Produced by the business rules, never read from input
}

// TableInfo contains descriptive information about an entity table.
type TableInfo struct {
	Key        string   // Unique identifier: "customers"
	Label      string   // Display name: "Customers"
	InputFile  string   // Source file name: "customers.csv"
	OutputName string   // Cleaned table name: "customers_clean"
	Columns    []string // Output column names, in order
	UniqueKey  string   // Primary key column
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int
