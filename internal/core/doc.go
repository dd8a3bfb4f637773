// Package core is the validation and rule-enforcement engine for the banking
// dataset (customers, accounts, transactions).
//
// # Architecture
//
// Data flows one way through pure, whole-table transforms. Each stage takes
// its inputs by value and returns a new table:
//
//   - Field normalizers ([ParseDate], [ParseCurrency], [NormalizeString]):
//     scalar conversions where failure is null, never an error.
//   - Record cleaners ([CleanCustomers], [CleanAccounts], [CleanTransactions]):
//     deduplicate on the primary key, normalize fields, null out-of-domain
//     enumerations and malformed emails.
//   - Business rules ([EnforceTransactionSign],
//     [RemoveTransactionsAfterAccountClosure], [RecalculateAccountBalance],
//     [FlagHighRiskLargeTransactions], [ClassifyTransactionSize]).
//   - Validators ([AccountCustomerOrphans], [TransactionAccountOrphans],
//     [SignTypeViolations], [FutureTransactions], ...): return the offending
//     subset and never modify their input.
//   - Quality reporting ([BuildQualityReport]).
//
// [Process] sequences all of the above for one run.
//
// # Nulls
//
// Nullable scalars are pgtype values and decimal.NullDecimal; enumerations
// use their zero value "" for null. Every predicate treats a null operand as
// not matching, so a null foreign key is an orphan and a null amount is never
// an outlier.
//
// # Table Registry
//
// The column schema of each entity table is registered at init time by the
// tables subpackage using [Register]. Each [TableDefinition] knows how to
// decode a source row, encode a cleaned row, and copy it into PostgreSQL:
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "customers", InputFile: "customers.csv"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "customer_id", Required: true},
//	        {Name: "signup_date", Required: true},
//	    },
//	    Decode: decodeCustomer,
//	    Encode: encodeCustomer,
//	})
//
// # Error Handling
//
// The engine itself has no error returns. Errors from the surrounding
// plumbing (files, database, HTTP) are mapped to user-facing messages with
// stable codes using [MapError]:
//
//   - DB001-DB005: Database errors (connections, timeouts, constraints)
//   - VAL001-VAL003: Input schema errors (missing columns, malformed CSV)
//   - FILE001-FILE004: File errors (missing, empty, encoding, permissions)
//   - RUN001-RUN004: Run errors (busy, cancelled, timed out, no run yet)
package core
