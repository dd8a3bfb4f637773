package tables

import "github.com/JonMunkholm/bankquality/internal/core"

func registerCustomers() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableCustomers,
			Label:      "Customers",
			InputFile:  "customers.csv",
			OutputName: "customers_clean",
			UniqueKey:  "customer_id",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "customer_id", Required: true},
			{Name: "full_name", Required: true},
			{Name: "email", Required: true},
			{Name: "country", Required: true},
			{Name: "signup_date", Required: true},
			{Name: "risk_segment", Required: true},
		},
		Decode: func(row []string, idx core.HeaderIndex) any {
			return core.RawCustomer{
				CustomerID:  idx.Cell(row, "customer_id"),
				FullName:    idx.Cell(row, "full_name"),
				Email:       idx.Cell(row, "email"),
				Country:     idx.Cell(row, "country"),
				SignupDate:  idx.Cell(row, "signup_date"),
				RiskSegment: idx.Cell(row, "risk_segment"),
			}
		},
		Encode: func(rec any) []string {
			c := rec.(core.Customer)
			return []string{
				c.CustomerID,
				core.FormatText(c.FullName),
				core.FormatText(c.Email),
				core.FormatText(c.Country),
				core.FormatDate(c.SignupDate),
				string(c.RiskSegment),
			}
		},
		CreateSQL: `CREATE TABLE IF NOT EXISTS customers_clean (
	customer_id  TEXT PRIMARY KEY,
	full_name    TEXT,
	email        TEXT,
	country      TEXT,
	signup_date  DATE,
	risk_segment TEXT CHECK (risk_segment IN ('low', 'medium', 'high'))
)`,
		CopyColumns: []string{"customer_id", "full_name", "email", "country", "signup_date", "risk_segment"},
		CopyRow: func(rec any) []any {
			c := rec.(core.Customer)
			return []any{
				c.CustomerID,
				c.FullName,
				c.Email,
				c.Country,
				c.SignupDate,
				enumText(c.RiskSegment),
			}
		},
	})
}
