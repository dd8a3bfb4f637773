package core

// convert.go provides the field normalizers: scalar transforms from raw CSV
// cells to typed, nullable values.
//
// These functions handle the messy reality of exported banking data:
//   - Multiple date formats (US, EU, ISO, timestamps)
//   - Currency symbols and thousand separators in amounts
//   - Mixed case and stray whitespace in enumerated columns
//   - Excel formula prefixes (="value")
//
// None of them fail: anything that cannot be parsed becomes null
// (Valid=false), so a malformed cell never aborts a run.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// maxExponent bounds the decimal exponent of a parsed amount to the float64
// range. Larger magnitudes are null: arithmetic on a value like 1e20000000
// has to materialise every digit.
const maxExponent = 308

// emailRegex is the format check applied to normalized customer emails.
var emailRegex = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// Date layouts, tried in order. Four-digit years first since they are
// unambiguous; two-digit years follow Go's convention (69-99 → 19xx).
var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// nullTokens are textual spellings of a missing value produced by common
// exporters. They normalize to null rather than to a literal string.
var nullTokens = map[string]bool{
	"nan":  true,
	"nat":  true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// NormalizeString trims surrounding whitespace and lowercases s so that
// enumeration matching is case- and whitespace-insensitive.
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ToText converts a string to pgtype.Text.
// Returns invalid if the string is empty, only whitespace, or a null token.
func ToText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" || nullTokens[strings.ToLower(s)] {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ParseDate converts a string to a pgtype.Date.
// Timestamps are truncated to their calendar day. Impossible dates such as
// 31-02-2020 are null.
func ParseDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	for _, layouts := range [][]string{timestampLayouts, fourDigitYearLayouts, twoDigitYearLayouts} {
		for _, layout := range layouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return pgtype.Date{Time: truncateDay(t), Valid: true}
			}
		}
	}

	return pgtype.Date{Valid: false}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseCurrency converts a string to a nullable decimal.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ParseCurrency(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(
		"$", "",
		"£", "", // Pound
		"€", "", // Euro
		",", "",
		" ", "",
	).Replace(s)

	if isNegative {
		if strings.HasPrefix(s, "-") {
			return decimal.NullDecimal{}
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseFlag converts a 0/1 style numeric cell to pgtype.Int4.
// Any integral number is kept; fractions and non-numeric text are null.
func ParseFlag(s string) pgtype.Int4 {
	n := ParseCurrency(s)
	if !n.Valid || !n.Decimal.IsInteger() {
		return pgtype.Int4{Valid: false}
	}
	i := n.Decimal.IntPart()
	if i > math.MaxInt32 || i < math.MinInt32 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ValidEmail normalizes s and returns it when it matches the email format,
// or null otherwise.
func ValidEmail(s string) pgtype.Text {
	s = NormalizeString(s)
	if !emailRegex.MatchString(s) {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// FormatDate renders a date as YYYY-MM-DD, or "" when null.
func FormatDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// FormatDecimal renders a nullable decimal, or "" when null.
func FormatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// FormatText renders a nullable string, or "" when null.
func FormatText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// FormatInt renders a nullable integer, or "" when null.
func FormatInt(i pgtype.Int4) string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(int64(i.Int32), 10)
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Cell returns the cleaned value of the named column, or "" when the column
// is absent from the header or the row is short.
func (idx HeaderIndex) Cell(row []string, name string) string {
	pos, ok := idx[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
