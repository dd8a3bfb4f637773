package core

import (
	"fmt"
	"sort"
	"sync"
)

// Table keys of the three entity tables.
const (
	TableCustomers    = "customers"
	TableAccounts     = "accounts"
	TableTransactions = "transactions"
)

// DecodeFunc builds a raw record (RawCustomer, RawAccount or RawTransaction)
// from a CSV row.
type DecodeFunc func(row []string, headerIdx HeaderIndex) any

// EncodeFunc renders a cleaned record as an output row.
// The returned slice must follow TableInfo.Columns.
type EncodeFunc func(rec any) []string

// CopyRowFunc converts a cleaned record to a row of values for the COPY protocol.
// The returned slice must contain values in the same order as CopyColumns.
// Each value should be a native Go type or pgtype (e.g., pgtype.Text, pgtype.Numeric).
type CopyRowFunc func(rec any) []any

// TableDefinition contains everything needed to read, write and persist a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
	Decode     DecodeFunc
	Encode     EncodeFunc

	// CreateSQL creates the cleaned table if it does not exist.
	CreateSQL string

	// CopyColumns must list database column names in the order that CopyRow
	// returns values.
	CopyColumns []string
	CopyRow     CopyRowFunc
}

// SupportsCopy returns true if the table has COPY protocol support configured.
func (t TableDefinition) SupportsCopy() bool {
	return len(t.CopyColumns) > 0 && t.CopyRow != nil
}

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}

	registry[def.Info.Key] = def
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// MustGet returns a table definition by key and panics when it is missing,
// which only happens when the tables package was not imported.
func MustGet(key string) TableDefinition {
	def, ok := Get(key)
	if !ok {
		panic(fmt.Sprintf("table not registered: %s (import internal/core/tables)", key))
	}
	return def
}

// datasetOrder is the order tables are loaded, cleaned and persisted in.
var datasetOrder = []string{TableCustomers, TableAccounts, TableTransactions}

// All returns the registered tables in dataset order. Tables outside the
// dataset follow, sorted by key.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]TableDefinition, 0, len(registry))
	seen := make(map[string]bool, len(datasetOrder))
	for _, key := range datasetOrder {
		if def, ok := registry[key]; ok {
			out = append(out, def)
			seen[key] = true
		}
	}

	var rest []string
	for key := range registry {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		out = append(out, registry[key])
	}
	return out
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
