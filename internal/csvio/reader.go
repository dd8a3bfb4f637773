// Package csvio reads the raw input tables from CSV files and writes the
// cleaned tables and quality report back to a directory.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/bankquality/internal/core"
)

// ErrEmptyFile is returned when an input file has no header row.
var ErrEmptyFile = errors.New("empty file")

// cancelCheckInterval is how many rows are read between context checks.
const cancelCheckInterval = 4096

// newReader wraps r so that a UTF-8 byte order mark is dropped and invalid
// byte sequences become U+FFFD, then returns a CSV reader that tolerates
// ragged rows and stray quotes.
func newReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadTable decodes every data row of r with def. The header row is checked
// against def's required columns; blank rows are skipped. T must be the raw
// record type def decodes to.
func ReadTable[T any](ctx context.Context, r io.Reader, def core.TableDefinition) ([]T, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := core.ValidateHeaders(header, def.FieldSpecs)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0)
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isEmptyRow(row) {
			continue
		}

		rec, ok := def.Decode(row, idx).(T)
		if !ok {
			return nil, fmt.Errorf("table %s does not decode to %T", def.Info.Key, rec)
		}
		out = append(out, rec)
	}

	return out, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadFile opens path and reads it with ReadTable.
func ReadFile[T any](ctx context.Context, path string, def core.TableDefinition) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadTable[T](ctx, f, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// DirSource loads customers.csv, accounts.csv and transactions.csv from Dir.
type DirSource struct {
	Dir string
}

// Load reads the three input files concurrently. The first failure cancels
// the remaining reads.
func (s DirSource) Load(ctx context.Context) (core.RawDataset, error) {
	var ds core.RawDataset
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		ds.Customers, err = loadTable[core.RawCustomer](ctx, s.Dir, core.TableCustomers)
		return err
	})
	g.Go(func() (err error) {
		ds.Accounts, err = loadTable[core.RawAccount](ctx, s.Dir, core.TableAccounts)
		return err
	})
	g.Go(func() (err error) {
		ds.Transactions, err = loadTable[core.RawTransaction](ctx, s.Dir, core.TableTransactions)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.RawDataset{}, err
	}
	return ds, nil
}

func loadTable[T any](ctx context.Context, dir, key string) ([]T, error) {
	def := core.MustGet(key)
	rows, err := ReadFile[T](ctx, filepath.Join(dir, def.Info.InputFile), def)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return rows, nil
}
