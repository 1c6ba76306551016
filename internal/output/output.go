// Package output renders fetched records and query rows as table, CSV or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/ilsetl/ilsetl/internal/staging"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Result is a header plus rows laid out along it.
type Result struct {
	Header []string
	Rows   [][]any
}

// FromRecords lays records out along the union of their keys.
// A record missing a column gets nil in that cell.
func FromRecords(records []ilsetl.Record) Result {
	header := staging.Columns(records)
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(header))
		for j, col := range header {
			row[j], _ = r.Get(col)
		}
		rows[i] = row
	}
	return Result{Header: header, Rows: rows}
}

// FromRows pairs database rows with a header.
func FromRows(header []string, rows []ilsetl.Row) Result {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return Result{Header: header, Rows: out}
}

// Formatter writes a Result in one output format.
type Formatter interface {
	Name() string
	Format(result Result, w io.Writer) error
}

var formatters = map[string]Formatter{
	"table": NewTable(),
	"csv":   NewCSV(),
	"json":  NewJSON(),
}

// Names lists the supported format names.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the formatter registered under name.
func ByName(name string) (Formatter, error) {
	f, ok := formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (supported: %s): %w",
			name, strings.Join(Names(), ", "), ilsetl.ErrInvalidConfig)
	}
	return f, nil
}

// DefaultName picks "table" for a terminal and "json" for anything else.
func DefaultName(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

// cellText renders a value for table and CSV cells.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
