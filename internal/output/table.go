package output

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var _ Formatter = (*Table)(nil)

type Table struct{}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Name() string {
	return "table"
}

func (t *Table) Format(result Result, w io.Writer) error {
	header := make(table.Row, len(result.Header))
	for i, h := range result.Header {
		header[i] = h
	}

	tw := table.NewWriter()
	tw.AppendHeader(header)
	for _, row := range result.Rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		tw.AppendRow(cells)
	}
	tw.SetStyle(table.StyleLight)
	tw.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}
