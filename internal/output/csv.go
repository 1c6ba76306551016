package output

import (
	"encoding/csv"
	"io"
)

var _ Formatter = (*CSV)(nil)

type CSV struct{}

func NewCSV() *CSV {
	return &CSV{}
}

func (c *CSV) Name() string {
	return "csv"
}

func (c *CSV) Format(result Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Header); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cellText(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
