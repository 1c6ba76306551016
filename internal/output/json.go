package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

var _ Formatter = (*JSON)(nil)

type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (j *JSON) Name() string {
	return "json"
}

// Format writes an array of objects whose keys follow the header order.
func (j *JSON) Format(result Result, w io.Writer) error {
	objects := make([]ilsetl.Record, len(result.Rows))
	for i, row := range result.Rows {
		var r ilsetl.Record
		for k, h := range result.Header {
			var v any
			if k < len(row) {
				v = row[k]
			}
			r.Set(h, v)
		}
		objects[i] = r
	}

	out, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}
