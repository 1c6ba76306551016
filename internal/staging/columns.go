package staging

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Columns returns the union of all record keys in first-seen order.
func Columns(records []ilsetl.Record) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, r := range records {
		for _, key := range r.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// rowValues lays out r along columns. Missing keys become "", JSON null becomes NULL.
func rowValues(r ilsetl.Record, columns []string) ([]any, error) {
	values := make([]any, len(columns))
	for i, col := range columns {
		v, ok := r.Get(col)
		if !ok {
			values[i] = ""
			continue
		}
		text, err := toText(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		values[i] = text
	}
	return values, nil
}

// toText renders v for a TEXT column. A nil result is stored as NULL.
func toText(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	case map[string]any, []any, ilsetl.Record:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return fmt.Sprint(x), nil
	}
}
