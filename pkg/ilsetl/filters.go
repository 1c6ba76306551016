package ilsetl

import (
	"fmt"
	"sort"
	"strings"
)

// Filter restricts one field to a set of accepted values.
type Filter struct {
	Field  string
	Values []string
}

// Filters is an ordered filter mapping. Each entry becomes one IN (...)
// fragment of the where-clause, in slice order.
type Filters []Filter

// FiltersFromMap converts a field -> values map into Filters ordered by field name.
func FiltersFromMap(m map[string][]string) Filters {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	filters := make(Filters, 0, len(fields))
	for _, field := range fields {
		filters = append(filters, Filter{Field: field, Values: m[field]})
	}
	return filters
}

// ParseFilter parses "field=v1,v2" into a Filter.
//
// Values are split on commas and trimmed; empty values are dropped. Write
// "\," for a comma that belongs to a value ("store_name=Hy-Vee\, Inc").
// A "query=..." filter keeps everything after the first "=" verbatim as a
// single value.
func ParseFilter(s string) (Filter, error) {
	field, values, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return Filter{}, fmt.Errorf("invalid filter %q, expected field=value[,value...]: %w", s, ErrInvalidConfig)
	}

	if field == RawQueryKey {
		return Filter{Field: field, Values: []string{values}}, nil
	}

	var vals []string
	for _, v := range splitValues(values) {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return Filter{Field: field, Values: vals}, nil
}

// splitValues splits on commas not preceded by a backslash and unescapes "\,".
func splitValues(s string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == ',':
			cur.WriteByte(',')
			i++
		case s[i] == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}

// With returns a copy of f with an additional entry appended.
func (f Filters) With(field string, values ...string) Filters {
	out := make(Filters, len(f), len(f)+1)
	copy(out, f)
	return append(out, Filter{Field: field, Values: values})
}

// RawQuery returns the literal where-clause of the first "query" entry.
// An entry built in code with several values has them joined with ",".
func (f Filters) RawQuery() (string, bool) {
	for _, filter := range f {
		if filter.Field == RawQueryKey {
			return strings.Join(filter.Values, ","), true
		}
	}
	return "", false
}
