package sales

import (
	"strings"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// BuildWhereClause turns filters into a SoQL where-clause.
//
// Each entry with at least one value becomes `field IN ('v1','v2')` and the
// fragments are joined with AND. If a "query" entry is present its values are
// returned verbatim and every other entry is ignored.
func BuildWhereClause(filters ilsetl.Filters) string {
	if raw, ok := filters.RawQuery(); ok {
		return raw
	}

	fragments := make([]string, 0, len(filters))
	for _, f := range filters {
		if len(f.Values) == 0 {
			continue
		}
		quoted := make([]string, len(f.Values))
		for i, v := range f.Values {
			quoted[i] = quoteLiteral(v)
		}
		fragments = append(fragments, f.Field+" IN ("+strings.Join(quoted, ",")+")")
	}
	return strings.Join(fragments, " AND ")
}

// quoteLiteral wraps v in single quotes, doubling any embedded quote.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
