package socrata

import (
	"net/url"
	"strconv"
	"strings"
)

// Query holds the SoQL parameters of a resource request. Zero fields are omitted.
type Query struct {
	Where  string
	Select []string
	Order  string
	Limit  int
	Offset int
}

// Values encodes the query as $-prefixed SoQL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Order != "" {
		v.Set("$order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("$limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("$offset", strconv.Itoa(q.Offset))
	}
	return v
}
