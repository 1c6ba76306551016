package sales

import "github.com/ilsetl/ilsetl/pkg/ilsetl"

type queryOptions struct {
	store    bool
	limit    int
	offset   int
	order    string
	columns  []string
	allPages bool
}

func defaultQueryOptions() queryOptions {
	return queryOptions{limit: ilsetl.DefaultPageSize}
}

// QueryOption adjusts a single Query call.
type QueryOption func(*queryOptions)

// StoreResults appends the records to the API's buffer instead of returning them.
func StoreResults() QueryOption {
	return func(o *queryOptions) { o.store = true }
}

// WithLimit sets the page size. Values below 1 keep the default.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithOffset skips the first n matching records.
func WithOffset(n int) QueryOption {
	return func(o *queryOptions) { o.offset = n }
}

// WithOrder sets the SoQL $order expression.
func WithOrder(expr string) QueryOption {
	return func(o *queryOptions) { o.order = expr }
}

// WithSelect restricts the returned columns.
func WithSelect(columns ...string) QueryOption {
	return func(o *queryOptions) { o.columns = columns }
}

// AllPages keeps requesting pages until a short page comes back.
func AllPages() QueryOption {
	return func(o *queryOptions) { o.allPages = true }
}
