// Package sales queries the Iowa Liquor Sales dataset with field filters.
package sales

import (
	"context"
	"fmt"
	"sync"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/internal/socrata"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Fetcher retrieves dataset rows. *socrata.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, dataset string, q socrata.Query) ([]ilsetl.Record, error)
}

// pagingOrder gives paged requests a stable order, as the API requires.
const pagingOrder = ":id"

// API is the sales query client. Safe for concurrent use.
type API struct {
	fetcher Fetcher
	dataset string
	logger  ilsetl.Logger

	mu      sync.Mutex
	results []ilsetl.Record
}

// Option configures an API.
type Option func(*API)

// WithDataset overrides the dataset identifier.
func WithDataset(id string) Option {
	return func(a *API) { a.dataset = id }
}

// WithLogger sets the logger for query and result-size messages.
func WithLogger(logger ilsetl.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// New creates an API on top of fetcher.
// Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *API {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	a := &API{
		fetcher: fetcher,
		dataset: ilsetl.DefaultDataset,
		logger:  logging.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds an API backed by a socrata.Client.
func NewFromConfig(cfg ilsetl.APIConfig, logger ilsetl.Logger, userAgent string) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := socrata.New(socrata.Config{
		Domain:     cfg.Domain,
		AppToken:   cfg.AppToken,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  userAgent,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	opts := []Option{WithDataset(cfg.Dataset)}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return New(client, opts...), nil
}

// Dataset returns the dataset identifier queried by a.
func (a *API) Dataset() string {
	return a.dataset
}

// Query fetches the records matching filters.
//
// With StoreResults the records are appended to the buffer and Query
// returns nil, nil; retrieve them with BufferedResults.
func (a *API) Query(ctx context.Context, filters ilsetl.Filters, opts ...QueryOption) ([]ilsetl.Record, error) {
	o := defaultQueryOptions()
	for _, opt := range opts {
		opt(&o)
	}

	where := BuildWhereClause(filters)
	a.logger.Verbose("Query filters: %v", filters)
	a.logger.Verbose("Query where-clause: %s", where)

	q := socrata.Query{
		Where:  where,
		Select: o.columns,
		Order:  o.order,
		Limit:  o.limit,
		Offset: o.offset,
	}
	if o.allPages && q.Order == "" {
		q.Order = pagingOrder
	}

	var records []ilsetl.Record
	for {
		page, err := a.fetcher.Get(ctx, a.dataset, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", a.dataset, err)
		}
		records = append(records, page...)

		if !o.allPages || len(page) < q.Limit {
			break
		}
		q.Offset += len(page)
		a.logger.Verbose("Fetched %d records so far", len(records))
	}

	if records == nil {
		records = []ilsetl.Record{}
	}
	a.logger.Verbose("Size of result set: %d", len(records))

	if o.store {
		a.mu.Lock()
		a.results = append(a.results, records...)
		a.mu.Unlock()
		return nil, nil
	}
	return records, nil
}

// BufferedResults returns the stored records and clears the buffer.
// The result is never nil.
func (a *API) BufferedResults() []ilsetl.Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := a.results
	a.results = nil
	a.logger.Verbose("Returning %d buffered records", len(results))

	if results == nil {
		return []ilsetl.Record{}
	}
	return results
}
