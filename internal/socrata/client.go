package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/internal/retry"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// AppTokenHeader carries the application token. Requests without one are
// subject to the API's shared throttling pool.
const AppTokenHeader = "X-App-Token"

// Config configures a Client.
type Config struct {
	// Domain is the portal host, e.g. data.iowa.gov. A value with a scheme
	// (http://localhost:8080) is used as the base URL unchanged.
	Domain string

	// BaseURL overrides https://{Domain}. Used by tests.
	BaseURL string

	AppToken   string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string

	// RetryDelay is the first backoff delay. Defaults to 500ms.
	RetryDelay time.Duration

	// HTTPClient replaces the default client. Timeout is ignored when set.
	HTTPClient *http.Client

	Logger ilsetl.Logger
}

// Client issues resource queries. Safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	appToken  string
	userAgent string
	http      *http.Client
	executor  *retry.Executor
	logger    ilsetl.Logger
}

// New validates cfg and creates a Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		if cfg.Domain == "" {
			return nil, fmt.Errorf("socrata domain is required: %w", ilsetl.ErrInvalidConfig)
		}
		raw = "https://" + cfg.Domain
		if strings.Contains(cfg.Domain, "://") {
			raw = cfg.Domain
		}
	}
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid socrata base URL %q: %w", raw, ilsetl.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative: %w", ilsetl.ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = ilsetl.DefaultAPITimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 500 * time.Millisecond
	}
	strategy := retry.NewExponentialBackoff(cfg.MaxRetries,
		retry.WithInitialDelay(retryDelay),
		retry.WithMaxDelay(ilsetl.DefaultRetryMaxDelay),
	)

	return &Client{
		baseURL:   base,
		appToken:  cfg.AppToken,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		executor:  retry.NewExecutor(retry.NewHTTPErrorClassifier(), strategy).WithLogger(logger, "sales API request"),
		logger:    logger,
	}, nil
}

// ResourceURL returns the endpoint for dataset with q encoded.
func (c *Client) ResourceURL(dataset string, q Query) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/resource/" + url.PathEscape(dataset) + ".json"
	u.RawQuery = q.Values().Encode()
	return u.String()
}

// Get fetches the rows of dataset matching q.
// Non-2xx answers are returned as *APIError.
func (c *Client) Get(ctx context.Context, dataset string, q Query) ([]ilsetl.Record, error) {
	if dataset == "" {
		return nil, fmt.Errorf("dataset identifier is required: %w", ilsetl.ErrInvalidConfig)
	}

	endpoint := c.ResourceURL(dataset, q)
	c.logger.Verbose("GET %s", endpoint)

	return retry.Do(ctx, c.executor, func(ctx context.Context) ([]ilsetl.Record, error) {
		return c.get(ctx, endpoint)
	})
}

func (c *Client) get(ctx context.Context, endpoint string) ([]ilsetl.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set(AppTokenHeader, c.appToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sales API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(resp, body)
	}

	var records []ilsetl.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode sales API response: %w", err)
	}
	if records == nil {
		records = []ilsetl.Record{}
	}
	return records, nil
}
