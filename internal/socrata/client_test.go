package socrata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL, AppToken: "token-123"}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestClient_Get(t *testing.T) {
	var gotPath, gotWhere, gotLimit, gotOffset, gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWhere = r.URL.Query().Get("$where")
		gotLimit = r.URL.Query().Get("$limit")
		gotOffset = r.URL.Query().Get("$offset")
		gotToken = r.Header.Get(AppTokenHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"John","age":"30"},{"zip":null,"name":"Jane","sale_dollars":12.5}]`))
	})

	records, err := c.Get(context.Background(), "m3tr-qhgy", Query{Where: "county IN ('POLK')", Limit: 50, Offset: 100})
	require.NoError(t, err)

	assert.Equal(t, "/resource/m3tr-qhgy.json", gotPath)
	assert.Equal(t, "county IN ('POLK')", gotWhere)
	assert.Equal(t, "50", gotLimit)
	assert.Equal(t, "100", gotOffset)
	assert.Equal(t, "token-123", gotToken)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"name", "age"}, records[0].Keys())
	assert.Equal(t, []string{"zip", "name", "sale_dollars"}, records[1].Keys())

	zip, ok := records[1].Get("zip")
	assert.True(t, ok)
	assert.Nil(t, zip)
}

func TestClient_Get_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	records, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestClient_Get_NoTokenHeaderWhenUnset(t *testing.T) {
	var present bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[http.CanonicalHeaderKey(AppTokenHeader)]
		_, _ = w.Write([]byte(`[]`))
	}, func(cfg *Config) { cfg.AppToken = "" })

	_, err := c.Get(context.Background(), "abcd-1234", Query{})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestClient_Get_APIErrors(t *testing.T) {
	tests := []struct {
		name             string
		status           int
		body             string
		wantCode         string
		wantMessage      string
		wantUnauthorized bool
	}{
		{
			name:        "malformed query",
			status:      http.StatusBadRequest,
			body:        `{"code":"query.compiler.malformed","error":true,"message":"Could not parse SoQL query"}`,
			wantCode:    "query.compiler.malformed",
			wantMessage: "Could not parse SoQL query",
		},
		{
			name:             "bad token",
			status:           http.StatusForbidden,
			body:             `{"errorCode":"authentication_required","message":"Invalid app_token specified"}`,
			wantCode:         "authentication_required",
			wantMessage:      "Invalid app_token specified",
			wantUnauthorized: true,
		},
		{
			name:             "unauthorized plain body",
			status:           http.StatusUnauthorized,
			body:             "nope",
			wantMessage:      "nope",
			wantUnauthorized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.ErrorIs(t, err, ilsetl.ErrAPIRequest)
			assert.Equal(t, tt.wantUnauthorized, errors.Is(err, ilsetl.ErrUnauthorized))
			assert.Equal(t, ilsetl.ExitAPIRequestFailed, ilsetl.ExitCodeForError(err))
		})
	}
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"a":"1"}]`))
	}, func(cfg *Config) {
		cfg.MaxRetries = 3
		cfg.RetryDelay = time.Millisecond
	})

	records, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Get_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
	assert.ErrorIs(t, err, ilsetl.ErrAPIRequest)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Get_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode sales API response")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)

	_, err = New(Config{Domain: "data.iowa.gov", MaxRetries: -1})
	assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)

	c, err := New(Config{Domain: "data.iowa.gov"})
	require.NoError(t, err)
	assert.Equal(t, "https://data.iowa.gov/resource/m3tr-qhgy.json?%24limit=10", c.ResourceURL("m3tr-qhgy", Query{Limit: 10}))
}

func TestQuery_Values(t *testing.T) {
	v := Query{
		Where:  "city IN ('AMES')",
		Select: []string{"name", "sale_dollars"},
		Order:  "date DESC",
		Limit:  5,
	}.Values()

	assert.Equal(t, "city IN ('AMES')", v.Get("$where"))
	assert.Equal(t, "name,sale_dollars", v.Get("$select"))
	assert.Equal(t, "date DESC", v.Get("$order"))
	assert.Equal(t, "5", v.Get("$limit"))
	assert.False(t, v.Has("$offset"))
}

func TestNew_DomainWithScheme(t *testing.T) {
	c, err := New(Config{Domain: "http://localhost:8080"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/resource/m3tr-qhgy.json", c.ResourceURL("m3tr-qhgy", Query{}))
}

func TestClient_Get_RetryAfterIsRecorded(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, func(cfg *Config) {
		cfg.MaxRetries = 1
		cfg.RetryDelay = time.Millisecond
	})

	records, err := c.Get(context.Background(), "m3tr-qhgy", Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIError_RetryAfter(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "7")

	apiErr := newAPIError(resp, []byte(`{"code":"throttled","message":"slow down"}`))
	assert.Equal(t, 7*time.Second, apiErr.RetryDelay())
	assert.Equal(t, "throttled", apiErr.Code)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-3", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRetryAfter(tt.in, now), "Retry-After %q", tt.in)
	}
}
