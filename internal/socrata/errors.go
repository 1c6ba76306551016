package socrata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// APIError is a non-2xx answer from the API.
// It matches ilsetl.ErrAPIRequest, and 401/403 also match ilsetl.ErrUnauthorized.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	// RetryAfter is the wait the server asked for, zero when it gave none.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "socrata: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// HTTPStatus lets the retry classifier see the status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// RetryDelay lets the retry executor honor Retry-After.
func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ilsetl.ErrAPIRequest:
		return true
	case ilsetl.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// errorBody covers both error shapes the API returns.
type errorBody struct {
	Code      string `json:"code"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		if apiErr.Code == "" {
			apiErr.Code = parsed.ErrorCode
		}
		apiErr.Message = parsed.Message
	}
	if apiErr.Message == "" && apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
