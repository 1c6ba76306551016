package ilsetl

import "time"

// ErrorClassifier decides whether a failed API request or connection
// attempt is worth repeating.
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// BackoffStrategy schedules repeated attempts.
type BackoffStrategy interface {
	// NextDelay is the wait before retry number attempt, counted from zero.
	NextDelay(attempt int) time.Duration

	// MaxAttempts caps the number of retries. 0 disables retrying and a
	// negative value retries until the context ends.
	MaxAttempts() int
}
