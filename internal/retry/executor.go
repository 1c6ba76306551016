package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// DelayHinter is implemented by errors that carry a server-requested wait,
// such as a 429 response with Retry-After. A positive hint replaces the
// backoff delay for that attempt, capped at MaxHintDelay.
type DelayHinter interface {
	RetryDelay() time.Duration
}

// MaxHintDelay bounds server-requested waits.
const MaxHintDelay = ilsetl.DefaultRetryMaxDelay

// Executor runs an operation until it succeeds, fails fatally, or the
// strategy runs out of attempts.
//
// Execute is safe for concurrent use. The With* methods return copies.
type Executor struct {
	classifier ilsetl.ErrorClassifier
	strategy   ilsetl.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor panics if classifier or strategy is nil.
func NewExecutor(classifier ilsetl.ErrorClassifier, strategy ilsetl.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy that calls callback before each wait.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// WithLogger returns a copy that reports retries of operation at verbose level.
func (e *Executor) WithLogger(logger ilsetl.Logger, operation string) *Executor {
	return e.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Verbose("%s failed (retry %d in %v): %v", operation, attempt+1, delay.Round(time.Millisecond), err)
	})
}

// Execute returns nil on success, otherwise the last error seen or the
// context error if ctx ends while waiting.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.delayFor(attempt, err)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return waitErr
		}

		err = operation(ctx)
	}
	return err
}

func (e *Executor) delayFor(attempt int, err error) time.Duration {
	var hinter DelayHinter
	if errors.As(err, &hinter) {
		if hint := hinter.RetryDelay(); hint > 0 {
			return min(hint, MaxHintDelay)
		}
	}
	return e.strategy.NextDelay(attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do is Execute for operations that produce a value. The value of the
// successful attempt is returned; on failure the zero value is.
func Do[T any](ctx context.Context, e *Executor, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := operation(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
