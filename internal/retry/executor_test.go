package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilsetl/ilsetl/internal/logging"
)

var (
	errTransient = &pgconn.PgError{Code: "08006", Message: "connection failure"}
	errFatal     = &pgconn.PgError{Code: "42601", Message: "syntax error"}
)

// failingOp fails with errs in order, then succeeds.
type failingOp struct {
	errs  []error
	calls int
}

func (o *failingOp) run(context.Context) error {
	o.calls++
	if o.calls <= len(o.errs) {
		return o.errs[o.calls-1]
	}
	return nil
}

func repeat(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func fastBackoff(maxAttempts int) *ExponentialBackoff {
	return NewExponentialBackoff(maxAttempts, WithInitialDelay(time.Millisecond), WithJitter(0))
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	op := &failingOp{}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(3)).Execute(context.Background(), op.run)

	require.NoError(t, err)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_SuccessAfterRetries(t *testing.T) {
	op := &failingOp{errs: repeat(errTransient, 3)}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5)).Execute(context.Background(), op.run)

	require.NoError(t, err)
	assert.Equal(t, 4, op.calls)
}

func TestExecutor_FatalErrorNotRetried(t *testing.T) {
	op := &failingOp{errs: []error{errFatal}}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5)).Execute(context.Background(), op.run)

	assert.Same(t, errFatal, err)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_TransientThenFatal(t *testing.T) {
	op := &failingOp{errs: []error{errTransient, errTransient, errFatal}}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5)).Execute(context.Background(), op.run)

	assert.Same(t, errFatal, err)
	assert.Equal(t, 3, op.calls)
}

func TestExecutor_ExhaustsRetries(t *testing.T) {
	op := &failingOp{errs: repeat(errTransient, 100)}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(3)).Execute(context.Background(), op.run)

	assert.Same(t, errTransient, err)
	assert.Equal(t, 4, op.calls, "one initial attempt plus three retries")
}

func TestExecutor_NoRetry(t *testing.T) {
	op := &failingOp{errs: repeat(errTransient, 100)}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), NoRetry()).Execute(context.Background(), op.run)

	assert.Error(t, err)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_ContextCancelledDuringWait(t *testing.T) {
	strategy := NewExponentialBackoff(10, WithInitialDelay(time.Second), WithJitter(0))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	op := &failingOp{errs: repeat(errTransient, 100)}
	err := NewExecutor(NewPostgreSQLErrorClassifier(), strategy).Execute(ctx, op.run)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, op.calls)
}

func TestExecutor_OnRetry(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	base := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(3))
	executor := base.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		assert.Error(t, err)
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	})

	op := &failingOp{errs: repeat(errTransient, 3)}
	require.NoError(t, executor.Execute(context.Background(), op.run))

	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
	assert.Nil(t, base.onRetry, "WithOnRetry must not modify the receiver")
}

func TestExecutor_WithLogger(t *testing.T) {
	executor := NewExecutor(NewHTTPErrorClassifier(), fastBackoff(2)).
		WithLogger(logging.NewNullLogger(), "sales query")

	op := &failingOp{errs: []error{statusErr(503)}}
	require.NoError(t, executor.Execute(context.Background(), op.run))
	assert.Equal(t, 2, op.calls)
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewExecutor(nil, NoRetry()) })
	assert.Panics(t, func() { NewExecutor(NewHTTPErrorClassifier(), nil) })
}

func TestExecutor_PreservesErrorIdentity(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewExecutor(NewHTTPErrorClassifier(), fastBackoff(3)).
		Execute(context.Background(), func(context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

type hintErr struct {
	statusErr
	wait time.Duration
}

func (e hintErr) RetryDelay() time.Duration { return e.wait }

func TestExecutor_UsesServerDelayHint(t *testing.T) {
	var delays []time.Duration
	executor := NewExecutor(NewHTTPErrorClassifier(), fastBackoff(3)).
		WithOnRetry(func(_ int, _ error, delay time.Duration) { delays = append(delays, delay) })

	op := &failingOp{errs: []error{
		hintErr{statusErr: 429, wait: 3 * time.Millisecond},
		hintErr{statusErr: 429},
	}}
	require.NoError(t, executor.Execute(context.Background(), op.run))

	// A zero hint falls back to the backoff schedule.
	assert.Equal(t, []time.Duration{3 * time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestExecutor_CapsServerDelayHint(t *testing.T) {
	e := NewExecutor(NewHTTPErrorClassifier(), fastBackoff(1))
	assert.Equal(t, MaxHintDelay, e.delayFor(0, hintErr{statusErr: 429, wait: 24 * time.Hour}))
}

func TestDo_ReturnsValueOfSuccessfulAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), NewExecutor(NewHTTPErrorClassifier(), fastBackoff(3)),
		func(context.Context) ([]string, error) {
			calls++
			if calls == 1 {
				return []string{"partial"}, statusErr(503)
			}
			return []string{"a", "b"}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroValueOnFailure(t *testing.T) {
	got, err := Do(context.Background(), NewExecutor(NewHTTPErrorClassifier(), NoRetry()),
		func(context.Context) (int, error) { return 7, statusErr(400) })

	assert.Error(t, err)
	assert.Zero(t, got)
}
