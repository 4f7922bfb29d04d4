package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFactor:   0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	}, nil)

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 4, calls, "initial attempt plus MaxRetries")
}

func TestDoShouldRetryStops(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return fatal
	}, &Options{
		ShouldRetry: func(err error) bool { return !errors.Is(err, fatal) },
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), fastConfig(), func() error {
		return errors.New("transient")
	}, &Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		t.Fatal("fn must not run after cancellation")
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := &Config{
		MaxRetries:     5,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
	}
	err := Do(ctx, cfg, func() error {
		return errors.New("transient")
	}, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoNilConfigUsesDefaults(t *testing.T) {
	err := Do(context.Background(), nil, func() error { return nil }, nil)
	assert.NoError(t, err)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(0, 100*time.Millisecond, time.Second, 0))
	assert.Equal(t, 200*time.Millisecond, Backoff(1, 100*time.Millisecond, time.Second, 0))
	assert.Equal(t, 400*time.Millisecond, Backoff(2, 100*time.Millisecond, time.Second, 0))

	// Capped at the maximum.
	assert.Equal(t, time.Second, Backoff(10, 100*time.Millisecond, time.Second, 0))

	// Jitter only ever extends the delay, within the factor.
	for i := 0; i < 100; i++ {
		b := Backoff(0, 100*time.Millisecond, time.Second, 0.25)
		assert.GreaterOrEqual(t, b, 100*time.Millisecond)
		assert.LessOrEqual(t, b, 125*time.Millisecond)
	}
}
