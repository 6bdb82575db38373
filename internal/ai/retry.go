package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// policy bounds the attempts of one Generate call.
type policy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

var (
	hostedPolicy = policy{attempts: 3, base: 500 * time.Millisecond, max: 4 * time.Second}
	localPolicy  = policy{attempts: 2, base: 200 * time.Millisecond, max: time.Second}
)

// retryable marks an attempt error worth another try. A positive wait
// replaces the computed backoff.
type retryable struct {
	err  error
	wait time.Duration
}

func (r *retryable) Error() string { return r.err.Error() }

func (r *retryable) Unwrap() error { return r.err }

// do calls attempt until it succeeds, fails with a non-retryable error or the
// attempts run out. Backoff doubles from base with jitter and is capped at max.
func (p policy) do(ctx context.Context, attempt func(context.Context) error) error {
	delay := p.base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attempt(ctx)
		var r *retryable
		if !errors.As(err, &r) {
			return err
		}
		if n >= p.attempts {
			return r.err
		}
		wait := r.wait
		if wait <= 0 {
			wait = min(withJitter(delay), p.max)
			delay *= 2
		}
		if !sleepCtx(ctx, wait) {
			return r.err
		}
	}
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// withJitter returns d scaled by a random factor in [0.8, 1.2).
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Truncate(time.Second)
		}
	}
	return 0
}
