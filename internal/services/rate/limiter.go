package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	minuteWindow = time.Minute
	tenSecWindow = 10 * time.Second
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// TooFastError is returned by callers that reject an action because a window
// is exhausted.
type TooFastError struct {
	Scope         string
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast: " + e.Scope
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

// Limiter enforces two fixed windows (one minute and ten seconds) per subject
// within a named scope such as "purchase" or "tip".
type Limiter struct {
	store     WindowStore
	scope     string
	perMinute int
	per10Sec  int
}

func NewLimiter(store WindowStore, scope string, perMinute, per10Sec int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if per10Sec < 0 {
		per10Sec = 0
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}

	return &Limiter{
		store:     store,
		scope:     scope,
		perMinute: perMinute,
		per10Sec:  per10Sec,
	}
}

func (l *Limiter) Scope() string {
	return l.scope
}

// Allow counts one action for subject and reports whether it fits in both
// windows. When it does not, retryAfterSec is the wait until the longest
// exhausted window resets.
func (l *Limiter) Allow(ctx context.Context, subject string) (int64, bool, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return 0, false, fmt.Errorf("rate subject is required")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perMinute > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, l.minuteKey(subject), minuteWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perMinute) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.per10Sec > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, l.tenSecKey(subject), tenSecWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.per10Sec) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}

	return 0, true, nil
}

// RetryAfter inspects the windows without counting an action.
func (l *Limiter) RetryAfter(ctx context.Context, subject string) (int64, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return 0, fmt.Errorf("rate subject is required")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perMinute > 0 {
		count, ttl, err := l.store.WindowState(ctx, l.minuteKey(subject))
		if err != nil {
			return 0, err
		}
		if count >= int64(l.perMinute) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.per10Sec > 0 {
		count, ttl, err := l.store.WindowState(ctx, l.tenSecKey(subject))
		if err != nil {
			return 0, err
		}
		if count >= int64(l.per10Sec) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

// Check is Allow folded into an error: nil when allowed, TooFastError when
// a window is exhausted.
func (l *Limiter) Check(ctx context.Context, subject string) error {
	retryAfter, allowed, err := l.Allow(ctx, subject)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", l.scope, err)
	}
	if !allowed {
		return TooFastError{Scope: l.scope, RetryAfterSec: retryAfter}
	}
	return nil
}

func (l *Limiter) minuteKey(subject string) string {
	return "rate:" + l.scope + ":min:" + subject
}

func (l *Limiter) tenSecKey(subject string) string {
	return "rate:" + l.scope + ":10s:" + subject
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
