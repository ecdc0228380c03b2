package api

import (
	"net/http"
	"time"
)

// RetryPolicy decides whether a failed attempt is retried. The zero value
// never retries. Sleep is injectable so tests can run with a fake clock.
type RetryPolicy struct {
	MaxAttempts     int
	Delay           time.Duration
	RetryableStatus func(status int) bool
	Sleep           func(d time.Duration)
}

// DefaultRetryPolicy retries exactly once, after a fixed 1-second delay, and
// only for 5xx responses. Client errors (4xx) and transport failures are
// never retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     2,
		Delay:           time.Second,
		RetryableStatus: func(status int) bool { return status >= http.StatusInternalServerError },
	}
}

// ShouldRetry reports whether another attempt is allowed after receiving the
// given status on the given 1-based attempt number.
func (p RetryPolicy) ShouldRetry(attempt, status int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if p.RetryableStatus == nil {
		return false
	}
	return p.RetryableStatus(status)
}

func (p RetryPolicy) wait() {
	if p.Delay <= 0 {
		return
	}
	if p.Sleep != nil {
		p.Sleep(p.Delay)
		return
	}
	time.Sleep(p.Delay)
}
