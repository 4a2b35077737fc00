package transport

import "time"

// RetryPolicy is a bounded retry with a fixed delay between attempts. There
// is no backoff and no jitter.
type RetryPolicy struct {
	// Sleep waits between attempts; nil means time.Sleep. Tests swap it to
	// count delays without waiting.
	Sleep       func(time.Duration)
	Delay       time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy is three attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second}
}

// Do calls attempt with 1-based attempt numbers until it returns nil or the
// attempts are used up. It returns the number of attempts made and the last
// error. A policy with MaxAttempts < 1 still makes one attempt.
func (p RetryPolicy) Do(attempt func(n int) error) (int, error) {
	limit := p.MaxAttempts
	if limit < 1 {
		limit = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for n := 1; n <= limit; n++ {
		if err = attempt(n); err == nil {
			return n, nil
		}
		if n < limit {
			sleep(p.Delay)
		}
	}
	return limit, err
}
