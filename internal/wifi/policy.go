package wifi

import (
	"time"

	"github.com/cenkalti/backoff"
)

// ReconnectPolicy controls the automatic reconnect issued after every
// station disconnect.
//
// The zero value reconnects immediately and forever. That keeps an
// unattended device trying, at the price of a tight loop against an access
// point that is gone.
type ReconnectPolicy struct {
	// Interval is the delay before a reconnect. With Exponential it is the
	// first delay.
	Interval time.Duration
	// Exponential grows the delay after each failed attempt.
	Exponential bool
	// MaxInterval caps exponential growth (0 = backoff library default).
	MaxInterval time.Duration
	// MaxAttempts stops reconnecting after this many consecutive attempts
	// without getting an address (0 = unlimited).
	MaxAttempts int
}

const defaultExponentialInterval = 500 * time.Millisecond

// BackOff builds the backoff.BackOff that implements the policy.
func (p ReconnectPolicy) BackOff() backoff.BackOff {
	var b backoff.BackOff
	switch {
	case p.Exponential:
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Interval
		if exp.InitialInterval <= 0 {
			exp.InitialInterval = defaultExponentialInterval
		}
		if p.MaxInterval > 0 {
			exp.MaxInterval = p.MaxInterval
		}
		// Attempts are bounded by MaxAttempts, never by elapsed time
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	case p.Interval > 0:
		b = backoff.NewConstantBackOff(p.Interval)
	default:
		b = &backoff.ZeroBackOff{}
	}

	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}
	return b
}
