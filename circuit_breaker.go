package merklekv

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps a request-response exchange. Satisfied by
// *gobreaker.CircuitBreaker[string].
type CircuitBreaker interface {
	Execute(fn func() (string, error)) (string, error)
	State() gobreaker.State
}

// NewCircuitBreakerConfig returns a constructor suitable for
// Config.NewCircuitBreaker. The breaker opens once at least three requests
// have been seen and 60% of them failed, which keeps a flapping server from
// being hammered by retries.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[string](settings)
	}
}
