package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tvtracker/backend/internal/metrics"
)

// ErrUnavailable is returned while the object store circuit is open.
var ErrUnavailable = errors.New("storage: object store unavailable")

// BreakerConfig tunes the circuit breaker around an ObjectStore.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "object-store",
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// BreakerStore guards an ObjectStore with a circuit breaker.
type BreakerStore struct {
	next ObjectStore
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerStore wraps next.
func NewBreakerStore(next ObjectStore, cfg BreakerConfig) *BreakerStore {
	gauge := metrics.CircuitBreakerState.WithLabelValues(cfg.Name)
	gauge.Set(stateValue(gobreaker.StateClosed))

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			gauge.Set(stateValue(to))
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

// Save forwards to the wrapped store unless the circuit is open.
func (b *BreakerStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	url, err := b.cb.Execute(func() (string, error) {
		return b.next.Save(ctx, key, contentType, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrUnavailable
	}
	return url, err
}

// State reports the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

var _ ObjectStore = (*BreakerStore)(nil)
