package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
)

// ErrDispatcherUnavailable is returned while the breaker is open.
var ErrDispatcherUnavailable = errors.New("notification dispatcher unavailable")

// BreakerSettings configures BreakerDispatcher.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// BreakerDispatcher stops calling a failing dispatcher after a run of
// consecutive failures so a dead broker does not slow every transition.
type BreakerDispatcher struct {
	next Dispatcher
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerDispatcher(next Dispatcher, s BreakerSettings) *BreakerDispatcher {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Notification breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerDispatcher{next: next, cb: cb}
}

func (d *BreakerDispatcher) Dispatch(ctx context.Context, userID string, kind domain.NotificationKind, payload map[string]string) error {
	_, err := d.cb.Execute(func() (interface{}, error) {
		return nil, d.next.Dispatch(ctx, userID, kind, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrDispatcherUnavailable, err)
	}
	return err
}

// State reports the breaker state, exposed for health output.
func (d *BreakerDispatcher) State() gobreaker.State {
	return d.cb.State()
}
