// Package notify hands notification intents to whatever delivers them.
// The engine decides that a message is due and what it says; delivery happens elsewhere.
package notify

import (
	"context"
	"time"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
)

// Dispatcher is fire-and-forget from the caller's point of view: an error is
// logged and counted but never undoes the transition that produced the intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, kind domain.NotificationKind, payload map[string]string) error
}

// Intent is the wire form of a dispatched notification.
type Intent struct {
	UserID    string            `json:"user_id"`
	Kind      string            `json:"kind"`
	Payload   map[string]string `json:"payload"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// LogDispatcher only writes the intent to the log. Used in development and
// when no broker is configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, userID string, kind domain.NotificationKind, payload map[string]string) error {
	logger.InfoContext(ctx, "Notification dispatched", "userID", userID, "kind", string(kind), "payload", payload)
	return nil
}
