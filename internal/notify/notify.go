// Package notify tells interested parties that the customization
// collection changed.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventTokensChanged is the event type sent when customizations change.
const EventTokensChanged = "tokensChanged"

// Notifier is told after customizations are persisted.
type Notifier interface {
	TokensChanged(ctx context.Context)
}

// Event is the payload delivered to subscribers.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// LogNotifier records change events in the log.
type LogNotifier struct {
	Logger *zap.Logger
}

// TokensChanged implements Notifier.
func (n LogNotifier) TokensChanged(context.Context) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("token customizations changed")
}

// Multi fans one event out to several notifiers in order.
type Multi []Notifier

// TokensChanged implements Notifier.
func (m Multi) TokensChanged(ctx context.Context) {
	for _, n := range m {
		if n != nil {
			n.TokensChanged(ctx)
		}
	}
}

// Nop discards events.
type Nop struct{}

// TokensChanged implements Notifier.
func (Nop) TokensChanged(context.Context) {}
