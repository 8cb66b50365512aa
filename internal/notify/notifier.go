// Package notify dispatches bet lifecycle events to external channels.
// Delivery is best-effort: a sender failure is logged and never fails the
// state change that produced the event.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/koensakamoto/friendbet/internal/models"
)

// Sender is one delivery channel for lifecycle events.
type Sender interface {
	Name() string
	Send(ctx context.Context, event string, payload any) error
}

// Notifier fans events out to all registered senders, optionally filtered by
// event type. An empty filter passes everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *zap.Logger
}

func New(senders []Sender, events []string, logger *zap.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{senders: senders, events: allowed, logger: logger}
}

func (n *Notifier) BetResolved(ctx context.Context, ev BetResolved) {
	n.dispatch(ctx, models.EventBetResolved, ev)
}

func (n *Notifier) BetCancelled(ctx context.Context, ev BetCancelled) {
	n.dispatch(ctx, models.EventBetCancelled, ev)
}

func (n *Notifier) BetAwaitingResolution(ctx context.Context, ev BetAwaitingResolution) {
	n.dispatch(ctx, models.EventBetAwaitingResolution, ev)
}

func (n *Notifier) dispatch(ctx context.Context, event string, payload any) {
	if n == nil {
		return
	}
	if len(n.events) > 0 && !n.events[event] {
		return
	}
	for _, s := range n.senders {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, event, payload); err != nil && n.logger != nil {
			n.logger.Warn("notify send failed",
				zap.String("sender", s.Name()),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}
