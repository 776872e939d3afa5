package dispatcher

import (
	"context"

	"github.com/garyjia/content-workflow/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription binds a named handler to the event types it wants.
// No types means every event.
type Subscription struct {
	Name    string
	Types   []event.Type
	Handler Handler
}

// Wants reports whether the subscription receives events of the given type
func (s Subscription) Wants(eventType event.Type) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == eventType {
			return true
		}
	}
	return false
}

// NotificationIntent is the recipient metadata a completed transition asks a notifier to act on
type NotificationIntent struct {
	EntityID     int64
	Transition   string
	FromState    string
	ToState      string
	NotifyRoles  []string
	NotifyAuthor bool
	AuthorID     int64
}

// IntentFromEvent extracts notification metadata from a transition.completed event.
// ok is false for other event types or when nobody is to be notified.
func IntentFromEvent(evt *event.Event) (NotificationIntent, bool) {
	if evt == nil || evt.Type != event.TypeTransitionCompleted {
		return NotificationIntent{}, false
	}

	intent := NotificationIntent{
		EntityID:     evt.EntityID,
		Transition:   evt.GetPayloadString(event.KeyTransition),
		FromState:    evt.GetPayloadString(event.KeyFromState),
		ToState:      evt.GetPayloadString(event.KeyToState),
		NotifyRoles:  evt.GetPayloadStrings(event.KeyNotifyRoles),
		NotifyAuthor: evt.GetPayloadBool(event.KeyNotifyAuthor),
		AuthorID:     evt.GetPayloadInt(event.KeyAuthorID),
	}

	return intent, len(intent.NotifyRoles) > 0 || intent.NotifyAuthor
}

// NotificationLogHandler records the notification intent of completed transitions.
// Delivery belongs to whatever consumes the log.
func NotificationLogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		intent, ok := IntentFromEvent(evt)
		if !ok {
			return nil
		}

		logger.Info("Notification requested",
			"entity_id", intent.EntityID,
			"transition", intent.Transition,
			"from_state", intent.FromState,
			"to_state", intent.ToState,
			"notify_roles", intent.NotifyRoles,
			"notify_author", intent.NotifyAuthor,
			"author_id", intent.AuthorID,
		)
		return nil
	}
}
