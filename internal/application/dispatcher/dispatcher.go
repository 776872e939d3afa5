package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/content-workflow/internal/domain/event"
)

// ErrClosed is returned when publishing on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans committed workflow events out to in-process subscribers
type Dispatcher interface {
	// Subscribe registers a named handler for the given event types, or for
	// every event when no type is given
	Subscribe(name string, handler Handler, types ...event.Type)

	// Dispatch runs the matching handlers in subscription order and joins their errors
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the matching handlers on a background goroutine
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close stops accepting events and waits for background deliveries
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu            sync.RWMutex
	subscriptions []Subscription
	logger        Logger

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{logger: nopLogger{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(name string, handler Handler, types ...event.Type) {
	sub := Subscription{Name: name, Types: append([]event.Type(nil), types...), Handler: handler}

	d.mu.Lock()
	d.subscriptions = append(d.subscriptions, sub)
	d.mu.Unlock()

	d.logger.Info("Subscriber registered", "subscriber", name, "event_types", sub.Types)
}

// matching snapshots the subscriptions interested in an event type
func (d *eventDispatcher) matching(eventType event.Type) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Subscription
	for _, sub := range d.subscriptions {
		if sub.Wants(eventType) {
			out = append(out, sub)
		}
	}
	return out
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.deliver(ctx, evt, d.matching(evt.Type))
}

// DispatchAsync delivers on a context detached from the caller's cancellation,
// so a finished request does not cut short its own notifications
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logger.Error("Dropping event, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}

	subs := d.matching(evt.Type)
	if len(subs) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if err := d.deliver(detached, evt, subs); err != nil {
			d.logger.Error("Event delivery failed", "event_type", evt.Type, "event_id", evt.ID, "error", err)
		}
	}()
}

// deliver runs every subscriber even when an earlier one fails
func (d *eventDispatcher) deliver(ctx context.Context, evt *event.Event, subs []Subscription) error {
	var errs []error
	for _, sub := range subs {
		if err := d.run(ctx, evt, sub); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %s: %w", sub.Name, err))
		}
	}
	return errors.Join(errs...)
}

// run invokes one handler, turning a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Subscriber panicked", "subscriber", sub.Name, "event_id", evt.ID, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.Handler(ctx, evt)
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	d.inflight.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
