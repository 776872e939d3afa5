package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu      sync.Mutex
	infos   []string
	errors  []string
	entries []map[string]interface{}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.record(msg, "info", keysAndValues)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.record(msg, "error", keysAndValues)
}

func (m *mockLogger) record(msg, level string, keysAndValues []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if level == "error" {
		m.errors = append(m.errors, msg)
	} else {
		m.infos = append(m.infos, msg)
	}

	entry := map[string]interface{}{"msg": msg, "level": level}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entry[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	m.entries = append(m.entries, entry)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) Find(msg string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func newCompleted() *event.Event {
	return event.NewTransitionCompleted(entity.WorkflowTypeContent, 42, 3, 9,
		&entity.Transition{ID: 7, Name: "Publish", NotifyRoles: []string{"editor"}, NotifyAuthor: true},
		"review", "published")
}

func TestSubscribe(t *testing.T) {
	t.Run("typed subscriber receives matching events only", func(t *testing.T) {
		d := NewDispatcher()
		var called atomic.Int32

		d.Subscribe("completed", func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		}, event.TypeTransitionCompleted)

		if err := d.Dispatch(context.Background(), newCompleted()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeApprovalRecorded, entity.WorkflowTypeContent, 42, nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if called.Load() != 1 {
			t.Errorf("expected handler to be called once, got %d", called.Load())
		}
	})

	t.Run("untyped subscriber receives everything in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.Subscribe("audit", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "audit:"+evt.Type.String())
			return nil
		})
		d.Subscribe("approvals", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "approvals")
			return nil
		}, event.TypeApprovalRecorded, event.TypeApprovalDecided)

		_ = d.Dispatch(context.Background(), newCompleted())
		_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeApprovalRecorded, entity.WorkflowTypeContent, 42, nil))

		want := []string{"audit:transition.completed", "audit:approval.recorded", "approvals"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Errorf("handler order = %v, want %v", order, want)
		}
	})
}

func TestSubscription_Wants(t *testing.T) {
	tests := []struct {
		name  string
		types []event.Type
		in    event.Type
		want  bool
	}{
		{"no types wants all", nil, event.TypeApprovalDecided, true},
		{"listed type", []event.Type{event.TypeTransitionCompleted}, event.TypeTransitionCompleted, true},
		{"unlisted type", []event.Type{event.TypeTransitionCompleted}, event.TypeApprovalRecorded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Subscription{Types: tt.types}).Wants(tt.in); got != tt.want {
				t.Errorf("Wants(%s) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs every subscriber and joins errors", func(t *testing.T) {
		d := NewDispatcher()
		expectedErr := errors.New("handler failed")
		var secondCalled bool

		d.Subscribe("failing", func(ctx context.Context, evt *event.Event) error {
			return expectedErr
		})
		d.Subscribe("healthy", func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		err := d.Dispatch(context.Background(), newCompleted())
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected wrapped handler error, got %v", err)
		}
		if !secondCalled {
			t.Error("a failing subscriber must not starve the next one")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe("panicky", func(ctx context.Context, evt *event.Event) error {
			panic("boom")
		})

		if err := d.Dispatch(context.Background(), newCompleted()); err == nil {
			t.Fatal("expected error from panicking handler")
		}
		if logger.Find("Subscriber panicked") == nil {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("rejects events after close", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if err := d.Dispatch(context.Background(), newCompleted()); !errors.Is(err, ErrClosed) {
			t.Errorf("Dispatch() after close error = %v, want %v", err, ErrClosed)
		}
		if err := d.Close(); !errors.Is(err, ErrClosed) {
			t.Errorf("second Close() error = %v, want %v", err, ErrClosed)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("close waits for handlers", func(t *testing.T) {
		d := NewDispatcher()
		var done atomic.Int32

		for i := 0; i < 3; i++ {
			d.Subscribe(fmt.Sprintf("slow-%d", i), func(ctx context.Context, evt *event.Event) error {
				time.Sleep(10 * time.Millisecond)
				done.Add(1)
				return nil
			})
		}

		d.DispatchAsync(context.Background(), newCompleted())
		if err := d.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}

		if done.Load() != 3 {
			t.Errorf("expected 3 handlers to finish before Close returned, got %d", done.Load())
		}
	})

	t.Run("handlers outlive caller cancellation", func(t *testing.T) {
		d := NewDispatcher()
		var ctxErr atomic.Value

		d.Subscribe("slow", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			ctxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, newCompleted())
		cancel()
		_ = d.Close()

		if got := ctxErr.Load(); got != "<nil>" {
			t.Errorf("async handler context error = %v, want <nil>", got)
		}
	})

	t.Run("logs handler errors", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe("failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("failed")
		}, event.TypeTransitionCompleted)

		d.DispatchAsync(context.Background(), newCompleted())
		_ = d.Close()

		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
		}
	})
}

func TestNotificationLogHandler(t *testing.T) {
	logger := &mockLogger{}
	handler := NotificationLogHandler(logger)

	if err := handler(context.Background(), newCompleted()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := logger.Find("Notification requested")
	if entry == nil {
		t.Fatal("expected notification intent to be logged")
	}
	if entry["to_state"] != "published" || entry["author_id"] != int64(3) || entry["notify_author"] != true {
		t.Errorf("unexpected log entry: %v", entry)
	}

	silent := event.NewTransitionCompleted(entity.WorkflowTypeContent, 42, 3, 9,
		&entity.Transition{ID: 8, Name: "Archive"}, "published", "archived")
	if _, ok := IntentFromEvent(silent); ok {
		t.Error("transition without recipients should not produce an intent")
	}
	if _, ok := IntentFromEvent(event.NewEvent(event.TypeApprovalRecorded, entity.WorkflowTypeContent, 1, nil)); ok {
		t.Error("non-transition events should not produce an intent")
	}
}
