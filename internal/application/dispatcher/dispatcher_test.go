package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newEvent() *event.Event {
	return event.NewEvent(event.TypeStatusChanged, 1, 2, nil)
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Subscribe(event.TypeStatusChanged, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeStatusChanged, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeRequestSubmitted, "other", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	if err := d.Dispatch(context.Background(), newEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(order) != "[first second]" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestDispatch_JoinsErrorsAndKeepsGoing(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	errBoom := errors.New("boom")
	var ran atomic.Int32

	d.Subscribe(event.TypeStatusChanged, "failing", func(ctx context.Context, evt *event.Event) error {
		ran.Add(1)
		return errBoom
	})
	d.Subscribe(event.TypeStatusChanged, "panicking", func(ctx context.Context, evt *event.Event) error {
		ran.Add(1)
		panic("bad handler")
	})
	d.Subscribe(event.TypeStatusChanged, "ok", func(ctx context.Context, evt *event.Event) error {
		ran.Add(1)
		return nil
	})

	err := d.Dispatch(context.Background(), newEvent())
	if !errors.Is(err, errBoom) {
		t.Errorf("expected joined error to contain errBoom, got %v", err)
	}
	if ran.Load() != 3 {
		t.Errorf("expected all handlers to run, ran %d", ran.Load())
	}
	if logger.ErrorCount() != 2 {
		t.Errorf("expected 2 logged errors, got %d", logger.ErrorCount())
	}
}

func TestSubscribe_DefaultName(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeStatusChanged, "", func(ctx context.Context, evt *event.Event) error { return nil })

	handlers := d.Handlers(event.TypeStatusChanged)
	if len(handlers) != 1 || handlers[0].Name != "handler-0" {
		t.Errorf("unexpected handlers: %+v", handlers)
	}
}

func TestDispatchAsync_SurvivesCallerCancellation(t *testing.T) {
	d := NewDispatcher()
	release := make(chan struct{})
	var sawCancel atomic.Bool
	var done atomic.Bool

	d.Subscribe(event.TypeStatusChanged, "slow", func(ctx context.Context, evt *event.Event) error {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		done.Store(true)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, newEvent())
	cancel()
	close(release)

	if err := d.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !done.Load() {
		t.Fatal("Close returned before the async handler finished")
	}
	if sawCancel.Load() {
		t.Error("async handler observed the caller's cancellation")
	}
}

func TestDispatchAsync_AppliesTimeout(t *testing.T) {
	d := NewDispatcher(WithAsyncTimeout(10 * time.Millisecond))
	var deadlineHit atomic.Bool

	d.Subscribe(event.TypeStatusChanged, "slow", func(ctx context.Context, evt *event.Event) error {
		<-ctx.Done()
		deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})

	d.DispatchAsync(context.Background(), newEvent())
	_ = d.Close()

	if !deadlineHit.Load() {
		t.Error("expected handler context to hit its deadline")
	}
}

func TestClose(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	if err := d.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}
	if err := d.Dispatch(context.Background(), newEvent()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Dispatch, got %v", err)
	}

	d.DispatchAsync(context.Background(), newEvent())
	if logger.ErrorCount() != 1 {
		t.Errorf("expected async dispatch after close to be logged, got %d errors", logger.ErrorCount())
	}
}
