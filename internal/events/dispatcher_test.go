package events

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventItemStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventItemStatusChanged, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.ItemID)
		return nil
	})
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventItemStatusChanged, ItemID: "b-1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second:b-1" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestActorFromNil(t *testing.T) {
	if got := ActorFrom(nil); got != (Actor{}) {
		t.Fatalf("ActorFrom(nil) = %+v", got)
	}
}

func TestDispatcherSurvivesPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	delivered := false
	d.Subscribe(EventItemCreated, func(context.Context, Event) error { panic("bad handler") })
	d.Subscribe(EventItemCreated, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventItemCreated}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !delivered {
		t.Fatal("handler after the panicking one was skipped")
	}
}

func TestDispatcherStopsOnCancelledContext(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	d.Subscribe(EventItemCreated, func(context.Context, Event) error {
		t.Fatal("handler ran after cancellation")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Publish(ctx, Event{Type: EventItemCreated}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish() error = %v, want context.Canceled", err)
	}
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventItemCreated, domain.KindBug, "b-1", &domain.User{ID: "u-1", Username: "quinn"}, nil)
	b := NewEvent(EventItemCreated, domain.KindBug, "b-1", nil, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("event ids = %q, %q", a.ID, b.ID)
	}
	if a.Timestamp.IsZero() || a.Actor.Username != "quinn" || b.Actor != (Actor{}) {
		t.Fatalf("event = %+v", a)
	}
}
