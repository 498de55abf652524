package events

import (
	"testing"
)

func TestBusSubscribeEmit(t *testing.T) {
	t.Run("Handler receives typed payload", func(t *testing.T) {
		bus := NewBus()

		var got ContentUpdated
		bus.Subscribe(TopicContentUpdated, func(e Event) {
			if p, ok := e.Payload.(ContentUpdated); ok {
				got = p
			}
		})

		bus.Emit(TopicContentUpdated, ContentUpdated{
			ProjectID: "p1",
			Key:       "hero_title_p1",
			NewValue:  "Title",
			Immediate: true,
		})

		if got.ProjectID != "p1" || got.Key != "hero_title_p1" {
			t.Errorf("Expected payload delivered, got %+v", got)
		}
		if !got.Immediate {
			t.Error("Expected immediate flag preserved")
		}
	})

	t.Run("Dispatch in registration order", func(t *testing.T) {
		bus := NewBus()

		var order []int
		for i := 1; i <= 3; i++ {
			i := i
			bus.Subscribe(TopicPublishCompleted, func(Event) {
				order = append(order, i)
			})
		}

		bus.Emit(TopicPublishCompleted, PublishCompleted{ProjectID: "p1"})

		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("Expected dispatch order 1,2,3, got %v", order)
		}
	})

	t.Run("Topics are isolated", func(t *testing.T) {
		bus := NewBus()

		called := false
		bus.Subscribe(TopicCacheCleared, func(Event) { called = true })

		bus.Emit(TopicContentUpdated, ContentUpdated{ProjectID: "p1"})

		if called {
			t.Error("Expected handler on another topic to stay silent")
		}
	})

	t.Run("Late subscriber misses earlier events", func(t *testing.T) {
		bus := NewBus()

		bus.Emit(TopicCaptionsUpdated, CaptionsUpdated{ProjectID: "p1"})

		called := false
		bus.Subscribe(TopicCaptionsUpdated, func(Event) { called = true })

		if called {
			t.Error("Expected no replay for late subscriber")
		}
	})
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	sub := bus.Subscribe(TopicContentUpdated, func(Event) { calls++ })

	bus.Emit(TopicContentUpdated, ContentUpdated{ProjectID: "p1"})
	sub.Unsubscribe()
	bus.Emit(TopicContentUpdated, ContentUpdated{ProjectID: "p1"})

	if calls != 1 {
		t.Errorf("Expected exactly one delivery, got %d", calls)
	}

	if bus.SubscriberCount(TopicContentUpdated) != 0 {
		t.Errorf("Expected zero subscribers after unsubscribe, got %d", bus.SubscriberCount(TopicContentUpdated))
	}

	// Double unsubscribe must be safe.
	sub.Unsubscribe()
}

func TestBusSubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()

	nested := false
	bus.Subscribe(TopicContentUpdated, func(Event) {
		bus.Subscribe(TopicContentUpdated, func(Event) { nested = true })
	})

	bus.Emit(TopicContentUpdated, ContentUpdated{ProjectID: "p1"})
	if nested {
		t.Error("Expected handler added during dispatch to wait for the next emit")
	}

	bus.Emit(TopicContentUpdated, ContentUpdated{ProjectID: "p1"})
	if !nested {
		t.Error("Expected handler added during dispatch to run on the next emit")
	}
}
