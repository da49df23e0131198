package events

import (
	"context"
	"testing"
)

func TestMemoryBusDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	var got []Event
	cancelA, err := bus.Subscribe(ctx, func(ctx context.Context, ev Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelA()

	var gotB []Event
	cancelB, err := bus.Subscribe(ctx, func(ctx context.Context, ev Event) {
		gotB = append(gotB, ev)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev := Event{Kind: KindUpdated, Key: "cart", Origin: "ctx-a"}
	if err := bus.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 || got[0] != ev {
		t.Fatalf("subscriber A got %v", got)
	}
	if len(gotB) != 1 || gotB[0] != ev {
		t.Fatalf("subscriber B got %v", gotB)
	}

	cancelB()
	if err := bus.Publish(ctx, Event{Kind: KindCleared, Key: "cart"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(gotB) != 1 {
		t.Fatalf("cancelled subscriber should not receive, got %v", gotB)
	}
	if len(got) != 2 || got[1].Kind != KindCleared {
		t.Fatalf("live subscriber missed event, got %v", got)
	}
}
