package events

import (
	"testing"
	"time"

	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	b.Unsubscribe(ch1)
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.Count())
	}

	b.Unsubscribe(ch2)
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestBroadcasterPublish(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(protocol.ChangeEvent{
		Op:   protocol.OpCreate,
		Path: "src/new.go",
	})

	select {
	case received := <-ch:
		if received.Op != protocol.OpCreate {
			t.Errorf("expected op %s, got %s", protocol.OpCreate, received.Op)
		}
		if received.Path != "src/new.go" {
			t.Errorf("expected path src/new.go, got %s", received.Path)
		}
		if received.Timestamp == 0 {
			t.Error("expected non-zero timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcasterMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(protocol.ChangeEvent{Op: protocol.OpWrite, Path: "shared.txt"})

	for i, ch := range []chan protocol.ChangeEvent{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Path != "shared.txt" {
				t.Errorf("subscriber %d: expected shared.txt, got %s", i, received.Path)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestBroadcasterDropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overrun the channel buffer (64)
	for i := 0; i < 100; i++ {
		b.Publish(protocol.ChangeEvent{Op: protocol.OpCreate, Path: "overflow.txt"})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:
	if count != 64 {
		t.Errorf("expected 64 buffered events, got %d", count)
	}
}

func TestMarshalEvent(t *testing.T) {
	data, err := MarshalEvent(protocol.ChangeEvent{
		Op:        protocol.OpRemove,
		Path:      "gone.txt",
		Timestamp: 1234567890,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty JSON")
	}
}
