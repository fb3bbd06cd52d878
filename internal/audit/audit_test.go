package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func testEvent(eventType string, success bool) Event {
	return Event{
		Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		EventType: eventType,
		UserID:    "u1",
		ProfileID: "p1",
		Success:   success,
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), testEvent("login.password", true))
	d.Close()

	select {
	case got := <-sink.Events():
		if got.EventType != "login.password" || !got.Success {
			t.Fatalf("unexpected event %+v", got)
		}
	default:
		t.Fatal("event not delivered before Close returned")
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}

	// Nil dispatchers accept and drop everything.
	d.Emit(context.Background(), testEvent("logout", true))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-block })
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), testEvent("session.check", true))
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}

	close(block)
	d.Close()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), testEvent("wallet.unlock", true))
	}
	d.Close()

	delivered := 0
	for {
		select {
		case <-sink.Events():
			delivered++
		default:
			if delivered != 5 {
				t.Fatalf("delivered = %d, want 5", delivered)
			}
			return
		}
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), testEvent("profile.switch", false))

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not one JSON line: %v", err)
	}
	if decoded.EventType != "profile.switch" || decoded.Success {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

type sinkFunc func(ctx context.Context, event Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
