// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case got := <-sub.Channel():
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func expectNone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message on %v: %v", got.Topic, got.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "dev", "0", "value"))

	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "hello", false))

	got := recv(t, sub)
	if got.Payload.(string) != "hello" {
		t.Errorf("payload = %v, want hello", got.Payload)
	}
	if !got.Topic.Equal(T("power", "dev", "0", "value")) {
		t.Errorf("topic = %v", got.Topic)
	}
}

func TestExactTopicIsolation(t *testing.T) {
	b := NewBus(4, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "dev", "0", "value"))
	conn.Publish(conn.NewMessage(T("power", "dev", "1", "value"), 42, false))

	expectNone(t, sub)
}

func TestSingleLevelWildcard(t *testing.T) {
	b := NewBus(4, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "dev", "+", "value"))

	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "v0", false))
	conn.Publish(conn.NewMessage(T("power", "dev", "3", "value"), "v3", false))
	conn.Publish(conn.NewMessage(T("power", "dev", "0", "error"), "boom", false))

	if got := recv(t, sub); got.Payload.(string) != "v0" {
		t.Errorf("first = %v, want v0", got.Payload)
	}
	if got := recv(t, sub); got.Payload.(string) != "v3" {
		t.Errorf("second = %v, want v3", got.Payload)
	}
	expectNone(t, sub)
}

func TestMultiLevelWildcard(t *testing.T) {
	b := NewBus(8, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "#"))

	conn.Publish(conn.NewMessage(T("power"), "root", false))
	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "deep", false))
	conn.Publish(conn.NewMessage(T("thermal", "dev", "0"), "other", false))

	if got := recv(t, sub); got.Payload.(string) != "root" {
		t.Errorf("first = %v, want root", got.Payload)
	}
	if got := recv(t, sub); got.Payload.(string) != "deep" {
		t.Errorf("second = %v, want deep", got.Payload)
	}
	expectNone(t, sub)
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2, "+", "#")
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "persist", true))

	// Late subscriber still sees the retained value.
	late := b.NewConnection("late")
	sub := late.Subscribe(T("power", "dev", "0", "value"))

	got := recv(t, sub)
	if got.Payload.(string) != "persist" {
		t.Errorf("payload = %v, want persist", got.Payload)
	}
	if !got.Retained {
		t.Error("expected retained flag set")
	}
}

func TestRetainedClearedByNilPayload(t *testing.T) {
	b := NewBus(2, "+", "#")
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "stale", true))
	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), nil, true))

	late := b.NewConnection("late")
	sub := late.Subscribe(T("power", "dev", "0", "value"))
	expectNone(t, sub)
}

func TestRetainedReplayThroughWildcard(t *testing.T) {
	b := NewBus(8, "+", "#")
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), "d0", true))
	conn.Publish(conn.NewMessage(T("power", "dev", "1", "value"), "d1", true))

	late := b.NewConnection("late")
	sub := late.Subscribe(T("power", "dev", "+", "value"))

	seen := map[string]bool{}
	seen[recv(t, sub).Payload.(string)] = true
	seen[recv(t, sub).Payload.(string)] = true
	if !seen["d0"] || !seen["d1"] {
		t.Errorf("retained replay missed a device: %v", seen)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "control", "read_now"))
	sub.Unsubscribe()

	conn.Publish(conn.NewMessage(T("power", "control", "read_now"), nil, false))

	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2, "+", "#")
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("power", "dev", "0", "value"))

	for i := 1; i <= 4; i++ {
		conn.Publish(conn.NewMessage(T("power", "dev", "0", "value"), i, false))
	}

	// Queue length 2: only the newest two survive.
	if got := recv(t, sub); got.Payload.(int) != 3 {
		t.Errorf("first = %v, want 3", got.Payload)
	}
	if got := recv(t, sub); got.Payload.(int) != 4 {
		t.Errorf("second = %v, want 4", got.Payload)
	}
	expectNone(t, sub)
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4, "+", "#")
	conn := b.NewConnection("test")

	s1 := conn.Subscribe(T("power", "dev", "0", "value"))
	s2 := conn.Subscribe(T("power", "control", "#"))
	conn.Disconnect()

	if _, ok := <-s1.Channel(); ok {
		t.Error("s1 still open after disconnect")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Error("s2 still open after disconnect")
	}
}
