package powermon

import (
	"context"
	"errors"
	"testing"
	"time"

	"powermon-go/bus"
	"powermon-go/drivers/ina226"
	"powermon-go/internal/sim"
)

func newBench(t *testing.T, addrs ...uint16) (*sim.Bus, *ina226.Monitor) {
	t.Helper()
	b := sim.NewBus()
	for _, a := range addrs {
		b.AddChip(a)
	}
	mon := ina226.New(b, ina226.Config{})
	if _, err := mon.Begin(16, 100_000, ina226.ScanAll); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return b, mon
}

func recv(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case got := <-sub.Channel():
		return got
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func startService(t *testing.T, mon *ina226.Monitor, period time.Duration) (*bus.Bus, *bus.Connection) {
	t.Helper()
	mb := bus.NewBus(8, "+", "#")
	svcConn := mb.NewConnection("powermon")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := New(mon, Config{Period: period}).Start(ctx, svcConn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return mb, mb.NewConnection("test")
}

func TestReadNowPublishesEveryDevice(t *testing.T) {
	b, mon := newBench(t, 0x40, 0x41)
	b.Chip(0x40).SetRaw(ina226.RegBusVoltage, 800)

	_, conn := startService(t, mon, time.Hour)
	sub := conn.Subscribe(bus.T("power", "dev", "+", "value"))

	conn.Publish(conn.NewMessage(bus.T("power", "control", "read_now"), nil, false))

	seen := map[string]map[string]any{}
	for i := 0; i < 2; i++ {
		msg := recv(t, sub)
		seen[msg.Topic[2]] = msg.Payload.(map[string]any)
	}
	if len(seen) != 2 {
		t.Fatalf("devices seen = %v, want 2", len(seen))
	}
	if got := seen["0"]["bus_mv"].(uint16); got != 1000 {
		t.Errorf("bus_mv = %v, want 1000", got)
	}
}

func TestPeriodicSampling(t *testing.T) {
	_, mon := newBench(t, 0x40)
	_, conn := startService(t, mon, 10*time.Millisecond)
	sub := conn.Subscribe(bus.T("power", "dev", "0", "value"))

	msg := recv(t, sub)
	if _, ok := msg.Payload.(map[string]any)["current_ua"]; !ok {
		t.Errorf("payload missing current_ua: %v", msg.Payload)
	}
	if !msg.Retained {
		t.Error("value message should be retained")
	}
}

func TestSetRateRejectsNonPositive(t *testing.T) {
	_, mon := newBench(t, 0x40)
	_, conn := startService(t, mon, time.Hour)
	sub := conn.Subscribe(bus.T("power", "control", "error"))

	conn.Publish(conn.NewMessage(bus.T("power", "control", "set_rate"),
		map[string]any{"period_ms": -5}, false))

	msg := recv(t, sub)
	if got := msg.Payload.(map[string]any)["code"].(string); got != "invalid_params" {
		t.Errorf("code = %q, want invalid_params", got)
	}
}

func TestSetRateSpeedsUpSampling(t *testing.T) {
	_, mon := newBench(t, 0x40)
	_, conn := startService(t, mon, time.Hour)
	sub := conn.Subscribe(bus.T("power", "dev", "0", "value"))

	conn.Publish(conn.NewMessage(bus.T("power", "control", "set_rate"),
		map[string]any{"period_ms": 10}, false))

	recv(t, sub)
}

func TestReadFailurePublishesError(t *testing.T) {
	b, mon := newBench(t, 0x40)
	_, conn := startService(t, mon, time.Hour)
	sub := conn.Subscribe(bus.T("power", "dev", "0", "error"))

	b.FailWith = errors.New("bus wedged")
	conn.Publish(conn.NewMessage(bus.T("power", "control", "read_now"), nil, false))

	msg := recv(t, sub)
	if got := msg.Payload.(map[string]any)["code"].(string); got != "tx_failure" {
		t.Errorf("code = %q, want tx_failure", got)
	}
}
