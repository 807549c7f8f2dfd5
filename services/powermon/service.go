// Package powermon samples every registered current monitor on a fixed
// period and publishes readings on the message bus. Control topics adjust
// the sample rate and force an immediate read.
package powermon

import (
	"context"
	"strconv"
	"time"

	"powermon-go/bus"
	"powermon-go/drivers/ina226"
	"powermon-go/errcode"
)

var (
	topicControlReadNow = bus.T("power", "control", "read_now")
	topicControlSetRate = bus.T("power", "control", "set_rate")
	topicControlError   = bus.T("power", "control", "error")
)

type Config struct {
	Period time.Duration // sampling interval, default 1s
}

type Service struct {
	mon *ina226.Monitor
	cfg Config
}

func New(mon *ina226.Monitor, cfg Config) *Service {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	return &Service{mon: mon, cfg: cfg}
}

// Start subscribes to the control topics and launches the sampling loop.
// Control topics are live once Start returns: a read_now published right
// after must not be lost.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	readSub := conn.Subscribe(topicControlReadNow)
	rateSub := conn.Subscribe(topicControlSetRate)
	go s.serviceLoop(ctx, conn, readSub, rateSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, readSub, rateSub *bus.Subscription) {
	defer conn.Unsubscribe(readSub)
	defer conn.Unsubscribe(rateSub)

	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.sampleAll(conn)
		case <-readSub.Channel():
			s.sampleAll(conn)
		case msg := <-rateSub.Channel():
			if period, ok := periodFromPayload(msg.Payload); ok {
				s.cfg.Period = period
				tick.Reset(period)
			} else {
				conn.Publish(conn.NewMessage(topicControlError, map[string]any{
					"code": string(errcode.InvalidParams),
					"op":   "set_rate",
				}, false))
			}
		}
	}
}

// periodFromPayload accepts {"period_ms": n} with any numeric n > 0.
func periodFromPayload(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	var ms int64
	switch v := m["period_ms"].(type) {
	case float64:
		ms = int64(v)
	case int:
		ms = int64(v)
	case int64:
		ms = v
	default:
		return 0, false
	}
	if ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// sampleAll reads every registered device and publishes one retained value
// message per device. A failed read publishes a per-device error instead.
func (s *Service) sampleAll(conn *bus.Connection) {
	for i := uint8(0); i < s.mon.Devices(); i++ {
		s.sampleOne(conn, i)
	}
}

func (s *Service) sampleOne(conn *bus.Connection, dev uint8) {
	id := strconv.Itoa(int(dev))

	mv, err := s.mon.BusMilliVolts(true, dev)
	if err != nil {
		s.publishError(conn, id, err)
		return
	}
	uv, err := s.mon.ShuntMicroVolts(false, dev)
	if err != nil {
		s.publishError(conn, id, err)
		return
	}
	ua, err := s.mon.BusMicroAmps(dev)
	if err != nil {
		s.publishError(conn, id, err)
		return
	}
	uw, err := s.mon.BusMicroWatts(dev)
	if err != nil {
		s.publishError(conn, id, err)
		return
	}

	conn.Publish(conn.NewMessage(bus.T("power", "dev", id, "value"), map[string]any{
		"bus_mv":     mv,
		"shunt_uv":   uv,
		"current_ua": ua,
		"power_uw":   uw,
	}, true))
}

func (s *Service) publishError(conn *bus.Connection, id string, err error) {
	conn.Publish(conn.NewMessage(bus.T("power", "dev", id, "error"), map[string]any{
		"code": string(errcode.MapDriverErr(err)),
		"msg":  err.Error(),
	}, false))
}
