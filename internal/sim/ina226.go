// Package sim provides a register-accurate INA226 behavioural model behind
// the drivers.I2C interface. Driver tests, service tests and cmd/inashell
// all script the same fake silicon.
package sim

import (
	"errors"
	"sync"
)

var ErrNoAck = errors.New("sim: no device acknowledges at address")

// Local copy of the register map. The driver package declares the same
// values; keeping them here lets its in-package tests import sim without a
// cycle.
const (
	regConfiguration  = 0x00
	regShuntVoltage   = 0x01
	regBusVoltage     = 0x02
	regPower          = 0x03
	regCurrent        = 0x04
	regCalibration    = 0x05
	regMaskEnable     = 0x06
	regAlertLimit     = 0x07
	regManufacturerID = 0xFE

	configDefault  = 0x4127
	configReset    = 0x8000
	manufacturerTI = 0x5449
)

// Chip is one INA226 register file with power-on defaults.
type Chip struct {
	config      uint16
	shuntRaw    uint16
	busRaw      uint16
	powerRaw    uint16
	currentRaw  uint16
	calibration uint16
	maskEnable  uint16
	alertLimit  uint16

	// Current/power normally derive from shunt, bus and calibration the way
	// the silicon computes them; pinning freezes a register at a test value.
	currentPinned bool
	powerPinned   bool

	// ReadyAfter delays the conversion-ready flag until the mask/enable
	// register has been polled that many times. Zero means always ready.
	ReadyAfter int
	polls      int
}

func newChip() *Chip {
	c := &Chip{}
	c.powerOn()
	return c
}

func (c *Chip) powerOn() {
	c.config = configDefault
	c.shuntRaw = 0
	c.busRaw = 0
	c.powerRaw = 0
	c.currentRaw = 0
	c.calibration = 0
	c.maskEnable = 0
	c.alertLimit = 0
	c.currentPinned = false
	c.powerPinned = false
	c.polls = 0
}

// SetRaw programs a register from the test side. Writing the current or
// power register pins it, overriding the derived value.
func (c *Chip) SetRaw(reg byte, v uint16) {
	switch reg {
	case regConfiguration:
		c.config = v
	case regShuntVoltage:
		c.shuntRaw = v
	case regBusVoltage:
		c.busRaw = v
	case regPower:
		c.powerRaw = v
		c.powerPinned = true
	case regCurrent:
		c.currentRaw = v
		c.currentPinned = true
	case regCalibration:
		c.calibration = v
	case regMaskEnable:
		c.maskEnable = v
	case regAlertLimit:
		c.alertLimit = v
	}
}

// Reg reads a register from the test side without touching poll counters.
func (c *Chip) Reg(reg byte) uint16 {
	switch reg {
	case regConfiguration:
		return c.config
	case regShuntVoltage:
		return c.shuntRaw
	case regBusVoltage:
		return c.busRaw
	case regPower:
		return c.power()
	case regCurrent:
		return c.current()
	case regCalibration:
		return c.calibration
	case regMaskEnable:
		return c.maskEnable
	case regAlertLimit:
		return c.alertLimit
	case regManufacturerID:
		return manufacturerTI
	}
	return 0
}

// Polls reports how many times the mask/enable register has been read.
func (c *Chip) Polls() int { return c.polls }

// current mirrors the silicon: current = shunt * calibration / 2048.
func (c *Chip) current() uint16 {
	if c.currentPinned {
		return c.currentRaw
	}
	return uint16(int64(int16(c.shuntRaw)) * int64(c.calibration) / 2048)
}

// power mirrors the silicon: power = current * busVoltage / 20000.
func (c *Chip) power() uint16 {
	if c.powerPinned {
		return c.powerRaw
	}
	return uint16(int64(int16(c.current())) * int64(c.busRaw) / 20000)
}

func (c *Chip) read(reg byte) uint16 {
	if reg == regMaskEnable {
		c.polls++
		v := c.maskEnable
		if c.polls >= c.ReadyAfter {
			v |= 0x0080
		}
		return v
	}
	return c.Reg(reg)
}

func (c *Chip) write(reg byte, v uint16) {
	if reg == regConfiguration && v&configReset != 0 {
		c.powerOn()
		return
	}
	c.SetRaw(reg, v)
}

// Bus is a shared I2C bus carrying any number of simulated chips.
type Bus struct {
	mu    sync.Mutex
	chips map[uint16]*Chip

	// FailWith, when non-nil, makes every transfer fail with that error.
	FailWith error

	// FailWrites, when non-nil, fails only register writes; reads still pass.
	FailWrites error
}

func NewBus() *Bus {
	return &Bus{chips: map[uint16]*Chip{}}
}

// AddChip attaches a fresh chip at addr and returns it for scripting.
func (b *Bus) AddChip(addr uint16) *Chip {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := newChip()
	b.chips[addr] = c
	return c
}

// Chip returns the chip attached at addr, or nil.
func (b *Bus) Chip(addr uint16) *Chip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chips[addr]
}

// Tx implements drivers.I2C: a one-byte write selects the register, a
// three-byte write carries register plus a big-endian word, a two-byte read
// returns the selected register big-endian.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWith != nil {
		return b.FailWith
	}
	c, ok := b.chips[addr]
	if !ok {
		return ErrNoAck
	}

	switch {
	case len(w) == 1 && len(r) == 2:
		v := c.read(w[0])
		r[0] = byte(v >> 8)
		r[1] = byte(v)
	case len(w) == 3 && len(r) == 0:
		if b.FailWrites != nil {
			return b.FailWrites
		}
		c.write(w[0], uint16(w[1])<<8|uint16(w[2]))
	case len(w) == 1 && len(r) == 0:
		// register pointer set only; accepted
	default:
		return errors.New("sim: unsupported transfer shape")
	}
	return nil
}
