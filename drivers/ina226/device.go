// Package ina226 implements a driver for the Texas Instruments INA226
// high/low-side current and power monitor.
//
// Design notes (datasheet references):
// • I2C, read/write word protocol, data transferred high byte first.
// • Addresses 0x40–0x4F; several chips may share one bus.
// • Current and power registers are meaningful only after the calibration
//   register has been programmed from the shunt value and expected range.
// • Integer-only unit scaling (mV, µV, µA, µW); no floating point.
package ina226

import (
	"errors"

	"tinygo.org/x/drivers"

	"powermon-go/x/mathx"
)

// Sentinels for the device-number and address parameters.
const (
	// AllDevices applies a control operation to every registered device in
	// registration order.
	AllDevices uint8 = 0xFF

	// ScanAll makes Begin scan the whole address window instead of probing a
	// single address.
	ScanAll uint16 = 0xFFFF
)

var (
	ErrDeviceNotFound = errors.New("no ina226 responds at the requested address")
	ErrTableFull      = errors.New("device table is full")
	ErrBadDeviceIndex = errors.New("device number was never registered")
	ErrInvalidMode    = errors.New("operating mode must be a 3-bit code")
	ErrInvalidConfig  = errors.New("max current and shunt resistance must be non-zero")
)

// Config carries construction-time options for a Monitor.
type Config struct {
	// MaxDevices bounds the device table. Zero selects 8; values above the
	// size of the address window are capped at 16.
	MaxDevices uint8
}

// device is one registered chip. Records are append-only: calibration fields
// are fixed at registration, only the cached mode mutates afterwards.
type device struct {
	addr        uint16
	calibration uint16
	currentLSB  uint32 // µA per bit
	powerLSB    uint32 // µW per bit, always currentLSB*25
	mode        uint8
}

// Monitor manages every INA226 on one I2C bus. It is not safe for concurrent
// use: the bus is a serial resource, so callers needing multi-goroutine
// access must serialise whole operations externally.
type Monitor struct {
	i2c  drivers.I2C
	devs []device

	lastTx error

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Monitor for one bus. No I2C traffic happens until Begin.
func New(i2c drivers.I2C, cfg Config) *Monitor {
	max := cfg.MaxDevices
	if max == 0 {
		max = 8
	}
	if max > AddressLast-AddressFirst+1 {
		max = AddressLast - AddressFirst + 1
	}
	return &Monitor{
		i2c:  i2c,
		devs: make([]device, 0, max),
	}
}

// Begin registers chips and programs their calibration.
//
// maxAmps is the largest expected bus current in whole amperes;
// shuntMicroOhm is the shunt value in µΩ. With addr == ScanAll the whole
// 0x40–0x4F window is scanned and every responding, not-yet-registered chip
// is registered; otherwise only addr is probed. The returned index is the
// device number for all other calls (the first newly registered one when
// scanning). An address that is already registered returns its existing
// index unchanged; an address outside the window fails with
// ErrDeviceNotFound without any bus traffic.
//
// Registration writes the calibration register and then the default
// configuration (ConfigDefault). If either write fails the chip is not
// registered.
func (m *Monitor) Begin(maxAmps uint8, shuntMicroOhm uint32, addr uint16) (uint8, error) {
	if maxAmps == 0 || shuntMicroOhm == 0 {
		return 0, ErrInvalidConfig
	}

	if addr != ScanAll {
		if !mathx.Between(addr, AddressFirst, AddressLast) {
			return 0, ErrDeviceNotFound
		}
		if idx, ok := m.indexOf(addr); ok {
			return idx, nil
		}
		if !m.probe(addr) {
			return 0, ErrDeviceNotFound
		}
		return m.register(addr, maxAmps, shuntMicroOhm)
	}

	first := AllDevices
	for a := uint16(AddressFirst); a <= AddressLast; a++ {
		if _, ok := m.indexOf(a); ok {
			continue
		}
		if len(m.devs) == cap(m.devs) {
			break
		}
		if !m.probe(a) {
			continue
		}
		idx, err := m.register(a, maxAmps, shuntMicroOhm)
		if err != nil {
			continue
		}
		if first == AllDevices {
			first = idx
		}
	}
	if first == AllDevices {
		if len(m.devs) == cap(m.devs) {
			return 0, ErrTableFull
		}
		return 0, ErrDeviceNotFound
	}
	return first, nil
}

// register computes calibration and appends the record. The currentLSB and
// powerLSB pair is derived from one computation and written together with
// the calibration word, so the hardware always matches the record.
func (m *Monitor) register(addr uint16, maxAmps uint8, shuntMicroOhm uint32) (uint8, error) {
	if len(m.devs) == cap(m.devs) {
		return 0, ErrTableFull
	}
	lsb := currentLSBMicroAmps(maxAmps)
	cal := calibrationWord(lsb, shuntMicroOhm)
	if err := m.writeWord(RegCalibration, cal, addr); err != nil {
		return 0, err
	}
	if err := m.writeWord(RegConfiguration, ConfigDefault, addr); err != nil {
		return 0, err
	}
	m.devs = append(m.devs, device{
		addr:        addr,
		calibration: cal,
		currentLSB:  lsb,
		powerLSB:    lsb * 25,
		mode:        ModeContinuousBoth,
	})
	return uint8(len(m.devs) - 1), nil
}

// Devices reports how many chips are registered.
func (m *Monitor) Devices() uint8 { return uint8(len(m.devs)) }

// Address returns the bus address of a registered device.
func (m *Monitor) Address(deviceNumber uint8) (uint16, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	return d.addr, nil
}

// CurrentLSBMicroAmps returns the current scaling factor fixed at Begin.
func (m *Monitor) CurrentLSBMicroAmps(deviceNumber uint8) (uint32, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	return d.currentLSB, nil
}

// PowerLSBMicroWatts returns the power scaling factor fixed at Begin.
func (m *Monitor) PowerLSBMicroWatts(deviceNumber uint8) (uint32, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	return d.powerLSB, nil
}

// CalibrationWord returns the value written to the calibration register.
func (m *Monitor) CalibrationWord(deviceNumber uint8) (uint16, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	return d.calibration, nil
}

// ManufacturerID reads register 0xFE; a live INA226 answers ManufacturerTI.
func (m *Monitor) ManufacturerID(deviceNumber uint8) (uint16, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	return m.readWord(RegManufacturerID, d.addr)
}

// dev resolves a device number. AllDevices is not a valid target here.
func (m *Monitor) dev(deviceNumber uint8) (*device, error) {
	if int(deviceNumber) >= len(m.devs) {
		return nil, ErrBadDeviceIndex
	}
	return &m.devs[deviceNumber], nil
}

// forEach runs fn on one device, or on every registered device in sequence
// when deviceNumber is AllDevices. The first failure stops the sweep.
func (m *Monitor) forEach(deviceNumber uint8, fn func(*device) error) error {
	if deviceNumber != AllDevices {
		d, err := m.dev(deviceNumber)
		if err != nil {
			return err
		}
		return fn(d)
	}
	for i := range m.devs {
		if err := fn(&m.devs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Monitor) indexOf(addr uint16) (uint8, bool) {
	for i := range m.devs {
		if m.devs[i].addr == addr {
			return uint8(i), true
		}
	}
	return 0, false
}
