package ina226

import "time"

// The chip needs a short settle time after a register write before the next
// bus transaction.
const writeSettle = 10 * time.Microsecond

// I2C 16-bit word operations (big-endian: HIGH then LOW, per the register
// convention, independent of host byte order).

func (m *Monitor) readWord(reg byte, addr uint16) (uint16, error) {
	m.w[0] = reg
	if err := m.i2c.Tx(addr, m.w[:1], m.r[:2]); err != nil {
		m.lastTx = err
		return 0, err
	}
	m.lastTx = nil
	return uint16(m.r[0])<<8 | uint16(m.r[1]), nil
}

func (m *Monitor) readS16(reg byte, addr uint16) (int16, error) {
	u, err := m.readWord(reg, addr)
	return int16(u), err
}

func (m *Monitor) writeWord(reg byte, val uint16, addr uint16) error {
	m.w[0] = reg
	m.w[1] = byte(val >> 8) // high
	m.w[2] = byte(val)      // low
	err := m.i2c.Tx(addr, m.w[:3], nil)
	m.lastTx = err
	time.Sleep(writeSettle)
	return err
}

// probe reports whether a chip identifying as an INA226 answers at addr.
// A bare ACK check cannot tell an INA226 from anything else parked in the
// address window, so the manufacturer ID is verified.
func (m *Monitor) probe(addr uint16) bool {
	id, err := m.readWord(RegManufacturerID, addr)
	return err == nil && id == ManufacturerTI
}

// LastTransmission returns the status of the most recent bus transfer: nil
// after a successful read, the transport error otherwise. Reads never retry;
// this is the diagnostic left behind for the caller.
func (m *Monitor) LastTransmission() error { return m.lastTx }
