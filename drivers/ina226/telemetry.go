package ina226

// Telemetry reads. All conversions are exact integer fixed point, truncating
// toward zero, mirroring the datasheet LSB ratios (1.25 mV = 125/100,
// 2.5 µV = 25/10).

// BusMilliVolts reads the bus voltage. With wait set it first blocks until
// the conversion-ready flag is raised. Bus voltage is never negative; the
// register's own sign convention is passed through unchanged.
func (m *Monitor) BusMilliVolts(wait bool, deviceNumber uint8) (uint16, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	if wait {
		if err := m.waitOne(d); err != nil {
			return 0, err
		}
	}
	raw, err := m.readWord(RegBusVoltage, d.addr)
	if err != nil {
		return 0, err
	}
	return uint16(uint32(raw) * 125 / 100), nil
}

// ShuntMicroVolts reads the shunt voltage as a signed quantity; current can
// flow in either direction and the sign survives the scaling.
func (m *Monitor) ShuntMicroVolts(wait bool, deviceNumber uint8) (int32, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	if wait {
		if err := m.waitOne(d); err != nil {
			return 0, err
		}
	}
	raw, err := m.readS16(RegShuntVoltage, d.addr)
	if err != nil {
		return 0, err
	}
	return int32(raw) * 25 / 10, nil
}

// BusMicroAmps reads the current register scaled by the device's currentLSB.
// No conversion wait: current and power are normally sampled right after a
// voltage read that already waited.
func (m *Monitor) BusMicroAmps(deviceNumber uint8) (int64, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	raw, err := m.readS16(RegCurrent, d.addr)
	if err != nil {
		return 0, err
	}
	return int64(raw) * int64(d.currentLSB), nil
}

// BusMicroWatts reads the power register scaled by powerLSB. The raw value
// is treated as signed exactly as the hardware presents it, even though
// physical power is normally non-negative.
func (m *Monitor) BusMicroWatts(deviceNumber uint8) (int64, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	raw, err := m.readS16(RegPower, d.addr)
	if err != nil {
		return 0, err
	}
	return int64(raw) * int64(d.powerLSB), nil
}

// ConversionReady probes the conversion-ready flag without blocking.
func (m *Monitor) ConversionReady(deviceNumber uint8) (bool, error) {
	d, err := m.dev(deviceNumber)
	if err != nil {
		return false, err
	}
	v, err := m.readWord(RegMaskEnable, d.addr)
	if err != nil {
		return false, err
	}
	return v&maskConversionReady != 0, nil
}

// WaitForConversion blocks until the conversion-ready flag is set, polling
// the mask/enable register with no timeout. With AllDevices it waits for
// every registered device in sequence. Callers must not invoke it when no
// conversion is in progress: it can block forever. A transport failure
// breaks the poll loop rather than spinning on a dead bus.
func (m *Monitor) WaitForConversion(deviceNumber uint8) error {
	return m.forEach(deviceNumber, m.waitOne)
}

func (m *Monitor) waitOne(d *device) error {
	for {
		v, err := m.readWord(RegMaskEnable, d.addr)
		if err != nil {
			return err
		}
		if v&maskConversionReady != 0 {
			return nil
		}
	}
}
