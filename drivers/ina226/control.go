package ina226

// Register state control: operating mode, averaging, conversion timing,
// reset, conversion-ready alert pin. Every bitfield write is a
// read-modify-write touching only its own field.

// updateConfigField replaces the masked field of the configuration register,
// leaving all other bits untouched.
func (m *Monitor) updateConfigField(d *device, mask, val uint16) error {
	cur, err := m.readWord(RegConfiguration, d.addr)
	if err != nil {
		return err
	}
	return m.writeWord(RegConfiguration, (cur&^mask)|(val&mask), d.addr)
}

// Reset writes the reset bit; the chip returns to power-on defaults
// (configuration ConfigDefault, calibration cleared). The host-side mode
// cache is resynchronised to the default continuous-both mode so GetMode
// stays truthful immediately after the reset.
func (m *Monitor) Reset(deviceNumber uint8) error {
	return m.forEach(deviceNumber, func(d *device) error {
		if err := m.writeWord(RegConfiguration, configReset, d.addr); err != nil {
			return err
		}
		d.mode = ModeContinuousBoth
		return nil
	})
}

// SetMode writes the 3-bit operating mode, leaving averaging and conversion
// timing untouched.
func (m *Monitor) SetMode(mode uint8, deviceNumber uint8) error {
	if mode&^uint8(configModeMask) != 0 {
		return ErrInvalidMode
	}
	return m.forEach(deviceNumber, func(d *device) error {
		if err := m.updateConfigField(d, configModeMask, uint16(mode)); err != nil {
			return err
		}
		d.mode = mode
		return nil
	})
}

// GetMode reads the mode bits back from the configuration register and
// refreshes the cached value. With AllDevices and more than one device
// registered it returns the first registered device's mode; iterate over
// Devices() for per-device answers.
func (m *Monitor) GetMode(deviceNumber uint8) (uint8, error) {
	if deviceNumber == AllDevices {
		deviceNumber = 0
	}
	d, err := m.dev(deviceNumber)
	if err != nil {
		return 0, err
	}
	v, err := m.readWord(RegConfiguration, d.addr)
	if err != nil {
		return 0, err
	}
	d.mode = uint8(v & configModeMask)
	return d.mode, nil
}

// SetAveraging maps the requested sample count onto the chip's discrete
// ladder (1, 4, 16, 64, 128, 256, 512, 1024 — rounding down) and writes only
// the averaging field.
func (m *Monitor) SetAveraging(samples uint16, deviceNumber uint8) error {
	code := averagingCode(samples) << configAvgShift
	return m.forEach(deviceNumber, func(d *device) error {
		return m.updateConfigField(d, configAvgMask, code)
	})
}

// SetBusConversion writes a conversion time code (Conv140us..Conv8244us)
// into the bus ADC timing field.
func (m *Monitor) SetBusConversion(code uint8, deviceNumber uint8) error {
	val := (uint16(code) << configBusShift) & configBusMask
	return m.forEach(deviceNumber, func(d *device) error {
		return m.updateConfigField(d, configBusMask, val)
	})
}

// SetShuntConversion writes a conversion time code into the shunt ADC
// timing field.
func (m *Monitor) SetShuntConversion(code uint8, deviceNumber uint8) error {
	val := (uint16(code) << configShuntShift) & configShuntMask
	return m.forEach(deviceNumber, func(d *device) error {
		return m.updateConfigField(d, configShuntMask, val)
	})
}

// SetAlertPinOnConversion drives the ALERT pin when a conversion completes.
// Only the conversion-ready alert bit of the mask/enable register changes.
func (m *Monitor) SetAlertPinOnConversion(enabled bool, deviceNumber uint8) error {
	return m.forEach(deviceNumber, func(d *device) error {
		cur, err := m.readWord(RegMaskEnable, d.addr)
		if err != nil {
			return err
		}
		if enabled {
			cur |= maskAlertConversion
		} else {
			cur &^= maskAlertConversion
		}
		return m.writeWord(RegMaskEnable, cur, d.addr)
	})
}
