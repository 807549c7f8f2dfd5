package ina226

import "powermon-go/x/mathx"

// The calibration relation from the datasheet is
//
//	CAL = 0.00512 / (currentLSB_A * Rshunt_Ω)
//
// With currentLSB in µA and the shunt in µΩ both scale factors cancel into a
// single integer constant: 0.00512 * 1e6 * 1e6 / 1e3... keeping everything in
// (µA · µΩ) the numerator becomes 5.12e9.
const calibrationScale uint64 = 5_120_000_000

// currentLSBMicroAmps picks the amps-per-bit granularity for a full-scale
// current of maxAmps. Ceiling division keeps the full range representable in
// the 15-bit current register: lsb*32767 >= maxAmps*1e6 always.
func currentLSBMicroAmps(maxAmps uint8) uint32 {
	return uint32(mathx.CeilDiv(uint64(maxAmps)*1_000_000, 32767))
}

// calibrationWord computes the raw calibration register value, rounded to
// nearest and clipped to the 16-bit register. All intermediates are 64-bit:
// a large maxAmps with a large shunt must not wrap silently.
func calibrationWord(currentLSB, shuntMicroOhm uint32) uint16 {
	den := uint64(currentLSB) * uint64(shuntMicroOhm)
	if den == 0 {
		return 0
	}
	return uint16(mathx.Clamp(mathx.RoundDiv(calibrationScale, den), 1, 0xFFFF))
}

// averagingCode maps a requested sample count onto the chip's discrete
// ladder, rounding down to the nearest supported count.
func averagingCode(samples uint16) uint16 {
	for code := len(averagingSamples) - 1; code > 0; code-- {
		if samples >= averagingSamples[code] {
			return uint16(code)
		}
	}
	return 0
}
