package ina226

import "testing"

var shuntSweep = []uint32{1_000, 20_000, 100_000, 500_000, 2_000_000}

// Full-range coverage: the chosen currentLSB must put the maximum expected
// current inside the 15-bit current register, for every supported
// maxAmps/shunt pairing, and the calibration word must stay in 16 bits.
func TestCalibrationFullRange(t *testing.T) {
	for maxAmps := 1; maxAmps <= 255; maxAmps++ {
		lsb := currentLSBMicroAmps(uint8(maxAmps))
		if lsb == 0 {
			t.Fatalf("maxAmps=%d: currentLSB is zero", maxAmps)
		}
		if uint64(lsb)*32767 < uint64(maxAmps)*1_000_000 {
			t.Fatalf("maxAmps=%d: lsb=%d does not cover full scale", maxAmps, lsb)
		}
		for _, shunt := range shuntSweep {
			cal := calibrationWord(lsb, shunt)
			if cal == 0 {
				t.Fatalf("maxAmps=%d shunt=%dµΩ: calibration is zero", maxAmps, shunt)
			}
		}
	}
}

// Worked example from the datasheet setup used throughout: 16 A full scale
// across a 100 mΩ shunt.
func Test16AmpHundredMilliOhm(t *testing.T) {
	lsb := currentLSBMicroAmps(16)
	if lsb != 489 {
		t.Fatalf("currentLSB = %d µA/bit, want 489", lsb)
	}
	// round(5.12e9 / (489 * 100000)) = round(104.7) = 105
	if cal := calibrationWord(lsb, 100_000); cal != 105 {
		t.Fatalf("calibration = %d, want 105", cal)
	}
}

// A large range and a large shunt together must not wrap: 255 A over 2 Ω
// exceeds 32-bit µA·µΩ products by orders of magnitude.
func TestCalibrationNoOverflow(t *testing.T) {
	lsb := currentLSBMicroAmps(255)
	if lsb != 7782 {
		t.Fatalf("currentLSB = %d, want 7782", lsb)
	}
	cal := calibrationWord(lsb, 2_000_000)
	// 5.12e9 / (7782 * 2e6) = 0.33 → rounds to 0 → clamped to 1.
	if cal != 1 {
		t.Fatalf("calibration = %d, want clamp to 1", cal)
	}
}

func TestAveragingLadder(t *testing.T) {
	cases := []struct {
		samples uint16
		code    uint16
	}{
		{0, 0}, {1, 0}, {3, 0},
		{4, 1}, {15, 1},
		{16, 2}, {63, 2},
		{64, 3}, {100, 3},
		{128, 4}, {256, 5}, {512, 6},
		{1024, 7}, {65535, 7},
	}
	for _, c := range cases {
		if got := averagingCode(c.samples); got != c.code {
			t.Errorf("averagingCode(%d) = %d, want %d", c.samples, got, c.code)
		}
	}
}
