// Package ina226 provides constants for register addresses and bitfields used
// in the operation of the INA226 bidirectional current/power monitor.
package ina226

const (
	// 7-bit I2C address window the chip can be strapped to (A0/A1 pins).
	AddressFirst = 0x40
	AddressLast  = 0x4F

	// MANUFACTURER_ID reads back "TI".
	ManufacturerTI = 0x5449

	// --- Register sub-addresses (16-bit word registers) ---

	RegConfiguration  = 0x00 // R/W
	RegShuntVoltage   = 0x01 // R, signed, 2.5 µV/LSB
	RegBusVoltage     = 0x02 // R, 1.25 mV/LSB
	RegPower          = 0x03 // R, 25*currentLSB per bit
	RegCurrent        = 0x04 // R, signed, currentLSB per bit
	RegCalibration    = 0x05 // R/W
	RegMaskEnable     = 0x06 // R/W
	RegAlertLimit     = 0x07 // R/W (unused here, listed for completeness)
	RegManufacturerID = 0xFE // R
	RegDieID          = 0xFF // R

	// --- Configuration register (0x00) ---

	// Power-on value: averaging=1, both conversion times 1.1 ms,
	// mode=continuous shunt and bus.
	ConfigDefault = 0x4127

	configReset     = 0x8000
	configModeMask  = 0x0007 // bits 0-2
	configShuntMask = 0x0038 // bits 3-5
	configBusMask   = 0x01C0 // bits 6-8
	configAvgMask   = 0x0E00 // bits 9-11

	configShuntShift = 3
	configBusShift   = 6
	configAvgShift   = 9

	// --- Mask/Enable register (0x06) ---

	maskConversionReady = 0x0080 // conversion-ready flag
	maskAlertConversion = 0x0400 // assert ALERT pin on conversion ready
)

// Operating modes (configuration bits 0-2). Seven usable codes: triggered and
// continuous variants of shunt/bus/both, plus ADC power-down.
const (
	ModeTriggeredShunt  uint8 = 0x01
	ModeTriggeredBus    uint8 = 0x02
	ModeTriggeredBoth   uint8 = 0x03
	ModePowerDown       uint8 = 0x04
	ModeContinuousShunt uint8 = 0x05
	ModeContinuousBus   uint8 = 0x06
	ModeContinuousBoth  uint8 = 0x07
)

// Conversion time codes for the bus and shunt ADCs (3-bit fields).
const (
	Conv140us uint8 = iota
	Conv204us
	Conv332us
	Conv588us
	Conv1100us
	Conv2116us
	Conv4156us
	Conv8244us
)

// Sample counts selectable by the averaging field, indexed by code 0-7.
var averagingSamples = [8]uint16{1, 4, 16, 64, 128, 256, 512, 1024}
