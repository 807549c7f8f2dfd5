package errcode

import (
	"errors"

	"powermon-go/drivers/ina226"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"

	DeviceNotFound Code = "device_not_found"
	TableFull      Code = "table_full"
	BadDeviceIndex Code = "bad_device_index"
	TxFailure      Code = "tx_failure"
	Timeout        Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps monitor driver errors to a Code.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ina226.ErrDeviceNotFound):
		return DeviceNotFound
	case errors.Is(err, ina226.ErrTableFull):
		return TableFull
	case errors.Is(err, ina226.ErrBadDeviceIndex):
		return BadDeviceIndex
	case errors.Is(err, ina226.ErrInvalidMode),
		errors.Is(err, ina226.ErrInvalidConfig):
		return InvalidParams
	default:
		return TxFailure
	}
}
