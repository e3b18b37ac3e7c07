// Package status translates raw firmware status codes into typed Go errors.
//
// Every wrapper above the raw protocol interfaces calls Check (or one of its
// variants) at the boundary, so no caller ever compares a types.Status itself.
package status

import (
	"errors"
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// Error kinds of the boot pipeline.
var (
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrBufferTooSmall     = errors.New("buffer too small")
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrVolumeCorrupted    = errors.New("volume corrupted")
	ErrDeviceError        = errors.New("device error")
	ErrAllocationConflict = errors.New("allocation conflict")
	ErrShortRead          = errors.New("short read")
	ErrStaleMapKey        = errors.New("stale memory map key")
	ErrUnsupported        = errors.New("unsupported")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrImageInvalid       = errors.New("invalid kernel image")
	ErrFirmware           = errors.New("firmware error")
)

// Error is a failed firmware call.
type Error struct {
	// Op names the firmware service, e.g. "GetMemoryMap".
	Op     string
	Status types.Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Is maps the raw status onto the error kinds so callers can use errors.Is.
func (e *Error) Is(target error) bool {
	return kindOf(e.Status) == target
}

func kindOf(s types.Status) error {
	switch s {
	case types.StatusBufferTooSmall:
		return ErrBufferTooSmall
	case types.StatusNotFound:
		return ErrNotFound
	case types.StatusAccessDenied, types.StatusWriteProtected, types.StatusSecurityViolation:
		return ErrAccessDenied
	case types.StatusVolumeCorrupted:
		return ErrVolumeCorrupted
	case types.StatusDeviceError, types.StatusNoMedia, types.StatusMediaChanged:
		return ErrDeviceError
	case types.StatusUnsupported:
		return ErrUnsupported
	case types.StatusInvalidParameter:
		return ErrInvalidParameter
	}
	return ErrFirmware
}

// BufferTooSmallError carries the size the firmware wrote back through the
// size parameter.
type BufferTooSmallError struct {
	Op       string
	Required uint64
	Given    uint64
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("%s: buffer too small: need %d bytes, have %d", e.Op, e.Required, e.Given)
}

func (e *BufferTooSmallError) Is(target error) bool {
	return target == ErrBufferTooSmall
}

// Check converts a raw status into an error. Success and warnings return nil.
func Check(op string, s types.Status) error {
	if !s.IsError() {
		return nil
	}
	return &Error{Op: op, Status: s}
}

// CheckSized is Check for services that report a required buffer size.
func CheckSized(op string, s types.Status, required, given uint64) error {
	if s == types.StatusBufferTooSmall {
		return &BufferTooSmallError{Op: op, Required: required, Given: given}
	}
	return Check(op, s)
}

// RequiredSize extracts the size reported with a BufferTooSmall failure.
func RequiredSize(err error) (uint64, bool) {
	var e *BufferTooSmallError
	if errors.As(err, &e) {
		return e.Required, true
	}
	return 0, false
}

var kinds = []error{
	ErrCapabilityNotFound,
	ErrAllocationConflict,
	ErrStaleMapKey,
	ErrShortRead,
	ErrImageInvalid,
	ErrBufferTooSmall,
	ErrNotFound,
	ErrAccessDenied,
	ErrVolumeCorrupted,
	ErrDeviceError,
	ErrUnsupported,
	ErrInvalidParameter,
}

// Kind returns the most specific error kind in err's chain, or ErrFirmware
// when none matches. Pipeline-level kinds win over raw status kinds.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrFirmware
}

// Retryable reports whether the controller may retry the failed step.
// Only a stale map key and a short read are ever retried; everything else is
// fatal for the boot attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrStaleMapKey) || errors.Is(err, ErrShortRead)
}

// Wrap attaches a pipeline-level kind to a lower level error so both remain
// visible to errors.Is.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

type kindError struct {
	kind error
	err  error
}

// Error returns the wrapped message; Kind recovers the kind.
func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}
