package app

import (
	"errors"
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/status"
)

// KernelSource selects where the simulated boot volume and kernel come from.
type KernelSource struct {
	// KernelFile is a host file served at the firmware kernel path.
	KernelFile string
	// VolumePath is a host directory served read-only as the volume.
	VolumePath string
	// Stub generates a minimal kernel image when nothing else provides one.
	Stub bool
}

// Validate ensures the source is usable.
func (s *KernelSource) Validate() error {
	if s.Stub && s.KernelFile != "" {
		return errors.New("cannot specify both a kernel file and a stub kernel")
	}
	return nil
}

// IsEmpty returns true if no host input is named.
func (s *KernelSource) IsEmpty() bool {
	return s.KernelFile == "" && s.VolumePath == ""
}

// String returns a string representation of the source
func (s *KernelSource) String() string {
	switch {
	case s.KernelFile != "" && s.VolumePath != "":
		return fmt.Sprintf("Kernel: %s on volume %s", s.KernelFile, s.VolumePath)
	case s.KernelFile != "":
		return "Kernel: " + s.KernelFile
	case s.VolumePath != "":
		return "Volume: " + s.VolumePath
	}
	return "Stub kernel"
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeConfig         = "CONFIG"
	ErrCodeMachine        = "MACHINE"
	ErrCodeKernelNotFound = "KERNEL_NOT_FOUND"
	ErrCodeKernelInvalid  = "KERNEL_INVALID"
	ErrCodeBootAborted    = "BOOT_ABORTED"
	ErrCodeTimeout        = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeFor picks the error code for a failed boot.
func CodeFor(err error) string {
	switch status.Kind(err) {
	case status.ErrNotFound:
		return ErrCodeKernelNotFound
	case status.ErrImageInvalid:
		return ErrCodeKernelInvalid
	}
	return ErrCodeBootAborted
}
