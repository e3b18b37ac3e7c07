package types

import "fmt"

// Firmware Status Codes
// Reference: UEFI Specification 2.10, Appendix D "Status Codes"

// Status is the raw EFI_STATUS value returned by every firmware service.
// Error codes have the high bit set, warnings do not.
type Status uint64

// StatusErrorBit marks a Status as an error code.
const StatusErrorBit Status = 1 << 63

// Success and warning codes.
// Reference: Appendix D, Table D-1 and Table D-2
const (
	StatusSuccess Status = 0

	StatusWarnUnknownGlyph   Status = 1
	StatusWarnDeleteFailure  Status = 2
	StatusWarnWriteFailure   Status = 3
	StatusWarnBufferTooSmall Status = 4
	StatusWarnStaleData      Status = 5
	StatusWarnFileSystem     Status = 6
	StatusWarnResetRequired  Status = 7
)

// Error codes.
// Reference: Appendix D, Table D-3
const (
	StatusLoadError           = StatusErrorBit | 1
	StatusInvalidParameter    = StatusErrorBit | 2
	StatusUnsupported         = StatusErrorBit | 3
	StatusBadBufferSize       = StatusErrorBit | 4
	StatusBufferTooSmall      = StatusErrorBit | 5
	StatusNotReady            = StatusErrorBit | 6
	StatusDeviceError         = StatusErrorBit | 7
	StatusWriteProtected      = StatusErrorBit | 8
	StatusOutOfResources      = StatusErrorBit | 9
	StatusVolumeCorrupted     = StatusErrorBit | 10
	StatusVolumeFull          = StatusErrorBit | 11
	StatusNoMedia             = StatusErrorBit | 12
	StatusMediaChanged        = StatusErrorBit | 13
	StatusNotFound            = StatusErrorBit | 14
	StatusAccessDenied        = StatusErrorBit | 15
	StatusNoResponse          = StatusErrorBit | 16
	StatusNoMapping           = StatusErrorBit | 17
	StatusTimeout             = StatusErrorBit | 18
	StatusNotStarted          = StatusErrorBit | 19
	StatusAlreadyStarted      = StatusErrorBit | 20
	StatusAborted             = StatusErrorBit | 21
	StatusICMPError           = StatusErrorBit | 22
	StatusTFTPError           = StatusErrorBit | 23
	StatusProtocolError       = StatusErrorBit | 24
	StatusIncompatibleVersion = StatusErrorBit | 25
	StatusSecurityViolation   = StatusErrorBit | 26
	StatusCRCError            = StatusErrorBit | 27
	StatusEndOfMedia          = StatusErrorBit | 28
	StatusEndOfFile           = StatusErrorBit | 31
	StatusInvalidLanguage     = StatusErrorBit | 32
	StatusCompromisedData     = StatusErrorBit | 33
	StatusIPAddressConflict   = StatusErrorBit | 34
	StatusHTTPError           = StatusErrorBit | 35
)

var statusNames = map[Status]string{
	StatusSuccess:             "EFI_SUCCESS",
	StatusWarnUnknownGlyph:    "EFI_WARN_UNKNOWN_GLYPH",
	StatusWarnDeleteFailure:   "EFI_WARN_DELETE_FAILURE",
	StatusWarnWriteFailure:    "EFI_WARN_WRITE_FAILURE",
	StatusWarnBufferTooSmall:  "EFI_WARN_BUFFER_TOO_SMALL",
	StatusWarnStaleData:       "EFI_WARN_STALE_DATA",
	StatusWarnFileSystem:      "EFI_WARN_FILE_SYSTEM",
	StatusWarnResetRequired:   "EFI_WARN_RESET_REQUIRED",
	StatusLoadError:           "EFI_LOAD_ERROR",
	StatusInvalidParameter:    "EFI_INVALID_PARAMETER",
	StatusUnsupported:         "EFI_UNSUPPORTED",
	StatusBadBufferSize:       "EFI_BAD_BUFFER_SIZE",
	StatusBufferTooSmall:      "EFI_BUFFER_TOO_SMALL",
	StatusNotReady:            "EFI_NOT_READY",
	StatusDeviceError:         "EFI_DEVICE_ERROR",
	StatusWriteProtected:      "EFI_WRITE_PROTECTED",
	StatusOutOfResources:      "EFI_OUT_OF_RESOURCES",
	StatusVolumeCorrupted:     "EFI_VOLUME_CORRUPTED",
	StatusVolumeFull:          "EFI_VOLUME_FULL",
	StatusNoMedia:             "EFI_NO_MEDIA",
	StatusMediaChanged:        "EFI_MEDIA_CHANGED",
	StatusNotFound:            "EFI_NOT_FOUND",
	StatusAccessDenied:        "EFI_ACCESS_DENIED",
	StatusNoResponse:          "EFI_NO_RESPONSE",
	StatusNoMapping:           "EFI_NO_MAPPING",
	StatusTimeout:             "EFI_TIMEOUT",
	StatusNotStarted:          "EFI_NOT_STARTED",
	StatusAlreadyStarted:      "EFI_ALREADY_STARTED",
	StatusAborted:             "EFI_ABORTED",
	StatusICMPError:           "EFI_ICMP_ERROR",
	StatusTFTPError:           "EFI_TFTP_ERROR",
	StatusProtocolError:       "EFI_PROTOCOL_ERROR",
	StatusIncompatibleVersion: "EFI_INCOMPATIBLE_VERSION",
	StatusSecurityViolation:   "EFI_SECURITY_VIOLATION",
	StatusCRCError:            "EFI_CRC_ERROR",
	StatusEndOfMedia:          "EFI_END_OF_MEDIA",
	StatusEndOfFile:           "EFI_END_OF_FILE",
	StatusInvalidLanguage:     "EFI_INVALID_LANGUAGE",
	StatusCompromisedData:     "EFI_COMPROMISED_DATA",
	StatusIPAddressConflict:   "EFI_IP_ADDRESS_CONFLICT",
	StatusHTTPError:           "EFI_HTTP_ERROR",
}

// IsError reports whether the high bit of the status is set.
func (s Status) IsError() bool {
	return s&StatusErrorBit != 0
}

// IsWarning reports whether the status is a non-zero warning code.
func (s Status) IsWarning() bool {
	return s != StatusSuccess && !s.IsError()
}

// String returns the symbolic EFI name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s.IsError() {
		return fmt.Sprintf("EFI_ERROR(%#x)", uint64(s&^StatusErrorBit))
	}
	return fmt.Sprintf("EFI_WARN(%#x)", uint64(s))
}
