package types

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Protocol GUIDs
// Reference: UEFI Specification 2.10, Appendix A "GUID and Time Formats"

// Capability names a class of firmware interface. It is the 128-bit EFI_GUID
// passed to LocateProtocol and GetInfo.
type Capability struct {
	uuid.UUID
}

// MustCapability parses the canonical registry form of a GUID. It panics on a
// malformed literal, so it is only meant for package level constants.
func MustCapability(s string) Capability {
	return Capability{UUID: uuid.MustParse(s)}
}

// EFIBytes returns the EFI_GUID wire layout: Data1, Data2 and Data3 little
// endian, Data4 as stored.
func (c Capability) EFIBytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], binary.BigEndian.Uint32(c.UUID[0:4]))
	binary.LittleEndian.PutUint16(b[4:6], binary.BigEndian.Uint16(c.UUID[4:6]))
	binary.LittleEndian.PutUint16(b[6:8], binary.BigEndian.Uint16(c.UUID[6:8]))
	copy(b[8:], c.UUID[8:])
	return b
}

// CapabilityFromEFIBytes is the inverse of EFIBytes.
func CapabilityFromEFIBytes(b [16]byte) Capability {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(u[8:], b[8:])
	return Capability{UUID: u}
}

var (
	// GraphicsOutputProtocolGUID identifies EFI_GRAPHICS_OUTPUT_PROTOCOL.
	// Reference: section 12.9
	GraphicsOutputProtocolGUID = MustCapability("9042a9de-23dc-4a38-96fb-7aded080516a")

	// SimpleFileSystemProtocolGUID identifies EFI_SIMPLE_FILE_SYSTEM_PROTOCOL.
	// Reference: section 13.4
	SimpleFileSystemProtocolGUID = MustCapability("964e5b22-6459-11d2-8e39-00a0c969723b")

	// SimpleTextOutputProtocolGUID identifies EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.
	// Reference: section 12.4
	SimpleTextOutputProtocolGUID = MustCapability("387477c2-69c7-11d2-8e39-00a0c969723b")

	// FileInfoID is the information type for EFI_FILE_INFO.
	// Reference: section 13.5
	FileInfoID = MustCapability("09576e92-6d3f-11d2-8e39-00a0c969723b")
)

var capabilityNames = map[Capability]string{
	GraphicsOutputProtocolGUID:   "GraphicsOutput",
	SimpleFileSystemProtocolGUID: "SimpleFileSystem",
	SimpleTextOutputProtocolGUID: "SimpleTextOutput",
	FileInfoID:                   "FileInfo",
}

// Name returns a short name for well known capabilities and the GUID string
// otherwise.
func (c Capability) Name() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return c.UUID.String()
}
