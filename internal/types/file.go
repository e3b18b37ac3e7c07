package types

import "time"

// File Protocol
// Reference: UEFI Specification 2.10, section 13.5 "File Protocol"

// OpenMode is the mode passed to EFI_FILE_PROTOCOL.Open().
type OpenMode uint64

// Open modes. Create is only valid together with Read and Write.
const (
	FileModeRead   OpenMode = 0x0000000000000001
	FileModeWrite  OpenMode = 0x0000000000000002
	FileModeCreate OpenMode = 0x8000000000000000
)

// FileAttribute is the attribute bit set of a file.
type FileAttribute uint64

// File attribute bits.
const (
	FileReadOnly  FileAttribute = 0x0000000000000001
	FileHidden    FileAttribute = 0x0000000000000002
	FileSystem    FileAttribute = 0x0000000000000004
	FileReserved  FileAttribute = 0x0000000000000008
	FileDirectory FileAttribute = 0x0000000000000010
	FileArchive   FileAttribute = 0x0000000000000020
	FileValidAttr FileAttribute = 0x0000000000000037
)

// Has reports whether every bit in mask is set.
func (a FileAttribute) Has(mask FileAttribute) bool {
	return a&mask == mask
}

// Time is the EFI_TIME structure.
// Reference: section 8.3, EFI_RUNTIME_SERVICES.GetTime()
type Time struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	Pad1       uint8
	Nanosecond uint32
	TimeZone   int16
	Daylight   uint8
	Pad2       uint8
}

// TimeSize is the encoded size of an EFI_TIME.
const TimeSize = 16

// TimeUnspecified is the TimeZone value meaning local time.
const TimeUnspecified int16 = 0x07FF

// NewTime converts a Go time to EFI_TIME, keeping the zone offset in minutes.
func NewTime(t time.Time) Time {
	_, offset := t.Zone()
	return Time{
		Year:       uint16(t.Year()),
		Month:      uint8(t.Month()),
		Day:        uint8(t.Day()),
		Hour:       uint8(t.Hour()),
		Minute:     uint8(t.Minute()),
		Second:     uint8(t.Second()),
		Nanosecond: uint32(t.Nanosecond()),
		TimeZone:   int16(offset / 60),
	}
}

// GoTime converts the EFI_TIME back to a Go time.
func (t Time) GoTime() time.Time {
	loc := time.UTC
	if t.TimeZone != TimeUnspecified && t.TimeZone != 0 {
		loc = time.FixedZone("", int(t.TimeZone)*60)
	}
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), int(t.Nanosecond), loc)
}

// FileInfo is the decoded EFI_FILE_INFO record returned by GetInfo with
// FileInfoID.
// Reference: section 13.5, EFI_FILE_INFO
type FileInfo struct {
	// Size of the whole record including the NUL terminated name.
	Size uint64
	// Size of the file in bytes.
	FileSize uint64
	// Amount of physical space the file consumes on the volume.
	PhysicalSize uint64
	CreateTime       Time
	LastAccessTime   Time
	ModificationTime Time
	Attribute        FileAttribute
	// Name of the file, transcoded from UTF-16.
	FileName string
}

// FileInfoHeaderSize is the size of the fixed part of EFI_FILE_INFO that
// precedes the CHAR16 file name.
const FileInfoHeaderSize = 8*3 + TimeSize*3 + 8

// IsDirectory reports whether the entry is a directory.
func (f *FileInfo) IsDirectory() bool {
	return f.Attribute.Has(FileDirectory)
}
