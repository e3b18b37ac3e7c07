package interfaces

import (
	"github.com/lemolatoon/lemola-os/internal/types"
)

// The interfaces in this file are the raw firmware protocol families. They keep
// the firmware calling convention: every call returns a types.Status and
// reports sizes and handles through pointer out-parameters. Only the wrapper
// packages (registry, memmap, fsaccess, loader, console) call them directly.

// BootServices provides the subset of EFI_BOOT_SERVICES used by the loader
// Reference: UEFI Specification 2.10, section 7
type BootServices interface {
	MemoryMapService
	BootServicesExit

	// LocateProtocol returns the first installed interface for guid.
	LocateProtocol(guid types.Capability, iface *any) types.Status

	// AllocatePages reserves pages of physical memory. With AllocateAddress,
	// *memory is both the requested and the returned address.
	AllocatePages(allocType types.AllocateType, memType types.MemoryType, pages uint64, memory *uint64) types.Status

	// FreePages releases pages obtained from AllocatePages.
	FreePages(memory uint64, pages uint64) types.Status
}

// MemoryMapService is the GetMemoryMap boot service on its own.
type MemoryMapService interface {
	// GetMemoryMap fills buffer with descriptors. *mapSize is the buffer size
	// on input and the bytes written (or the size required) on output.
	GetMemoryMap(mapSize *uint64, buffer []byte, mapKey *uint64, descriptorSize *uint64, descriptorVersion *uint32) types.Status
}

// BootServicesExit is the ExitBootServices boot service on its own.
type BootServicesExit interface {
	// ExitBootServices terminates all boot services. mapKey must be the key
	// of the current memory map.
	ExitBootServices(imageHandle types.Handle, mapKey uint64) types.Status
}

// SystemTable is the entry point view of EFI_SYSTEM_TABLE.
// Reference: section 4.3
type SystemTable interface {
	// ImageHandle is the handle of the running loader image.
	ImageHandle() types.Handle

	// BootServices returns the boot services table.
	BootServices() BootServices

	// ConOut returns the console output protocol installed by firmware.
	ConOut() SimpleTextOutputProtocol
}

// SimpleFileSystemProtocol is EFI_SIMPLE_FILE_SYSTEM_PROTOCOL.
// Reference: section 13.4
type SimpleFileSystemProtocol interface {
	// OpenVolume opens the root directory of the volume.
	OpenVolume(root *FileProtocol) types.Status
}

// FileProtocol is EFI_FILE_PROTOCOL.
// Reference: section 13.5
type FileProtocol interface {
	// Open opens fileName relative to this handle. fileName is UTF-16 and
	// NUL terminated.
	Open(newHandle *FileProtocol, fileName []uint16, openMode types.OpenMode, attributes types.FileAttribute) types.Status

	// Close closes the handle.
	Close() types.Status

	// Read reads up to *bufferSize bytes into buffer and stores the number of
	// bytes read back into *bufferSize.
	Read(bufferSize *uint64, buffer []byte) types.Status

	// GetPosition returns the current byte position of the file.
	GetPosition(position *uint64) types.Status

	// SetPosition moves the byte position of the file.
	SetPosition(position uint64) types.Status

	// GetInfo fills buffer with the information record identified by
	// infoType. On BufferTooSmall the required size is stored in *bufferSize.
	GetInfo(infoType types.Capability, bufferSize *uint64, buffer []byte) types.Status
}

// SimpleTextOutputProtocol is EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL.
// Reference: section 12.4
type SimpleTextOutputProtocol interface {
	Reset(extendedVerification bool) types.Status

	// OutputString writes a UTF-16, NUL terminated string.
	OutputString(s []uint16) types.Status

	ClearScreen() types.Status
}

// GraphicsOutputProtocol is the state side of EFI_GRAPHICS_OUTPUT_PROTOCOL.
// Reference: section 12.9
type GraphicsOutputProtocol interface {
	// Mode returns the current mode information and framebuffer location.
	Mode() types.GraphicsMode
}

// PhysicalMemory gives byte access to physical addresses. On hardware this is
// an identity mapped view of RAM.
type PhysicalMemory interface {
	Read(address uint64, length uint64) ([]byte, error)
	Write(address uint64, data []byte) error
}

// Platform is the processor side of the handoff.
type Platform interface {
	PhysicalMemory

	// Jump transfers control to entry under the native calling convention
	// with no arguments. It does not return unless the kernel returns.
	Jump(entry uint64)

	// Halt stops the processor in a low power wait state. It never returns.
	Halt()
}
