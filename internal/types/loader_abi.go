package types

// Loader ABI
//
// These values are shared with the kernel's linker script and must match it
// byte for byte. They are a build-time contract, not negotiated at run time.

const (
	// KernelLoadBase is the physical address the kernel image is copied to.
	KernelLoadBase uint64 = 0x100000

	// KernelEntryOffset is the offset of the kernel entry symbol from
	// KernelLoadBase.
	KernelEntryOffset uint64 = 0x1000

	// KernelPath is the path of the kernel image on the boot volume.
	KernelPath = `\kernel.elf`

	// MemoryMapBufferPages is the size of the static memory map buffer in pages.
	MemoryMapBufferPages = 4
)

// Handle is an opaque firmware handle such as the loaded image handle passed to
// the loader entry point.
type Handle uint64

// PixelFormat is the EFI_GRAPHICS_PIXEL_FORMAT of a framebuffer.
// Reference: UEFI Specification 2.10, section 12.9
type PixelFormat uint32

const (
	PixelRedGreenBlueReserved8BitPerColor PixelFormat = iota
	PixelBlueGreenRedReserved8BitPerColor
	PixelBitMask
	PixelBltOnly
	PixelFormatMax
)

// GraphicsMode mirrors the read-only state fields of
// EFI_GRAPHICS_OUTPUT_PROTOCOL_MODE together with its mode information.
type GraphicsMode struct {
	MaxMode              uint32
	Mode                 uint32
	HorizontalResolution uint32
	VerticalResolution   uint32
	PixelFormat          PixelFormat
	PixelsPerScanLine    uint32
	FrameBufferBase      uint64
	FrameBufferSize      uint64
}
