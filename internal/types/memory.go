package types

import (
	"fmt"
	"strings"
)

// Memory Allocation Services
// Reference: UEFI Specification 2.10, section 7.2 "Memory Allocation Services"

// PageSize is the firmware page size in bytes. AllocatePages and the
// NumberOfPages field of a memory descriptor are always expressed in these units.
const PageSize = 4096

// MemoryType is the EFI_MEMORY_TYPE classification of a physical region.
type MemoryType uint32

// EFI_MEMORY_TYPE
// Reference: section 7.2, Table 7.10
const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
	UnacceptedMemoryType
	MaxMemoryType
)

var memoryTypeNames = [...]string{
	"EfiReservedMemoryType",
	"EfiLoaderCode",
	"EfiLoaderData",
	"EfiBootServicesCode",
	"EfiBootServicesData",
	"EfiRuntimeServicesCode",
	"EfiRuntimeServicesData",
	"EfiConventionalMemory",
	"EfiUnusableMemory",
	"EfiACPIReclaimMemory",
	"EfiACPIMemoryNVS",
	"EfiMemoryMappedIO",
	"EfiMemoryMappedIOPortSpace",
	"EfiPalCode",
	"EfiPersistentMemory",
	"EfiUnacceptedMemoryType",
	"EfiMaxMemoryType",
}

func (t MemoryType) String() string {
	if int(t) < len(memoryTypeNames) {
		return memoryTypeNames[t]
	}
	return fmt.Sprintf("EfiMemoryType(%d)", uint32(t))
}

// ParseMemoryType maps a type name, in any case and with or without the "Efi"
// prefix, back to its MemoryType.
func ParseMemoryType(name string) (MemoryType, error) {
	want := strings.TrimPrefix(strings.ToLower(name), "efi")
	for i, n := range memoryTypeNames[:MaxMemoryType] {
		if strings.TrimPrefix(strings.ToLower(n), "efi") == want {
			return MemoryType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown memory type %q", name)
}

// MarshalText encodes the type by name.
func (t MemoryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names ParseMemoryType accepts.
func (t *MemoryType) UnmarshalText(text []byte) error {
	parsed, err := ParseMemoryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsValid reports whether the type is one of the defined classifications.
func (t MemoryType) IsValid() bool {
	return t < MaxMemoryType
}

// IsUsable reports whether the region becomes general purpose RAM once boot
// services have been exited.
// Reference: section 7.2, Table 7.11 "Memory Type Usage after ExitBootServices()"
func (t MemoryType) IsUsable() bool {
	switch t {
	case LoaderCode, LoaderData, BootServicesCode, BootServicesData, ConventionalMemory:
		return true
	}
	return false
}

// AllocateType is the EFI_ALLOCATE_TYPE passed to AllocatePages.
type AllocateType uint32

// EFI_ALLOCATE_TYPE
// Reference: section 7.2, EFI_BOOT_SERVICES.AllocatePages()
const (
	AllocateAnyPages AllocateType = iota
	AllocateMaxAddress
	AllocateAddress
	MaxAllocateType
)

func (t AllocateType) String() string {
	switch t {
	case AllocateAnyPages:
		return "AllocateAnyPages"
	case AllocateMaxAddress:
		return "AllocateMaxAddress"
	case AllocateAddress:
		return "AllocateAddress"
	}
	return fmt.Sprintf("AllocateType(%d)", uint32(t))
}

// Memory attribute bits of a memory descriptor.
// Reference: section 7.2, "Memory Attribute Definitions"
const (
	MemoryUC           uint64 = 0x0000000000000001
	MemoryWC           uint64 = 0x0000000000000002
	MemoryWT           uint64 = 0x0000000000000004
	MemoryWB           uint64 = 0x0000000000000008
	MemoryUCE          uint64 = 0x0000000000000010
	MemoryWP           uint64 = 0x0000000000001000
	MemoryRP           uint64 = 0x0000000000002000
	MemoryXP           uint64 = 0x0000000000004000
	MemoryNV           uint64 = 0x0000000000008000
	MemoryMoreReliable uint64 = 0x0000000000010000
	MemoryRO           uint64 = 0x0000000000020000
	MemoryRuntime      uint64 = 0x8000000000000000
)

// MemoryDescriptor is one EFI_MEMORY_DESCRIPTOR record.
// Reference: section 7.2, EFI_BOOT_SERVICES.GetMemoryMap()
type MemoryDescriptor struct {
	// Type of the memory region.
	Type MemoryType
	// Physical address of the first byte, aligned on a 4 KiB boundary.
	PhysicalStart uint64
	// Virtual address of the first byte, aligned on a 4 KiB boundary.
	VirtualStart uint64
	// Number of 4 KiB pages in the region.
	NumberOfPages uint64
	// Capability bits of the region.
	Attribute uint64
}

// MemoryDescriptorSize is the minimal encoded size of a descriptor: a 32-bit
// type, 4 bytes of padding and four 64-bit fields. Firmware reports its actual
// stride through GetMemoryMap and may append fields beyond this size.
const MemoryDescriptorSize = 40

// MemoryDescriptorVersion is the EFI_MEMORY_DESCRIPTOR_VERSION.
const MemoryDescriptorVersion = 1

// PhysicalEnd returns the first address past the region.
func (d MemoryDescriptor) PhysicalEnd() uint64 {
	return d.PhysicalStart + d.NumberOfPages*PageSize
}

// Size returns the region size in bytes.
func (d MemoryDescriptor) Size() uint64 {
	return d.NumberOfPages * PageSize
}

// Contains reports whether [addr, addr+length) lies inside the region.
func (d MemoryDescriptor) Contains(addr, length uint64) bool {
	return addr >= d.PhysicalStart && addr+length <= d.PhysicalEnd() && addr+length >= addr
}

// PagesFor returns the number of pages needed to hold length bytes.
func PagesFor(length uint64) uint64 {
	return (length + PageSize - 1) / PageSize
}
