// Package efi decodes and encodes the firmware's binary records: memory
// descriptors at a runtime stride, EFI_FILE_INFO and UTF-16 strings.
package efi

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// rawMemoryDescriptor is the on-the-wire layout of EFI_MEMORY_DESCRIPTOR.
type rawMemoryDescriptor struct {
	Type          uint32
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// ParseMemoryDescriptor decodes one descriptor from the start of data. Bytes
// past types.MemoryDescriptorSize belong to fields this loader does not know
// about and are ignored.
func ParseMemoryDescriptor(data []byte) (types.MemoryDescriptor, error) {
	if len(data) < types.MemoryDescriptorSize {
		return types.MemoryDescriptor{}, fmt.Errorf("memory descriptor too short: %d bytes, need %d", len(data), types.MemoryDescriptorSize)
	}

	var raw rawMemoryDescriptor
	if err := binary.Read(bytes.NewReader(data[:types.MemoryDescriptorSize]), binary.LittleEndian, &raw); err != nil {
		return types.MemoryDescriptor{}, fmt.Errorf("failed to decode memory descriptor: %w", err)
	}

	return types.MemoryDescriptor{
		Type:          types.MemoryType(raw.Type),
		PhysicalStart: raw.PhysicalStart,
		VirtualStart:  raw.VirtualStart,
		NumberOfPages: raw.NumberOfPages,
		Attribute:     raw.Attribute,
	}, nil
}

// PutMemoryDescriptor encodes d into dst, which must be at least
// types.MemoryDescriptorSize bytes. Trailing bytes up to the stride are zeroed.
func PutMemoryDescriptor(dst []byte, d types.MemoryDescriptor) error {
	if len(dst) < types.MemoryDescriptorSize {
		return fmt.Errorf("descriptor slot too short: %d bytes, need %d", len(dst), types.MemoryDescriptorSize)
	}

	le := binary.LittleEndian
	le.PutUint32(dst[0:], uint32(d.Type))
	le.PutUint32(dst[4:], 0)
	le.PutUint64(dst[8:], d.PhysicalStart)
	le.PutUint64(dst[16:], d.VirtualStart)
	le.PutUint64(dst[24:], d.NumberOfPages)
	le.PutUint64(dst[32:], d.Attribute)
	for i := types.MemoryDescriptorSize; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// EncodeMemoryMap lays descriptors out at the given stride.
func EncodeMemoryMap(descriptors []types.MemoryDescriptor, stride int) ([]byte, error) {
	if stride < types.MemoryDescriptorSize {
		return nil, fmt.Errorf("stride %d is smaller than a descriptor (%d)", stride, types.MemoryDescriptorSize)
	}

	buf := make([]byte, len(descriptors)*stride)
	for i, d := range descriptors {
		if err := PutMemoryDescriptor(buf[i*stride:(i+1)*stride], d); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
