package efi

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// rawFileInfoHeader is the fixed part of EFI_FILE_INFO.
type rawFileInfoHeader struct {
	Size             uint64
	FileSize         uint64
	PhysicalSize     uint64
	CreateTime       types.Time
	LastAccessTime   types.Time
	ModificationTime types.Time
	Attribute        uint64
}

// ParseFileInfo decodes an EFI_FILE_INFO record. The record's own Size field
// bounds the file name; data may be longer than the record.
func ParseFileInfo(data []byte) (*types.FileInfo, error) {
	if len(data) < types.FileInfoHeaderSize {
		return nil, fmt.Errorf("file info too short: %d bytes, need at least %d", len(data), types.FileInfoHeaderSize)
	}

	var hdr rawFileInfoHeader
	if err := binary.Read(bytes.NewReader(data[:types.FileInfoHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to decode file info header: %w", err)
	}

	if hdr.Size < types.FileInfoHeaderSize || hdr.Size > uint64(len(data)) {
		return nil, fmt.Errorf("file info size %d out of range (buffer %d bytes)", hdr.Size, len(data))
	}

	nameBytes := data[types.FileInfoHeaderSize:hdr.Size]
	units := make([]uint16, len(nameBytes)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(nameBytes[2*i:])
	}
	name, err := DecodeUTF16(units)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file name: %w", err)
	}

	return &types.FileInfo{
		Size:             hdr.Size,
		FileSize:         hdr.FileSize,
		PhysicalSize:     hdr.PhysicalSize,
		CreateTime:       hdr.CreateTime,
		LastAccessTime:   hdr.LastAccessTime,
		ModificationTime: hdr.ModificationTime,
		Attribute:        types.FileAttribute(hdr.Attribute),
		FileName:         name,
	}, nil
}

// EncodeFileInfo builds an EFI_FILE_INFO record, filling in its Size field.
func EncodeFileInfo(info types.FileInfo) ([]byte, error) {
	name, err := EncodeUTF16(info.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file name %q: %w", info.FileName, err)
	}

	hdr := rawFileInfoHeader{
		Size:             uint64(types.FileInfoHeaderSize + 2*len(name)),
		FileSize:         info.FileSize,
		PhysicalSize:     info.PhysicalSize,
		CreateTime:       info.CreateTime,
		LastAccessTime:   info.LastAccessTime,
		ModificationTime: info.ModificationTime,
		Attribute:        uint64(info.Attribute),
	}

	buf := bytes.NewBuffer(make([]byte, 0, hdr.Size))
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to encode file info header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, name); err != nil {
		return nil, fmt.Errorf("failed to encode file name: %w", err)
	}
	return buf.Bytes(), nil
}
