package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	elf64HeaderSize = 64
	elf64PhdrSize   = 56
)

// StubImage builds a minimal x86-64 ELF executable of size bytes linked for
// config: one PT_LOAD segment covering the file at config.Base, with its
// entry at Base+EntryOffset. The body past the header is hlt instructions.
// The simulator boots it when no kernel file is given.
func StubImage(config Config, size int) []byte {
	if size < elf64HeaderSize+elf64PhdrSize {
		size = elf64HeaderSize + elf64PhdrSize
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     config.Base + config.EntryOffset,
		Phoff:     elf64HeaderSize,
		Ehsize:    elf64HeaderSize,
		Phentsize: elf64PhdrSize,
		Phnum:     1,
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	phdr := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    0,
		Vaddr:  config.Base,
		Paddr:  config.Base,
		Filesz: uint64(size),
		Memsz:  uint64(size),
		Align:  0x1000,
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	_ = binary.Write(buf, binary.LittleEndian, &hdr)
	_ = binary.Write(buf, binary.LittleEndian, &phdr)

	out := buf.Bytes()
	body := make([]byte, size-len(out))
	for i := range body {
		body[i] = 0xf4 // hlt
	}
	return append(out, body...)
}
