package loader

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/status"
)

// Validate checks that data looks like a kernel this loader can start: a
// little endian x86-64 ELF64 whose entry lands inside the loaded image.
// With requireEntryMatch the ELF entry must equal img.Entry exactly.
func Validate(data []byte, img *Image, requireEntryMatch bool) error {
	if len(data) < 16 || !bytes.Equal(data[:4], []byte(elf.ELFMAG)) {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: missing ELF magic"))
	}
	if elf.Class(data[elf.EI_CLASS]) != elf.ELFCLASS64 {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: class %s, want ELFCLASS64", elf.Class(data[elf.EI_CLASS])))
	}
	if elf.Data(data[elf.EI_DATA]) != elf.ELFDATA2LSB {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: data encoding %s, want ELFDATA2LSB", elf.Data(data[elf.EI_DATA])))
	}

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: %w", err))
	}
	defer f.Close()

	if f.Machine != elf.EM_X86_64 {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: machine %s, want EM_X86_64", f.Machine))
	}
	if f.Type != elf.ET_EXEC {
		return status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image: type %s, want ET_EXEC", f.Type))
	}

	end := img.Allocation.Base + img.Size
	if img.Entry < img.Allocation.Base || img.Entry >= end {
		return status.Wrap(status.ErrImageInvalid,
			fmt.Errorf("kernel image: entry %#x outside image [%#x, %#x)", img.Entry, img.Allocation.Base, end))
	}
	if requireEntryMatch && f.Entry != img.Entry {
		return status.Wrap(status.ErrImageInvalid,
			fmt.Errorf("kernel image: ELF entry %#x does not match load ABI entry %#x", f.Entry, img.Entry))
	}

	return nil
}
