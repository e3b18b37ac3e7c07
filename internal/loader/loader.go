// Package loader places the kernel image at its fixed physical address.
package loader

import (
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/fsaccess"
	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// DefaultMaxStalledReads is how many consecutive zero byte reads Load
// tolerates before giving up.
const DefaultMaxStalledReads = 8

// Config holds the load ABI and the loader's hardening switches.
type Config struct {
	// Base is the physical load address the kernel is linked for.
	Base uint64 `mapstructure:"base" json:"base" yaml:"base"`
	// EntryOffset is the entry symbol's offset from Base.
	EntryOffset uint64 `mapstructure:"entry_offset" json:"entry_offset" yaml:"entry_offset"`
	// MaxStalledReads bounds consecutive reads that deliver nothing.
	MaxStalledReads int `mapstructure:"max_stalled_reads" json:"max_stalled_reads" yaml:"max_stalled_reads"`
	// ValidateImage checks the ELF header before the image is accepted.
	ValidateImage bool `mapstructure:"validate_image" json:"validate_image" yaml:"validate_image"`
	// RequireEntryMatch additionally demands that the ELF entry equals
	// Base+EntryOffset.
	RequireEntryMatch bool `mapstructure:"require_entry_match" json:"require_entry_match" yaml:"require_entry_match"`
}

// DefaultConfig returns the build-time load ABI.
func DefaultConfig() Config {
	return Config{
		Base:            types.KernelLoadBase,
		EntryOffset:     types.KernelEntryOffset,
		MaxStalledReads: DefaultMaxStalledReads,
		ValidateImage:   true,
	}
}

// Allocation is a page range obtained at a fixed address.
type Allocation struct {
	Base  uint64
	Pages uint64
}

// Size returns the allocation size in bytes.
func (a Allocation) Size() uint64 {
	return a.Pages * types.PageSize
}

// Image is a kernel copied into its allocation.
type Image struct {
	Allocation Allocation
	// Size is the file size, which is also the number of bytes copied.
	Size  uint64
	Entry uint64
}

// Reader is the file side of Load.
type Reader interface {
	Read(dest []byte) (int, error)
}

var _ Reader = (*fsaccess.File)(nil)

// Loader allocates and fills the kernel's physical memory.
type Loader struct {
	bs     interfaces.BootServices
	memory interfaces.PhysicalMemory
	config Config
}

// New creates a loader. Zero config fields fall back to DefaultConfig.
func New(bs interfaces.BootServices, memory interfaces.PhysicalMemory, config Config) *Loader {
	def := DefaultConfig()
	if config.Base == 0 {
		config.Base = def.Base
	}
	if config.EntryOffset == 0 {
		config.EntryOffset = def.EntryOffset
	}
	if config.MaxStalledReads <= 0 {
		config.MaxStalledReads = def.MaxStalledReads
	}
	return &Loader{bs: bs, memory: memory, config: config}
}

// Config returns the effective configuration.
func (l *Loader) Config() Config {
	return l.config
}

// AllocateFixed reserves the pages covering length bytes at exactly address.
// A refused range is ErrAllocationConflict: the kernel cannot run anywhere
// else.
func (l *Loader) AllocateFixed(address, length uint64) (*Allocation, error) {
	if address%types.PageSize != 0 {
		return nil, status.Wrap(status.ErrInvalidParameter, fmt.Errorf("load address %#x is not page aligned", address))
	}
	if length == 0 {
		return nil, status.Wrap(status.ErrImageInvalid, fmt.Errorf("kernel image is empty"))
	}

	pages := types.PagesFor(length)
	memory := address
	st := l.bs.AllocatePages(types.AllocateAddress, types.LoaderData, pages, &memory)
	switch st {
	case types.StatusNotFound, types.StatusOutOfResources:
		return nil, status.Wrap(status.ErrAllocationConflict,
			fmt.Errorf("%d pages at %#x: %w", pages, address, status.Check("AllocatePages", st)))
	}
	if err := status.Check("AllocatePages", st); err != nil {
		return nil, fmt.Errorf("failed to allocate %d pages at %#x: %w", pages, address, err)
	}
	if memory != address {
		return nil, status.Wrap(status.ErrAllocationConflict,
			fmt.Errorf("firmware placed %d pages at %#x instead of %#x", pages, memory, address))
	}

	return &Allocation{Base: address, Pages: pages}, nil
}

// Load copies length bytes from f to the allocation. The firmware may return
// fewer bytes than asked for, so Load keeps asking for the remainder at an
// advancing offset. Consecutive reads that return nothing are capped by
// MaxStalledReads.
func (l *Loader) Load(f Reader, alloc *Allocation, length uint64) (int, error) {
	if length > alloc.Size() {
		return 0, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("%d bytes do not fit in %d pages", length, alloc.Pages))
	}

	buf := make([]byte, length)
	var offset uint64
	stalled := 0
	for offset < length {
		n, err := f.Read(buf[offset:])
		if err != nil {
			return int(offset), fmt.Errorf("failed to read kernel at offset %d: %w", offset, err)
		}
		if n == 0 {
			stalled++
			if stalled >= l.config.MaxStalledReads {
				return int(offset), status.Wrap(status.ErrShortRead,
					fmt.Errorf("got %d of %d bytes, %d reads returned nothing", offset, length, stalled))
			}
			continue
		}
		stalled = 0

		if err := l.memory.Write(alloc.Base+offset, buf[offset:offset+uint64(n)]); err != nil {
			return int(offset), fmt.Errorf("failed to write kernel at %#x: %w", alloc.Base+offset, err)
		}
		offset += uint64(n)
	}

	return int(offset), nil
}

// EntryPoint returns the entry address of a kernel loaded into alloc.
func (l *Loader) EntryPoint(alloc *Allocation) uint64 {
	return alloc.Base + l.config.EntryOffset
}

// LoadKernel opens path in dir, allocates its pages at the configured base,
// copies it and, when enabled, validates it. The size comes from the file's
// metadata.
func (l *Loader) LoadKernel(dir *fsaccess.Directory, path string) (*Image, error) {
	f, err := dir.Open(path, types.FileModeRead, 0)
	if err != nil {
		return nil, err
	}

	info, err := f.ReadInfo()
	if err != nil {
		return nil, err
	}
	if info.IsDirectory() {
		return nil, status.Wrap(status.ErrImageInvalid, fmt.Errorf("%s is a directory", f.Path()))
	}

	alloc, err := l.AllocateFixed(l.config.Base, info.FileSize)
	if err != nil {
		return nil, err
	}

	n, err := l.Load(f, alloc, info.FileSize)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Allocation: *alloc,
		Size:       uint64(n),
		Entry:      l.EntryPoint(alloc),
	}

	if l.config.ValidateImage {
		data, err := l.memory.Read(alloc.Base, img.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to read back kernel image: %w", err)
		}
		if err := Validate(data, img, l.config.RequireEntryMatch); err != nil {
			return nil, err
		}
	}

	return img, nil
}
