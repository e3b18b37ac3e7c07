package simfw

import (
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// GetMemoryMap encodes the current regions at the configured stride.
func (f *Firmware) GetMemoryMap(mapSize *uint64, buffer []byte, mapKey *uint64, descriptorSize *uint64, descriptorVersion *uint32) types.Status {
	st, hook := f.getMemoryMap(mapSize, buffer, mapKey, descriptorSize, descriptorVersion)
	if hook != nil {
		hook(f)
	}
	return st
}

func (f *Firmware) getMemoryMap(mapSize *uint64, buffer []byte, mapKey *uint64, descriptorSize *uint64, descriptorVersion *uint32) (types.Status, func(*Firmware)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("GetMemoryMap", types.StatusUnsupported, 0), nil
	}
	if mapSize == nil {
		return f.record("GetMemoryMap", types.StatusInvalidParameter, 0), nil
	}

	stride := uint64(f.config.DescriptorSize)
	need := uint64(len(f.regions)) * stride
	if descriptorSize != nil {
		*descriptorSize = stride
	}
	if descriptorVersion != nil {
		*descriptorVersion = types.MemoryDescriptorVersion
	}
	if *mapSize < need {
		*mapSize = need
		return f.record("GetMemoryMap", types.StatusBufferTooSmall, 0), nil
	}
	if uint64(len(buffer)) < need || mapKey == nil {
		return f.record("GetMemoryMap", types.StatusInvalidParameter, 0), nil
	}

	encoded, err := efi.EncodeMemoryMap(f.regions, int(stride))
	if err != nil {
		return f.record("GetMemoryMap", types.StatusDeviceError, 0), nil
	}
	copy(buffer, encoded)
	*mapSize = need
	*mapKey = f.epoch
	return f.record("GetMemoryMap", types.StatusSuccess, f.epoch), f.AfterGetMemoryMap
}

// ExitBootServices retires every boot service if mapKey is current.
func (f *Firmware) ExitBootServices(imageHandle types.Handle, mapKey uint64) types.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("ExitBootServices", types.StatusUnsupported, mapKey)
	}
	if imageHandle != f.config.ImageHandle || mapKey != f.epoch {
		return f.record("ExitBootServices", types.StatusInvalidParameter, mapKey)
	}
	f.exited = true
	return f.record("ExitBootServices", types.StatusSuccess, mapKey)
}

// AllocatePages carves pages out of conventional memory.
func (f *Firmware) AllocatePages(allocType types.AllocateType, memType types.MemoryType, pages uint64, memory *uint64) types.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("AllocatePages", types.StatusUnsupported, 0)
	}
	if memory == nil || pages == 0 || !memType.IsValid() || memType == types.ConventionalMemory {
		return f.record("AllocatePages", types.StatusInvalidParameter, 0)
	}

	var start uint64
	switch allocType {
	case types.AllocateAddress:
		start = *memory
		if start%types.PageSize != 0 {
			return f.record("AllocatePages", types.StatusInvalidParameter, 0)
		}
		if !f.freeRange(start, pages) {
			return f.record("AllocatePages", types.StatusNotFound, 0)
		}
	case types.AllocateAnyPages, types.AllocateMaxAddress:
		limit := ^uint64(0)
		if allocType == types.AllocateMaxAddress {
			limit = *memory
		}
		var ok bool
		start, ok = f.findTopDown(pages, limit)
		if !ok {
			return f.record("AllocatePages", types.StatusOutOfResources, 0)
		}
	default:
		return f.record("AllocatePages", types.StatusInvalidParameter, 0)
	}

	f.retype(start, pages, memType)
	f.epoch++
	*memory = start
	return f.record("AllocatePages", types.StatusSuccess, 0)
}

// FreePages returns pages to conventional memory. The range must lie inside a
// single allocated region.
func (f *Firmware) FreePages(memory uint64, pages uint64) types.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("FreePages", types.StatusUnsupported, 0)
	}
	if memory%types.PageSize != 0 || pages == 0 {
		return f.record("FreePages", types.StatusInvalidParameter, 0)
	}

	i := f.find(memory, pages)
	if i < 0 {
		return f.record("FreePages", types.StatusNotFound, 0)
	}
	switch f.regions[i].Type {
	case types.LoaderCode, types.LoaderData, types.BootServicesCode, types.BootServicesData:
	default:
		return f.record("FreePages", types.StatusNotFound, 0)
	}

	f.retype(memory, pages, types.ConventionalMemory)
	f.epoch++
	return f.record("FreePages", types.StatusSuccess, 0)
}

// find returns the index of the region holding [start, start+pages), or -1.
func (f *Firmware) find(start, pages uint64) int {
	for i, r := range f.regions {
		if r.Contains(start, pages*types.PageSize) {
			return i
		}
	}
	return -1
}

func (f *Firmware) freeRange(start, pages uint64) bool {
	i := f.find(start, pages)
	return i >= 0 && f.regions[i].Type == types.ConventionalMemory
}

// findTopDown picks the highest conventional range of pages ending at or
// below limit.
func (f *Firmware) findTopDown(pages, limit uint64) (uint64, bool) {
	size := pages * types.PageSize
	for i := len(f.regions) - 1; i >= 0; i-- {
		r := f.regions[i]
		if r.Type != types.ConventionalMemory || r.NumberOfPages < pages {
			continue
		}
		end := r.PhysicalEnd()
		if limit != ^uint64(0) && end > limit+1 {
			end = (limit + 1) &^ (types.PageSize - 1)
		}
		if end < r.PhysicalStart+size {
			continue
		}
		return end - size, true
	}
	return 0, false
}

// retype changes the type of a range inside one region, splitting it, then
// merges neighbours of equal type and attributes.
func (f *Firmware) retype(start, pages uint64, to types.MemoryType) {
	i := f.find(start, pages)
	r := f.regions[i]
	end := start + pages*types.PageSize

	var parts []types.MemoryDescriptor
	if start > r.PhysicalStart {
		parts = append(parts, types.MemoryDescriptor{
			Type: r.Type, PhysicalStart: r.PhysicalStart,
			NumberOfPages: (start - r.PhysicalStart) / types.PageSize, Attribute: r.Attribute,
		})
	}
	parts = append(parts, types.MemoryDescriptor{
		Type: to, PhysicalStart: start, NumberOfPages: pages, Attribute: r.Attribute,
	})
	if end < r.PhysicalEnd() {
		parts = append(parts, types.MemoryDescriptor{
			Type: r.Type, PhysicalStart: end,
			NumberOfPages: (r.PhysicalEnd() - end) / types.PageSize, Attribute: r.Attribute,
		})
	}

	regions := make([]types.MemoryDescriptor, 0, len(f.regions)+2)
	regions = append(regions, f.regions[:i]...)
	regions = append(regions, parts...)
	regions = append(regions, f.regions[i+1:]...)
	f.regions = merge(regions)
}

func merge(regions []types.MemoryDescriptor) []types.MemoryDescriptor {
	out := regions[:0]
	for _, r := range regions {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.Type == r.Type && prev.Attribute == r.Attribute && prev.PhysicalEnd() == r.PhysicalStart {
				prev.NumberOfPages += r.NumberOfPages
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
