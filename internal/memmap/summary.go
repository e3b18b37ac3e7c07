package memmap

import (
	"fmt"
	"sort"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// Summary totals a memory map per classification.
type Summary struct {
	Descriptors int
	TotalPages  uint64
	UsablePages uint64
	PagesByType map[types.MemoryType]uint64
}

// Summarize walks seq once and totals its pages.
func Summarize(seq Sequence) (*Summary, error) {
	s := &Summary{PagesByType: make(map[types.MemoryType]uint64)}
	for {
		d, ok := seq.Next()
		if !ok {
			break
		}
		s.Descriptors++
		s.TotalPages += d.NumberOfPages
		s.PagesByType[d.Type] += d.NumberOfPages
		if d.Type.IsUsable() {
			s.UsablePages += d.NumberOfPages
		}
	}
	if err := seq.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// TotalBytes returns the size of all described memory.
func (s *Summary) TotalBytes() uint64 {
	return s.TotalPages * types.PageSize
}

// UsableBytes returns the size of memory usable after boot services exit.
func (s *Summary) UsableBytes() uint64 {
	return s.UsablePages * types.PageSize
}

// Types returns the classifications present, in numeric order.
func (s *Summary) Types() []types.MemoryType {
	out := make([]types.MemoryType, 0, len(s.PagesByType))
	for t := range s.PagesByType {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Describe formats a descriptor as a single diagnostic line.
func Describe(d types.MemoryDescriptor) string {
	end := d.PhysicalStart
	if d.NumberOfPages > 0 {
		end = d.PhysicalEnd() - 1
	}
	return fmt.Sprintf("{ addr: [ 0x%08x - 0x%08x ], memory_type: %s }", d.PhysicalStart, end, d.Type)
}
