package memmap

import (
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// Sequence is a forward-only stream of descriptors.
type Sequence interface {
	// Next returns the next descriptor, or false when the stream is done.
	Next() (types.MemoryDescriptor, bool)
	// Err returns the error that stopped the stream, if any.
	Err() error
}

// Iterator walks a descriptor array by its runtime stride. It only ever
// reads within the count*stride bytes of its snapshot.
type Iterator struct {
	data   []byte
	stride int
	offset int
	err    error
}

// Next decodes the descriptor at the current offset.
func (it *Iterator) Next() (types.MemoryDescriptor, bool) {
	if it.err != nil || it.offset+it.stride > len(it.data) {
		return types.MemoryDescriptor{}, false
	}

	d, err := efi.ParseMemoryDescriptor(it.data[it.offset : it.offset+it.stride])
	if err != nil {
		it.err = fmt.Errorf("descriptor at offset %d: %w", it.offset, err)
		return types.MemoryDescriptor{}, false
	}
	it.offset += it.stride
	return d, true
}

// Err returns the decode error that stopped iteration.
func (it *Iterator) Err() error {
	return it.err
}

// Predicate selects descriptors.
type Predicate func(types.MemoryDescriptor) bool

type filtered struct {
	seq  Sequence
	pred Predicate
}

// Filter yields the descriptors of seq that satisfy pred. It has no side
// effects and is meant for diagnostics, not allocation decisions.
func Filter(seq Sequence, pred Predicate) Sequence {
	return &filtered{seq: seq, pred: pred}
}

func (f *filtered) Next() (types.MemoryDescriptor, bool) {
	for {
		d, ok := f.seq.Next()
		if !ok {
			return types.MemoryDescriptor{}, false
		}
		if f.pred(d) {
			return d, true
		}
	}
}

func (f *filtered) Err() error {
	return f.seq.Err()
}

// OfType selects descriptors of the given classification.
func OfType(t types.MemoryType) Predicate {
	return func(d types.MemoryDescriptor) bool {
		return d.Type == t
	}
}

// Usable selects memory the kernel may use once boot services are gone.
func Usable() Predicate {
	return func(d types.MemoryDescriptor) bool {
		return d.Type.IsUsable()
	}
}

// Collect drains seq into a slice.
func Collect(seq Sequence) ([]types.MemoryDescriptor, error) {
	var out []types.MemoryDescriptor
	for {
		d, ok := seq.Next()
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out, seq.Err()
}
