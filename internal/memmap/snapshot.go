// Package memmap queries and interprets the firmware memory map.
//
// A Snapshot is only valid until the next firmware call that can change
// memory ownership. Its map key can be taken exactly once, which keeps a
// stale key from ever reaching ExitBootServices twice.
package memmap

import (
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// maxResizeAttempts bounds QueryResized.
const maxResizeAttempts = 3

// MapKey is the epoch token of one memory map. Only this package creates
// keys, and each Snapshot hands its key out at most once.
type MapKey struct {
	value uint64
}

// Value returns the raw key for ExitBootServices.
func (k MapKey) Value() uint64 {
	return k.value
}

// Snapshot is one GetMemoryMap result: a descriptor array addressed by the
// stride the firmware reported.
type Snapshot struct {
	data    []byte
	count   int
	stride  int
	version uint32
	key     uint64
	taken   bool
}

// NewBuffer returns a zeroed buffer of the given number of pages.
func NewBuffer(pages int) []byte {
	if pages <= 0 {
		pages = types.MemoryMapBufferPages
	}
	return make([]byte, pages*types.PageSize)
}

// Query fills buf with the current memory map. A buffer that is too small is
// reported as *status.BufferTooSmallError carrying the size the firmware
// asked for; Query itself never resizes.
func Query(bs interfaces.MemoryMapService, buf []byte) (*Snapshot, error) {
	mapSize := uint64(len(buf))
	var key, descSize uint64
	var version uint32

	st := bs.GetMemoryMap(&mapSize, buf, &key, &descSize, &version)
	if err := status.CheckSized("GetMemoryMap", st, mapSize, uint64(len(buf))); err != nil {
		return nil, err
	}

	if descSize < types.MemoryDescriptorSize {
		return nil, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("descriptor size %d is smaller than %d", descSize, types.MemoryDescriptorSize))
	}
	if mapSize > uint64(len(buf)) {
		return nil, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("map size %d exceeds buffer of %d bytes", mapSize, len(buf)))
	}
	if mapSize%descSize != 0 {
		return nil, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("map size %d is not a multiple of descriptor size %d", mapSize, descSize))
	}

	count := int(mapSize / descSize)
	stride := int(descSize)
	return &Snapshot{
		data:    buf[:count*stride],
		count:   count,
		stride:  stride,
		version: version,
		key:     key,
	}, nil
}

// QueryResized is Query for diagnostics: on BufferTooSmall it allocates
// exactly the reported size and asks again. It must not be used between
// loading the kernel and exiting boot services.
func QueryResized(bs interfaces.MemoryMapService, initial int) (*Snapshot, error) {
	if initial < 0 {
		return nil, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("memory map: negative buffer size %d", initial))
	}
	buf := make([]byte, initial)
	var lastErr error
	for attempt := 0; attempt < maxResizeAttempts; attempt++ {
		snap, err := Query(bs, buf)
		if err == nil {
			return snap, nil
		}
		required, ok := status.RequiredSize(err)
		if !ok {
			return nil, err
		}
		if required <= uint64(len(buf)) {
			return nil, fmt.Errorf("firmware asked for %d bytes with a %d byte buffer: %w", required, len(buf), err)
		}
		lastErr = err
		buf = make([]byte, required)
	}
	return nil, fmt.Errorf("memory map still too large after %d attempts: %w", maxResizeAttempts, lastErr)
}

// Count returns the number of descriptors.
func (s *Snapshot) Count() int { return s.count }

// Stride returns the firmware reported descriptor size.
func (s *Snapshot) Stride() int { return s.stride }

// Version returns the descriptor version.
func (s *Snapshot) Version() uint32 { return s.version }

// Len returns the number of bytes the snapshot covers, count*stride.
func (s *Snapshot) Len() int { return len(s.data) }

// TakeKey hands out the map key. The second call fails with ErrStaleMapKey:
// a key is consumed by exactly one ExitBootServices attempt.
func (s *Snapshot) TakeKey() (MapKey, error) {
	if s.taken {
		return MapKey{}, status.Wrap(status.ErrStaleMapKey, fmt.Errorf("memory map key already taken"))
	}
	s.taken = true
	return MapKey{value: s.key}, nil
}

// Iter returns a forward-only iterator over the descriptors. Restarting means
// calling Iter again on the same snapshot or querying a fresh one.
func (s *Snapshot) Iter() *Iterator {
	return &Iterator{data: s.data, stride: s.stride}
}

// Descriptors collects every descriptor of the snapshot.
func (s *Snapshot) Descriptors() ([]types.MemoryDescriptor, error) {
	return Collect(s.Iter())
}
