package transition

import (
	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/memmap"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// surrenderServices is everything the critical window can reach: the map
// query and the exit call. No console, no allocator, no hook.
type surrenderServices interface {
	interfaces.MemoryMapService
	interfaces.BootServicesExit
}

// snapshotAndSurrender queries the memory map into buf and immediately exits
// boot services with its key. A rejected key is ErrStaleMapKey; the returned
// snapshot is then spent and the caller must query again.
//
// A non-nil snapshot means the query succeeded, whatever the error.
func snapshotAndSurrender(fw surrenderServices, image types.Handle, buf []byte) (*memmap.Snapshot, error) {
	snap, err := memmap.Query(fw, buf)
	if err != nil {
		return nil, err
	}

	key, err := snap.TakeKey()
	if err != nil {
		return snap, err
	}

	st := fw.ExitBootServices(image, key.Value())
	if st == types.StatusInvalidParameter {
		return snap, status.Wrap(status.ErrStaleMapKey, status.Check("ExitBootServices", st))
	}
	return snap, status.Check("ExitBootServices", st)
}
