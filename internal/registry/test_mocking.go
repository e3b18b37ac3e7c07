package registry

import (
	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// mockBootServices answers LocateProtocol from a fixed table and records the
// GUIDs it was asked for.
type mockBootServices struct {
	protocols map[types.Capability]any
	override  map[types.Capability]types.Status
	calls     []types.Capability
}

var _ interfaces.BootServices = (*mockBootServices)(nil)

func (m *mockBootServices) LocateProtocol(guid types.Capability, iface *any) types.Status {
	m.calls = append(m.calls, guid)
	if st, ok := m.override[guid]; ok {
		return st
	}
	p, ok := m.protocols[guid]
	if !ok {
		return types.StatusNotFound
	}
	*iface = p
	return types.StatusSuccess
}

func (m *mockBootServices) AllocatePages(types.AllocateType, types.MemoryType, uint64, *uint64) types.Status {
	return types.StatusUnsupported
}

func (m *mockBootServices) FreePages(uint64, uint64) types.Status {
	return types.StatusUnsupported
}

func (m *mockBootServices) GetMemoryMap(*uint64, []byte, *uint64, *uint64, *uint32) types.Status {
	return types.StatusUnsupported
}

func (m *mockBootServices) ExitBootServices(types.Handle, uint64) types.Status {
	return types.StatusUnsupported
}

type mockFileSystem struct{}

func (mockFileSystem) OpenVolume(*interfaces.FileProtocol) types.Status {
	return types.StatusUnsupported
}

type mockGraphics struct {
	mode types.GraphicsMode
}

func (g mockGraphics) Mode() types.GraphicsMode {
	return g.mode
}
