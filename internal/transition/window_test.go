package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lemolatoon/lemola-os/internal/console"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/simfw"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

//go:generate mockgen -destination "mock_interfaces_test.go" -package $GOPACKAGE -write_package_comment=false github.com/lemolatoon/lemola-os/internal/interfaces MemoryMapService,BootServicesExit,Platform

// window joins the two mocks into the narrowed surrender interface.
type window struct {
	*MockMemoryMapService
	*MockBootServicesExit
}

// serveMap answers GetMemoryMap with a two entry map and the given key.
func serveMap(key uint64) func(*uint64, []byte, *uint64, *uint64, *uint32) types.Status {
	return func(mapSize *uint64, buffer []byte, mapKey, descriptorSize *uint64, descriptorVersion *uint32) types.Status {
		encoded, _ := efi.EncodeMemoryMap([]types.MemoryDescriptor{
			{Type: types.LoaderData, PhysicalStart: 0x100000, NumberOfPages: 4},
			{Type: types.ConventionalMemory, PhysicalStart: 0x104000, NumberOfPages: 0x6fc},
		}, 48)
		copy(buffer, encoded)
		*mapSize = uint64(len(encoded))
		*mapKey = key
		*descriptorSize = 48
		*descriptorVersion = types.MemoryDescriptorVersion
		return types.StatusSuccess
	}
}

func newWindowController(t *testing.T, platform *MockPlatform) (*Controller, types.Handle) {
	t.Helper()
	fw, err := simfw.New(simfw.Config{})
	require.NoError(t, err)

	c := New(fw, platform, console.New(nil), DefaultConfig())
	return c, fw.ImageHandle()
}

func TestSurrenderResnapshotsOnStaleKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mm := NewMockMemoryMapService(ctrl)
	exit := NewMockBootServicesExit(ctrl)

	c, image := newWindowController(t, NewMockPlatform(ctrl))
	c.state = ImageLoaded

	gomock.InOrder(
		mm.EXPECT().GetMemoryMap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(serveMap(10)),
		exit.EXPECT().ExitBootServices(image, uint64(10)).Return(types.StatusInvalidParameter),
		mm.EXPECT().GetMemoryMap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(serveMap(11)),
		exit.EXPECT().ExitBootServices(image, uint64(11)).Return(types.StatusSuccess),
	)

	snap, attempts, err := c.surrender(window{mm, exit})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, snap.Count())
	assert.Equal(t, BootServicesSurrendered, c.State())

	h := c.History()
	require.Len(t, h, 4)
	assert.Equal(t, Transition{From: MapSnapshotted, To: ImageLoaded, Attempt: 1, Err: h[1].Err}, h[1])
	assert.ErrorIs(t, h[1].Err, status.ErrStaleMapKey)
	assert.Equal(t, 2, h[3].Attempt)
}

func TestSurrenderGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	mm := NewMockMemoryMapService(ctrl)
	exit := NewMockBootServicesExit(ctrl)

	c, image := newWindowController(t, NewMockPlatform(ctrl))
	c.state = ImageLoaded

	key := uint64(100)
	var calls []any
	for i := 0; i < DefaultMaxSurrenderAttempts; i++ {
		key++
		calls = append(calls,
			mm.EXPECT().GetMemoryMap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(serveMap(key)),
			exit.EXPECT().ExitBootServices(image, key).Return(types.StatusInvalidParameter),
		)
	}
	gomock.InOrder(calls...)

	_, attempts, err := c.surrender(window{mm, exit})
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrStaleMapKey)
	assert.Equal(t, DefaultMaxSurrenderAttempts, attempts)
	assert.Equal(t, ImageLoaded, c.State())
}

func TestSurrenderDoesNotRetryOtherFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	mm := NewMockMemoryMapService(ctrl)
	exit := NewMockBootServicesExit(ctrl)

	c, image := newWindowController(t, NewMockPlatform(ctrl))
	c.state = ImageLoaded

	gomock.InOrder(
		mm.EXPECT().GetMemoryMap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(serveMap(5)),
		exit.EXPECT().ExitBootServices(image, uint64(5)).Return(types.StatusDeviceError),
	)

	_, attempts, err := c.surrender(window{mm, exit})
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrDeviceError)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, MapSnapshotted, c.State())
}

func TestSurrenderBufferTooSmallIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mm := NewMockMemoryMapService(ctrl)
	exit := NewMockBootServicesExit(ctrl)

	c, _ := newWindowController(t, NewMockPlatform(ctrl))
	c.state = ImageLoaded

	mm.EXPECT().GetMemoryMap(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(mapSize *uint64, _ []byte, _, descriptorSize *uint64, _ *uint32) types.Status {
			*mapSize = 1 << 20
			*descriptorSize = 48
			return types.StatusBufferTooSmall
		})

	_, _, err := c.surrender(window{mm, exit})
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrBufferTooSmall)
	assert.Equal(t, ImageLoaded, c.State())
}

func TestTransferJumpsThenHalts(t *testing.T) {
	ctrl := gomock.NewController(t)
	platform := NewMockPlatform(ctrl)

	c, _ := newWindowController(t, platform)
	c.state = BootServicesSurrendered

	gomock.InOrder(
		platform.EXPECT().Jump(uint64(0x101000)),
		platform.EXPECT().Halt(),
	)

	c.transfer(0x101000)
	assert.Equal(t, ControlTransferred, c.State())
}

func TestBootHaltsWithoutJumpOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	platform := NewMockPlatform(ctrl)
	platform.EXPECT().Halt().Times(1)

	// No volume: the filesystem capability is missing.
	fw, err := simfw.New(simfw.Config{})
	require.NoError(t, err)

	c := New(fw, platform, console.New(fw.ConOut()), DefaultConfig())
	c.Boot()

	assert.Equal(t, Aborted, c.State())
	assert.Contains(t, fw.Output()[0], "boot aborted at Init: capability not found")
}
