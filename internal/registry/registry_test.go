package registry

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

func TestLocate(t *testing.T) {
	gop := mockGraphics{mode: types.GraphicsMode{HorizontalResolution: 800, VerticalResolution: 600}}
	bs := &mockBootServices{
		protocols: map[types.Capability]any{
			types.SimpleFileSystemProtocolGUID: mockFileSystem{},
			types.GraphicsOutputProtocolGUID:   gop,
		},
	}
	r := New(bs)

	t.Run("installed capability", func(t *testing.T) {
		fs, err := r.FileSystem()
		require.NoError(t, err)
		assert.NotNil(t, fs)

		g, err := r.Graphics()
		require.NoError(t, err)
		assert.Equal(t, uint32(800), g.Mode().HorizontalResolution)
	})

	t.Run("no caching", func(t *testing.T) {
		bs.calls = nil
		first, err := r.Locate(types.GraphicsOutputProtocolGUID)
		require.NoError(t, err)
		second, err := r.Locate(types.GraphicsOutputProtocolGUID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, bs.calls, 2)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := Locate[mockFileSystem](r, types.GraphicsOutputProtocolGUID)
		require.Error(t, err)
		assert.ErrorIs(t, err, status.ErrUnsupported)
	})
}

// loadedImage is EFI_LOADED_IMAGE_PROTOCOL, which the loader never asks for.
var loadedImage = types.MustCapability("5b1b31a1-9562-11d2-8e3f-00a0c969723b")

func TestLocateNeverNullButSuccessful(t *testing.T) {
	installed := types.SimpleFileSystemProtocolGUID
	bs := &mockBootServices{
		protocols: map[types.Capability]any{installed: mockFileSystem{}},
	}
	r := New(bs)

	tests := []struct {
		name string
		guid types.Capability
	}{
		{"graphics output", types.GraphicsOutputProtocolGUID},
		{"text output", types.SimpleTextOutputProtocolGUID},
		{"loaded image", loadedImage},
		{"random", types.Capability{UUID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iface, err := r.Locate(tt.guid)
			require.Error(t, err)
			assert.Nil(t, iface)
			assert.ErrorIs(t, err, status.ErrCapabilityNotFound)
			assert.False(t, status.Retryable(err))
		})
	}

	t.Run("success without interface", func(t *testing.T) {
		bs.protocols[loadedImage] = nil
		iface, err := r.Locate(loadedImage)
		require.Error(t, err)
		assert.Nil(t, iface)
		assert.ErrorIs(t, err, status.ErrCapabilityNotFound)
	})
}

func TestLocateFirmwareFailure(t *testing.T) {
	bs := &mockBootServices{
		override: map[types.Capability]types.Status{
			types.SimpleFileSystemProtocolGUID: types.StatusInvalidParameter,
		},
	}
	_, err := New(bs).FileSystem()
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrInvalidParameter)
	assert.False(t, errors.Is(err, status.ErrCapabilityNotFound))
}
