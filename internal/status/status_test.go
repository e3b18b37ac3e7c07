package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemolatoon/lemola-os/internal/types"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		status types.Status
		kind   error
	}{
		{"success", types.StatusSuccess, nil},
		{"warning is not an error", types.StatusWarnStaleData, nil},
		{"not found", types.StatusNotFound, ErrNotFound},
		{"buffer too small", types.StatusBufferTooSmall, ErrBufferTooSmall},
		{"access denied", types.StatusAccessDenied, ErrAccessDenied},
		{"write protected maps to access denied", types.StatusWriteProtected, ErrAccessDenied},
		{"volume corrupted", types.StatusVolumeCorrupted, ErrVolumeCorrupted},
		{"device error", types.StatusDeviceError, ErrDeviceError},
		{"unsupported", types.StatusUnsupported, ErrUnsupported},
		{"invalid parameter", types.StatusInvalidParameter, ErrInvalidParameter},
		{"other errors", types.StatusTimeout, ErrFirmware},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check("Op", tt.status)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), "Op: "+tt.status.String())
		})
	}
}

func TestCheckSized(t *testing.T) {
	err := CheckSized("GetInfo", types.StatusBufferTooSmall, 128, 64)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	required, ok := RequiredSize(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, uint64(128), required)

	_, ok = RequiredSize(Check("GetInfo", types.StatusDeviceError))
	assert.False(t, ok)
}

func TestKind(t *testing.T) {
	raw := Check("AllocatePages", types.StatusNotFound)
	wrapped := Wrap(ErrAllocationConflict, raw)

	assert.Equal(t, ErrAllocationConflict, Kind(wrapped))
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, ErrNotFound, Kind(raw))
	assert.Equal(t, ErrFirmware, Kind(errors.New("something else")))
	assert.Nil(t, Wrap(ErrShortRead, nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Wrap(ErrStaleMapKey, Check("ExitBootServices", types.StatusInvalidParameter))))
	assert.True(t, Retryable(fmt.Errorf("read: %w", ErrShortRead)))
	assert.False(t, Retryable(Check("Open", types.StatusNotFound)))
	assert.False(t, Retryable(ErrAllocationConflict))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "EFI_NOT_FOUND", types.StatusNotFound.String())
	assert.Equal(t, "EFI_ERROR(0x63)", (types.StatusErrorBit | 99).String())
	assert.True(t, types.StatusWarnBufferTooSmall.IsWarning())
	assert.False(t, types.StatusSuccess.IsWarning())
}
