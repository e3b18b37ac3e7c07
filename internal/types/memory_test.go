package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemoryType(t *testing.T) {
	tests := []struct {
		name string
		want MemoryType
	}{
		{"EfiConventionalMemory", ConventionalMemory},
		{"ConventionalMemory", ConventionalMemory},
		{"efiloaderdata", LoaderData},
		{"efiConventionalMemory", ConventionalMemory},
		{"EFILOADERCODE", LoaderCode},
		{"EfiReservedMemoryType", ReservedMemoryType},
		{"UnacceptedMemoryType", UnacceptedMemoryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMemoryType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMemoryType("EfiMaxMemoryType")
	assert.Error(t, err)
	_, err = ParseMemoryType("Flash")
	assert.Error(t, err)
}

func TestMemoryTypeText(t *testing.T) {
	data, err := json.Marshal([]MemoryType{LoaderData, MemoryType(42)})
	require.NoError(t, err)
	assert.Equal(t, `["EfiLoaderData","EfiMemoryType(42)"]`, string(data))

	var back MemoryType
	require.NoError(t, json.Unmarshal([]byte(`"EfiACPIMemoryNVS"`), &back))
	assert.Equal(t, ACPIMemoryNVS, back)
}

func TestMemoryDescriptor(t *testing.T) {
	d := MemoryDescriptor{Type: ConventionalMemory, PhysicalStart: 0x100000, NumberOfPages: 4}
	assert.Equal(t, uint64(0x104000), d.PhysicalEnd())
	assert.Equal(t, uint64(0x4000), d.Size())
	assert.True(t, d.Contains(0x100000, 0x4000))
	assert.False(t, d.Contains(0x103000, 0x2000))

	assert.Equal(t, uint64(0), PagesFor(0))
	assert.Equal(t, uint64(1), PagesFor(1))
	assert.Equal(t, uint64(4), PagesFor(12345))

	assert.True(t, BootServicesData.IsUsable())
	assert.False(t, RuntimeServicesData.IsUsable())
	assert.False(t, MaxMemoryType.IsValid())
}
