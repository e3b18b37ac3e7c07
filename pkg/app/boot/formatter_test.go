package boot

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResponse() *Response {
	return &Response{
		AttemptID:  "cs1v3ac6n88c73a0m1ug",
		Source:     "Stub kernel",
		KernelPath: `\kernel.elf`,
		Outcome:    OutcomeTransferred,
		FinalState: "ControlTransferred",
		Halted:     true,
		Image:      &ImageInfo{Base: 0x100000, Pages: 3, Size: 12288, Entry: 0x101000},
		Attempts:   2,
		MemoryMap: &MemoryMapInfo{
			Descriptors: 2,
			Stride:      48,
			TotalPages:  0x9f + 3,
			UsablePages: 0x9f + 3,
			Regions: []RegionInfo{
				{Type: "EfiConventionalMemory", Start: 0x1000, Pages: 0x9f},
				{Type: "EfiLoaderData", Start: 0x100000, Pages: 3},
			},
		},
		Transitions: []TransitionInfo{
			{From: "Init", To: "CapabilitiesResolved"},
			{From: "MapSnapshotted", To: "ImageLoaded", Attempt: 1, Error: "stale memory map key"},
		},
		Calls:    map[string]int{"GetMemoryMap": 2, "ExitBootServices": 2},
		Console:  []string{"capabilities resolved\r\n", "kernel loaded\r\n"},
		Duration: 3 * time.Millisecond,
	}
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "transferred (ControlTransferred)")
				assert.Contains(t, output, `\kernel.elf, 12.0 KiB at 0x100000 (3 pages), entry 0x101000`)
				assert.Contains(t, output, "stale memory map key")
				assert.Contains(t, output, "0x00100000  0x00102fff")
				assert.Contains(t, output, "Firmware calls: ExitBootServices=2 GetMemoryMap=2")
				assert.Contains(t, output, "  capabilities resolved\n  kernel loaded\n")
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var decoded map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "transferred", decoded["outcome"])
				assert.EqualValues(t, 2, decoded["surrender_attempts"])
				assert.NotContains(t, decoded, "error")
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var decoded map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "cs1v3ac6n88c73a0m1ug", decoded["attempt_id"])
				image := decoded["image"].(map[string]any)
				assert.Equal(t, 0x101000, image["entry"])
			},
		},
		{
			name:    "unknown format",
			format:  "xml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := FormatOutput(&buf, sampleResponse(), tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, buf.String())
		})
	}
}

func TestFormatTableAborted(t *testing.T) {
	resp := &Response{
		Outcome:    OutcomeAborted,
		FinalState: "Aborted",
		Error:      &ErrorInfo{Code: "KERNEL_NOT_FOUND", Kind: "not found", State: "CapabilitiesResolved", Message: "boot aborted"},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, resp, "table"))
	out := buf.String()
	assert.Contains(t, out, "aborted (Aborted)")
	assert.Contains(t, out, "[KERNEL_NOT_FOUND] boot aborted")
	assert.NotContains(t, out, "Memory map")
}
