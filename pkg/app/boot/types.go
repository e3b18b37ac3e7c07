package boot

import (
	"fmt"
	"time"

	"github.com/lemolatoon/lemola-os/pkg/app"
)

// Request describes one simulated boot.
type Request struct {
	ConfigPath string
	Source     app.KernelSource

	// Overrides of the loaded configuration. Zero values keep it.
	KernelPath    string
	ShowMemoryMap bool
	NoDisplay     bool
	ReadChunk     int

	// StaleKeys makes the firmware invalidate the first StaleKeys memory
	// map keys it hands out.
	StaleKeys int

	// Echo copies the firmware console to the context's Stderr as it is
	// written.
	Echo bool
}

// Outcome is how a boot attempt ended.
type Outcome string

const (
	OutcomeTransferred Outcome = "transferred"
	OutcomeAborted     Outcome = "aborted"
)

// Response represents the result of a simulated boot
type Response struct {
	AttemptID   string           `json:"attempt_id" yaml:"attempt_id"`
	Source      string           `json:"source" yaml:"source"`
	KernelPath  string           `json:"kernel_path" yaml:"kernel_path"`
	Outcome     Outcome          `json:"outcome" yaml:"outcome"`
	FinalState  string           `json:"final_state" yaml:"final_state"`
	Halted      bool             `json:"halted" yaml:"halted"`
	Image       *ImageInfo       `json:"image,omitempty" yaml:"image,omitempty"`
	Attempts    int              `json:"surrender_attempts" yaml:"surrender_attempts"`
	MemoryMap   *MemoryMapInfo   `json:"memory_map,omitempty" yaml:"memory_map,omitempty"`
	Transitions []TransitionInfo `json:"transitions" yaml:"transitions"`
	Protocols   []string         `json:"protocols" yaml:"protocols"`
	Calls       map[string]int   `json:"firmware_calls" yaml:"firmware_calls"`
	Console     []string         `json:"console" yaml:"console"`
	Error       *ErrorInfo       `json:"error,omitempty" yaml:"error,omitempty"`
	Duration    time.Duration    `json:"duration" yaml:"duration"`
}

// ImageInfo describes the loaded kernel.
type ImageInfo struct {
	Base  uint64 `json:"base" yaml:"base"`
	Pages uint64 `json:"pages" yaml:"pages"`
	Size  uint64 `json:"size" yaml:"size"`
	Entry uint64 `json:"entry" yaml:"entry"`
}

// MemoryMapInfo summarises the map handed to the kernel.
type MemoryMapInfo struct {
	Descriptors int          `json:"descriptors" yaml:"descriptors"`
	Stride      int          `json:"descriptor_size" yaml:"descriptor_size"`
	TotalPages  uint64       `json:"total_pages" yaml:"total_pages"`
	UsablePages uint64       `json:"usable_pages" yaml:"usable_pages"`
	Regions     []RegionInfo `json:"regions" yaml:"regions"`
}

// RegionInfo is one descriptor of the final memory map.
type RegionInfo struct {
	Type  string `json:"type" yaml:"type"`
	Start uint64 `json:"start" yaml:"start"`
	Pages uint64 `json:"pages" yaml:"pages"`
}

// TransitionInfo is one state change of the controller.
type TransitionInfo struct {
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
	Attempt int    `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorInfo describes why a boot aborted.
type ErrorInfo struct {
	Code    string `json:"code" yaml:"code"`
	Kind    string `json:"kind" yaml:"kind"`
	State   string `json:"state" yaml:"state"`
	Message string `json:"message" yaml:"message"`
}

// Succeeded reports whether control reached the kernel.
func (r *Response) Succeeded() bool {
	return r.Outcome == OutcomeTransferred
}

// FormatBytes returns a human-readable size string
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
