package memory

import "time"

// Request asks for the simulated machine's current memory map.
type Request struct {
	ConfigPath string
	// Usable keeps only regions that are free once boot services exit.
	Usable bool
	// Type keeps only regions of one memory type, by name.
	Type string
}

// Response is the queried map.
type Response struct {
	MapKey      uint64        `json:"map_key" yaml:"map_key"`
	Stride      int           `json:"descriptor_size" yaml:"descriptor_size"`
	Version     uint32        `json:"descriptor_version" yaml:"descriptor_version"`
	Descriptors int           `json:"descriptors" yaml:"descriptors"`
	Regions     []Region      `json:"regions" yaml:"regions"`
	Totals      []TypeTotal   `json:"totals" yaml:"totals"`
	TotalPages  uint64        `json:"total_pages" yaml:"total_pages"`
	UsablePages uint64        `json:"usable_pages" yaml:"usable_pages"`
	QueryTime   time.Duration `json:"query_time" yaml:"query_time"`
}

// Region is one selected descriptor.
type Region struct {
	Type      string `json:"type" yaml:"type"`
	Start     uint64 `json:"start" yaml:"start"`
	End       uint64 `json:"end" yaml:"end"`
	Pages     uint64 `json:"pages" yaml:"pages"`
	Attribute uint64 `json:"attribute" yaml:"attribute"`
}

// TypeTotal is the page count of one memory type over the whole map.
type TypeTotal struct {
	Type  string `json:"type" yaml:"type"`
	Pages uint64 `json:"pages" yaml:"pages"`
}
