// Package simfw is a host side firmware that implements every raw protocol
// interface of the loader: boot services with a page allocator and map key
// epoch, a read-only volume, a text console, a framebuffer and the processor
// jump/halt pair.
//
// It backs the lemola CLI and the package tests. Physical memory is a sparse
// akita storage, so a 4 GiB address space costs only the pages touched.
package simfw

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/spf13/afero"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// DefaultDescriptorSize is the stride GetMemoryMap reports unless configured.
// It is larger than the 40 byte record on purpose, as on common firmware.
const DefaultDescriptorSize = 48

// Region is one entry of the initial memory map.
type Region struct {
	Type      types.MemoryType `mapstructure:"type" json:"type" yaml:"type"`
	Start     uint64           `mapstructure:"start" json:"start" yaml:"start"`
	Pages     uint64           `mapstructure:"pages" json:"pages" yaml:"pages"`
	Attribute uint64           `mapstructure:"attribute" json:"attribute" yaml:"attribute"`
}

// FramebufferConfig describes the graphics mode. Width zero means no GOP.
type FramebufferConfig struct {
	Width  uint32            `mapstructure:"width" json:"width" yaml:"width"`
	Height uint32            `mapstructure:"height" json:"height" yaml:"height"`
	Base   uint64            `mapstructure:"base" json:"base" yaml:"base"`
	Format types.PixelFormat `mapstructure:"format" json:"format" yaml:"format"`
}

// Config describes the simulated machine.
type Config struct {
	// Regions is the initial memory map. Empty means DefaultRegions.
	Regions []Region `mapstructure:"regions" json:"regions" yaml:"regions"`
	// DescriptorSize is the reported descriptor stride.
	DescriptorSize int `mapstructure:"descriptor_size" json:"descriptor_size" yaml:"descriptor_size"`
	// Capacity is the size of the physical address space.
	Capacity uint64 `mapstructure:"capacity" json:"capacity" yaml:"capacity"`
	// ReadChunk caps the bytes delivered by one file Read. Zero is no cap.
	ReadChunk int `mapstructure:"read_chunk" json:"read_chunk" yaml:"read_chunk"`
	// Framebuffer configures the graphics output protocol.
	Framebuffer FramebufferConfig `mapstructure:"framebuffer" json:"framebuffer" yaml:"framebuffer"`
	// ImageHandle is the handle of the running loader.
	ImageHandle types.Handle `mapstructure:"image_handle" json:"image_handle" yaml:"image_handle"`

	// Volume backs the simple filesystem protocol. Nil installs none.
	Volume afero.Fs `mapstructure:"-" json:"-" yaml:"-"`
	// OpenFaults makes Open of the given volume path fail with a status.
	OpenFaults map[string]types.Status `mapstructure:"-" json:"-" yaml:"-"`
	// Echo receives console output as UTF-8.
	Echo io.Writer `mapstructure:"-" json:"-" yaml:"-"`
	// Kernel is run by Jump in place of the loaded code.
	Kernel func(fw *Firmware, entry uint64) `mapstructure:"-" json:"-" yaml:"-"`
}

// DefaultConfig returns a 4 GiB machine with an 800x600 BGR framebuffer.
func DefaultConfig() Config {
	return Config{
		Regions:        DefaultRegions(),
		DescriptorSize: DefaultDescriptorSize,
		Capacity:       4 * mem.GB,
		Framebuffer: FramebufferConfig{
			Width:  800,
			Height: 600,
			Base:   0x80000000,
			Format: types.PixelBlueGreenRedReserved8BitPerColor,
		},
		ImageHandle: 0x3e8a1000,
	}
}

// DefaultRegions is a small PC style memory map.
func DefaultRegions() []Region {
	return []Region{
		{Type: types.BootServicesCode, Start: 0x0, Pages: 0x1, Attribute: types.MemoryWB},
		{Type: types.ConventionalMemory, Start: 0x1000, Pages: 0x9f, Attribute: types.MemoryWB},
		{Type: types.ReservedMemoryType, Start: 0xa0000, Pages: 0x60, Attribute: types.MemoryUC},
		{Type: types.ConventionalMemory, Start: 0x100000, Pages: 0x700, Attribute: types.MemoryWB},
		{Type: types.ACPIMemoryNVS, Start: 0x800000, Pages: 0x8, Attribute: types.MemoryWB},
		{Type: types.ConventionalMemory, Start: 0x808000, Pages: 0x3e7f8, Attribute: types.MemoryWB},
		{Type: types.BootServicesData, Start: 0x3f000000, Pages: 0x800, Attribute: types.MemoryWB},
		{Type: types.RuntimeServicesData, Start: 0x3f800000, Pages: 0x400, Attribute: types.MemoryWB | types.MemoryRuntime},
		{Type: types.ReservedMemoryType, Start: 0x3fc00000, Pages: 0x400, Attribute: types.MemoryUC},
	}
}

// Call is one recorded firmware service invocation.
type Call struct {
	Service string
	Status  types.Status
	// Key is the map key returned by GetMemoryMap or passed to
	// ExitBootServices.
	Key uint64
}

// Halted is the panic value of Halt.
type Halted struct{}

func (Halted) Error() string { return "processor halted" }

// Firmware is the simulated machine. It implements interfaces.SystemTable,
// interfaces.BootServices and interfaces.Platform.
type Firmware struct {
	mu sync.Mutex

	config  Config
	memory  *mem.Storage
	regions []types.MemoryDescriptor
	epoch   uint64
	exited  bool

	// protocols is keyed by the EFI_GUID wire layout.
	protocols map[[16]byte]any
	conOut    *textOutput
	output    []string

	trace    []Call
	jumpedTo []uint64
	halted   bool

	// AfterGetMemoryMap runs after every successful GetMemoryMap, outside
	// the firmware lock. Tests use it to slip a call in before
	// ExitBootServices.
	AfterGetMemoryMap func(fw *Firmware)
}

var (
	_ interfaces.SystemTable  = (*Firmware)(nil)
	_ interfaces.BootServices = (*Firmware)(nil)
	_ interfaces.Platform     = (*Firmware)(nil)
)

// New builds a machine from config. Zero fields take DefaultConfig values.
func New(config Config) (*Firmware, error) {
	def := DefaultConfig()
	if len(config.Regions) == 0 {
		config.Regions = def.Regions
	}
	if config.DescriptorSize == 0 {
		config.DescriptorSize = def.DescriptorSize
	}
	if config.DescriptorSize < types.MemoryDescriptorSize {
		return nil, fmt.Errorf("descriptor size %d is smaller than %d", config.DescriptorSize, types.MemoryDescriptorSize)
	}
	if config.Capacity == 0 {
		config.Capacity = def.Capacity
	}
	if config.ImageHandle == 0 {
		config.ImageHandle = def.ImageHandle
	}

	fw := &Firmware{
		config:    config,
		memory:    mem.NewStorage(config.Capacity),
		epoch:     1,
		protocols: make(map[[16]byte]any),
	}

	for _, r := range config.Regions {
		if r.Start%types.PageSize != 0 {
			return nil, fmt.Errorf("region at %#x is not page aligned", r.Start)
		}
		if r.Pages == 0 {
			continue
		}
		fw.regions = append(fw.regions, types.MemoryDescriptor{
			Type:          r.Type,
			PhysicalStart: r.Start,
			NumberOfPages: r.Pages,
			Attribute:     r.Attribute,
		})
	}
	sort.Slice(fw.regions, func(i, j int) bool {
		return fw.regions[i].PhysicalStart < fw.regions[j].PhysicalStart
	})
	for i := 1; i < len(fw.regions); i++ {
		if fw.regions[i-1].PhysicalEnd() > fw.regions[i].PhysicalStart {
			return nil, fmt.Errorf("regions at %#x and %#x overlap", fw.regions[i-1].PhysicalStart, fw.regions[i].PhysicalStart)
		}
	}

	fw.conOut = &textOutput{fw: fw}
	fw.install(types.SimpleTextOutputProtocolGUID, fw.conOut)
	if config.Volume != nil {
		fw.install(types.SimpleFileSystemProtocolGUID, &volume{fw: fw, fs: config.Volume})
	}
	if fb := config.Framebuffer; fb.Width > 0 && fb.Height > 0 {
		fw.install(types.GraphicsOutputProtocolGUID, &graphicsOutput{fw: fw})
	}

	return fw, nil
}

// ImageHandle returns the loader's image handle.
func (f *Firmware) ImageHandle() types.Handle {
	return f.config.ImageHandle
}

// BootServices returns the firmware itself.
func (f *Firmware) BootServices() interfaces.BootServices {
	return f
}

// ConOut returns the text console.
func (f *Firmware) ConOut() interfaces.SimpleTextOutputProtocol {
	return f.conOut
}

// LocateProtocol returns the installed interface for guid.
func (f *Firmware) LocateProtocol(guid types.Capability, iface *any) types.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("LocateProtocol", types.StatusUnsupported, 0)
	}
	p, ok := f.protocols[guid.EFIBytes()]
	if !ok {
		return f.record("LocateProtocol", types.StatusNotFound, 0)
	}
	*iface = p
	return f.record("LocateProtocol", types.StatusSuccess, 0)
}

func (f *Firmware) install(guid types.Capability, iface any) {
	f.protocols[guid.EFIBytes()] = iface
}

// Protocols lists the installed capabilities by name.
func (f *Firmware) Protocols() []types.Capability {
	f.mu.Lock()
	defer f.mu.Unlock()

	caps := make([]types.Capability, 0, len(f.protocols))
	for key := range f.protocols {
		caps = append(caps, types.CapabilityFromEFIBytes(key))
	}
	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Name() < caps[j].Name()
	})
	return caps
}

// Read reads physical memory.
func (f *Firmware) Read(address, length uint64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memory.Read(address, length)
}

// Write writes physical memory.
func (f *Firmware) Write(address uint64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memory.Write(address, data)
}

// Jump records the transfer and runs the configured kernel, if any.
func (f *Firmware) Jump(entry uint64) {
	f.mu.Lock()
	f.jumpedTo = append(f.jumpedTo, entry)
	kernel := f.config.Kernel
	f.mu.Unlock()

	if kernel != nil {
		kernel(f, entry)
	}
}

// Halt stops the simulated processor by panicking with Halted. Run recovers
// it.
func (f *Firmware) Halt() {
	f.mu.Lock()
	f.halted = true
	f.mu.Unlock()
	panic(Halted{})
}

// Run calls fn and reports whether it ended in Halt. Other panics propagate.
func (f *Firmware) Run(fn func()) (halted bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(Halted); !ok {
				panic(r)
			}
			halted = true
		}
	}()
	fn()
	return false
}

// Touch simulates an unrelated firmware activity that changes memory
// ownership, such as a timer callback allocating a pool.
func (f *Firmware) Touch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.record("Touch", types.StatusSuccess, 0)
}

// Epoch returns the current map key.
func (f *Firmware) Epoch() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch
}

// Exited reports whether ExitBootServices has succeeded.
func (f *Firmware) Exited() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exited
}

// Halted reports whether Halt was called.
func (f *Firmware) Halted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halted
}

// Jumps returns every entry address passed to Jump.
func (f *Firmware) Jumps() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.jumpedTo...)
}

// Trace returns the recorded service calls in order.
func (f *Firmware) Trace() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.trace...)
}

// Calls counts the recorded calls of one service.
func (f *Firmware) Calls(service string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.trace {
		if c.Service == service {
			n++
		}
	}
	return n
}

// Output returns everything printed on the console.
func (f *Firmware) Output() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.output...)
}

// Regions returns the current memory map.
func (f *Firmware) Regions() []types.MemoryDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.MemoryDescriptor(nil), f.regions...)
}

// record appends to the trace and returns st. Callers hold f.mu.
func (f *Firmware) record(service string, st types.Status, key uint64) types.Status {
	f.trace = append(f.trace, Call{Service: service, Status: st, Key: key})
	return st
}

// print is the console path: it bumps the epoch like any firmware call that
// may allocate.
func (f *Firmware) print(units []uint16) types.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.exited {
		return f.record("OutputString", types.StatusUnsupported, 0)
	}
	text, err := efi.DecodeUTF16(units)
	if err != nil {
		return f.record("OutputString", types.StatusDeviceError, 0)
	}
	f.output = append(f.output, text)
	f.epoch++
	if f.config.Echo != nil {
		_, _ = io.WriteString(f.config.Echo, text)
	}
	return f.record("OutputString", types.StatusSuccess, 0)
}
