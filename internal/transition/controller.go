// Package transition drives the boot handoff: resolve capabilities, load the
// kernel, snapshot the memory map, exit boot services and jump.
//
// The controller is the only caller of ExitBootServices. The map query and
// the exit call run inside snapshotAndSurrender, which can reach nothing but
// those two services, so no console output or other firmware call can slip
// between them.
package transition

import (
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/console"
	"github.com/lemolatoon/lemola-os/internal/display"
	"github.com/lemolatoon/lemola-os/internal/fsaccess"
	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/loader"
	"github.com/lemolatoon/lemola-os/internal/memmap"
	"github.com/lemolatoon/lemola-os/internal/registry"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// DefaultMaxSurrenderAttempts caps snapshot-and-surrender retries.
const DefaultMaxSurrenderAttempts = 4

// Paint steps shown on the framebuffer.
const (
	paintCapabilities = iota
	paintImage
	paintWindow
	paintSurrendered
	paintStages
)

// Config controls one boot attempt.
type Config struct {
	KernelPath           string        `mapstructure:"kernel_path" json:"kernel_path" yaml:"kernel_path"`
	MaxSurrenderAttempts int           `mapstructure:"max_surrender_attempts" json:"max_surrender_attempts" yaml:"max_surrender_attempts"`
	MemoryMapPages       int           `mapstructure:"memory_map_pages" json:"memory_map_pages" yaml:"memory_map_pages"`
	Display              bool          `mapstructure:"display" json:"display" yaml:"display"`
	ShowMemoryMap        bool          `mapstructure:"show_memory_map" json:"show_memory_map" yaml:"show_memory_map"`
	Loader               loader.Config `mapstructure:"loader" json:"loader" yaml:"loader"`
}

// DefaultConfig returns the stock boot configuration.
func DefaultConfig() Config {
	return Config{
		KernelPath:           types.KernelPath,
		MaxSurrenderAttempts: DefaultMaxSurrenderAttempts,
		MemoryMapPages:       types.MemoryMapBufferPages,
		Display:              true,
		Loader:               loader.DefaultConfig(),
	}
}

// Painter shows boot progress. It is never called inside the critical window.
type Painter interface {
	Paint(index int, label string) error
}

// Handoff is the result of a successful Prepare.
type Handoff struct {
	Image *loader.Image
	// MemoryMap is the snapshot whose key was accepted. It describes memory
	// as the kernel receives it.
	MemoryMap *memmap.Snapshot
	// Attempts is the number of snapshot-and-surrender rounds used.
	Attempts int
}

// AbortError reports the state a boot attempt failed in.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("boot aborted at %s: %v: %v", e.State, status.Kind(e.Err), e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Controller is the boot state machine. It is single use.
type Controller struct {
	system   interfaces.SystemTable
	platform interfaces.Platform
	out      *console.Writer
	config   Config

	// resolveConsole is set when New was given no console; Prepare then
	// finds one through the registry.
	resolveConsole bool

	state   State
	history []Transition
	painter Painter
	mapBuf  []byte

	handoff *Handoff
	err     error
}

// New creates a controller in Init. Zero config fields take DefaultConfig
// values. A nil out makes Prepare resolve the console through the registry.
func New(system interfaces.SystemTable, platform interfaces.Platform, out *console.Writer, config Config) *Controller {
	def := DefaultConfig()
	if config.KernelPath == "" {
		config.KernelPath = def.KernelPath
	}
	if config.MaxSurrenderAttempts <= 0 {
		config.MaxSurrenderAttempts = def.MaxSurrenderAttempts
	}
	if config.MemoryMapPages <= 0 {
		config.MemoryMapPages = def.MemoryMapPages
	}

	c := &Controller{
		system:   system,
		platform: platform,
		out:      out,
		config:   config,
		state:    Init,
		mapBuf:   memmap.NewBuffer(config.MemoryMapPages),
	}
	if out == nil {
		c.out = console.New(nil)
		c.resolveConsole = true
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// History returns every transition so far, oldest first.
func (c *Controller) History() []Transition {
	return append([]Transition(nil), c.history...)
}

// Handoff returns the result of a successful Prepare, or nil.
func (c *Controller) Handoff() *Handoff {
	return c.handoff
}

// Err returns the *AbortError of a failed Prepare, or nil.
func (c *Controller) Err() error {
	return c.err
}

// SetPainter installs a progress display in place of the framebuffer the
// controller would otherwise resolve itself.
func (c *Controller) SetPainter(p Painter) {
	c.painter = p
}

func (c *Controller) move(to State, attempt int, err error) error {
	if !legal(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.state, to)
	}
	c.history = append(c.history, Transition{From: c.state, To: to, Attempt: attempt, Err: err})
	c.state = to
	return nil
}

// abort moves to Aborted and reports err with the history on the console.
func (c *Controller) abort(err error) error {
	failed := c.state
	if moveErr := c.move(Aborted, 0, err); moveErr != nil {
		return moveErr
	}

	aborted := &AbortError{State: failed, Err: err}
	c.err = aborted
	c.out.Println(aborted.Error())
	for _, t := range c.history {
		c.out.Printf("  %s\n", t)
	}
	return aborted
}

func (c *Controller) paint(index int, label string) {
	if c.painter == nil {
		return
	}
	if err := c.painter.Paint(index, label); err != nil {
		c.painter = nil
	}
}

// Prepare runs the handoff up to BootServicesSurrendered. On failure it
// reports the error on the console, moves to Aborted and returns an
// *AbortError; the caller is expected to halt.
func (c *Controller) Prepare() (*Handoff, error) {
	if c.state != Init {
		return nil, fmt.Errorf("%w: prepare from %s", ErrIllegalTransition, c.state)
	}

	bs := c.system.BootServices()
	reg := registry.New(bs)

	if c.resolveConsole {
		if conOut, err := reg.TextOutput(); err == nil {
			c.out = console.New(conOut)
		}
	}
	c.out.Reset()

	fs, err := reg.FileSystem()
	if err != nil {
		return nil, c.abort(err)
	}
	if c.painter == nil && c.config.Display {
		if gop, err := reg.Graphics(); err == nil {
			if fb, err := display.New(gop, c.platform, paintStages); err == nil {
				c.painter = fb
			}
		}
	}
	if err := c.move(CapabilitiesResolved, 0, nil); err != nil {
		return nil, err
	}
	c.out.Println("capabilities resolved")
	c.paint(paintCapabilities, "capabilities resolved")

	root, err := fsaccess.OpenRoot(fs)
	if err != nil {
		return nil, c.abort(err)
	}
	ld := loader.New(bs, c.platform, c.config.Loader)
	img, err := ld.LoadKernel(root, c.config.KernelPath)
	if err != nil {
		return nil, c.abort(err)
	}
	if err := c.move(ImageLoaded, 0, nil); err != nil {
		return nil, err
	}
	c.out.Printf("kernel %s: %d bytes at %#x (%d pages), entry %#x\n",
		c.config.KernelPath, img.Size, img.Allocation.Base, img.Allocation.Pages, img.Entry)
	c.paint(paintImage, "kernel loaded")

	if c.config.ShowMemoryMap {
		c.showMemoryMap(bs)
	}
	c.paint(paintWindow, "exiting boot services")

	snap, attempts, err := c.surrender(bs)
	if err != nil {
		return nil, c.abort(err)
	}
	c.paint(paintSurrendered, "boot services surrendered")

	c.handoff = &Handoff{Image: img, MemoryMap: snap, Attempts: attempts}
	return c.handoff, nil
}

// surrender repeats snapshot-and-surrender until the firmware accepts a key,
// a non-stale error occurs or the attempts run out. Nothing is printed
// between attempts.
func (c *Controller) surrender(fw surrenderServices) (*memmap.Snapshot, int, error) {
	image := c.system.ImageHandle()
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxSurrenderAttempts; attempt++ {
		snap, err := snapshotAndSurrender(fw, image, c.mapBuf)
		if snap == nil {
			return nil, attempt, err
		}
		if err := c.move(MapSnapshotted, attempt, nil); err != nil {
			return nil, attempt, err
		}
		if err == nil {
			if err := c.move(BootServicesSurrendered, attempt, nil); err != nil {
				return nil, attempt, err
			}
			return snap, attempt, nil
		}
		if !status.Retryable(err) {
			return nil, attempt, err
		}
		lastErr = err
		if err := c.move(ImageLoaded, attempt, err); err != nil {
			return nil, attempt, err
		}
	}

	return nil, c.config.MaxSurrenderAttempts, fmt.Errorf("gave up after %d attempts: %w", c.config.MaxSurrenderAttempts, lastErr)
}

// showMemoryMap prints the usable regions. It runs before the final
// snapshot, so its output cannot invalidate the key that is surrendered.
func (c *Controller) showMemoryMap(bs interfaces.MemoryMapService) {
	snap, err := memmap.Query(bs, c.mapBuf)
	if err != nil {
		c.out.Printf("memory map unavailable: %v\n", err)
		return
	}
	seq := memmap.Filter(snap.Iter(), memmap.OfType(types.ConventionalMemory))
	descs, err := memmap.Collect(seq)
	if err != nil {
		c.out.Printf("memory map unreadable: %v\n", err)
		return
	}
	for _, d := range descs {
		c.out.Println(memmap.Describe(d))
	}
}

// Boot runs Prepare and hands control to the kernel. On failure it halts
// after reporting. On hardware Boot never returns: either the kernel runs
// or the processor is halted.
func (c *Controller) Boot() {
	h, err := c.Prepare()
	if err != nil {
		c.platform.Halt()
		return
	}
	c.transfer(h.Image.Entry)
}

// transfer jumps to entry. A kernel that returns gets the processor halted.
func (c *Controller) transfer(entry uint64) {
	if err := c.move(ControlTransferred, 0, nil); err != nil {
		c.platform.Halt()
		return
	}
	c.platform.Jump(entry)
	c.platform.Halt()
}
