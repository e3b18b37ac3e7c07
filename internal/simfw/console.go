package simfw

import (
	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// textOutput is the firmware console.
type textOutput struct {
	fw *Firmware
}

var _ interfaces.SimpleTextOutputProtocol = (*textOutput)(nil)

func (t *textOutput) Reset(bool) types.Status {
	return t.control("Reset")
}

func (t *textOutput) OutputString(s []uint16) types.Status {
	return t.fw.print(s)
}

func (t *textOutput) ClearScreen() types.Status {
	return t.control("ClearScreen")
}

func (t *textOutput) control(service string) types.Status {
	t.fw.mu.Lock()
	defer t.fw.mu.Unlock()

	if t.fw.exited {
		return t.fw.record(service, types.StatusUnsupported, 0)
	}
	return t.fw.record(service, types.StatusSuccess, 0)
}

// graphicsOutput exposes the configured framebuffer mode.
type graphicsOutput struct {
	fw *Firmware
}

var _ interfaces.GraphicsOutputProtocol = (*graphicsOutput)(nil)

func (g *graphicsOutput) Mode() types.GraphicsMode {
	fb := g.fw.config.Framebuffer
	return types.GraphicsMode{
		MaxMode:              1,
		Mode:                 0,
		HorizontalResolution: fb.Width,
		VerticalResolution:   fb.Height,
		PixelFormat:          fb.Format,
		PixelsPerScanLine:    fb.Width,
		FrameBufferBase:      fb.Base,
		FrameBufferSize:      uint64(fb.Width) * uint64(fb.Height) * 4,
	}
}
