// Package display paints boot progress into the GOP framebuffer. It is purely
// visual: nothing in the boot pipeline depends on it succeeding.
package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

const (
	bytesPerPixel = 4
	stripeHeight  = 8
	labelHeight   = 16
)

// Stage colours, one per boot step, cycled when there are more steps.
var palette = []color.RGBA{
	{0x30, 0x60, 0xc0, 0xff},
	{0x30, 0xa0, 0xc0, 0xff},
	{0x30, 0xc0, 0x70, 0xff},
	{0xc0, 0xb0, 0x30, 0xff},
	{0xc0, 0x60, 0x30, 0xff},
	{0xff, 0xff, 0xff, 0xff},
}

var (
	background = color.RGBA{0x10, 0x10, 0x10, 0xff}
	foreground = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
)

// Framebuffer is a linear 32-bit framebuffer reached through physical memory.
type Framebuffer struct {
	mode   types.GraphicsMode
	memory interfaces.PhysicalMemory
	stages int
}

// New wraps the current mode of gop. Only the two 8-bit-per-channel linear
// formats are supported.
func New(gop interfaces.GraphicsOutputProtocol, memory interfaces.PhysicalMemory, stages int) (*Framebuffer, error) {
	mode := gop.Mode()
	switch mode.PixelFormat {
	case types.PixelRedGreenBlueReserved8BitPerColor, types.PixelBlueGreenRedReserved8BitPerColor:
	default:
		return nil, status.Wrap(status.ErrUnsupported, fmt.Errorf("pixel format %d has no linear framebuffer", mode.PixelFormat))
	}
	if mode.FrameBufferBase == 0 || mode.HorizontalResolution == 0 || mode.VerticalResolution == 0 {
		return nil, status.Wrap(status.ErrUnsupported, fmt.Errorf("graphics mode has no framebuffer"))
	}
	if stages <= 0 {
		stages = len(palette)
	}
	return &Framebuffer{mode: mode, memory: memory, stages: stages}, nil
}

// Bounds returns the visible rectangle.
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(f.mode.HorizontalResolution), int(f.mode.VerticalResolution))
}

// Mode returns the graphics mode the framebuffer was created from.
func (f *Framebuffer) Mode() types.GraphicsMode {
	return f.mode
}

func (f *Framebuffer) encode(dst []byte, c color.RGBA) {
	if f.mode.PixelFormat == types.PixelBlueGreenRedReserved8BitPerColor {
		dst[0], dst[1], dst[2] = c.B, c.G, c.R
	} else {
		dst[0], dst[1], dst[2] = c.R, c.G, c.B
	}
	dst[3] = 0
}

func (f *Framebuffer) rowAddress(x, y int) uint64 {
	return f.mode.FrameBufferBase + uint64(y)*uint64(f.mode.PixelsPerScanLine)*bytesPerPixel + uint64(x)*bytesPerPixel
}

// Fill paints r, clipped to the screen, with c.
func (f *Framebuffer) Fill(r image.Rectangle, c color.RGBA) error {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return nil
	}

	row := make([]byte, r.Dx()*bytesPerPixel)
	for x := 0; x < r.Dx(); x++ {
		f.encode(row[x*bytesPerPixel:], c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if err := f.memory.Write(f.rowAddress(r.Min.X, y), row); err != nil {
			return fmt.Errorf("failed to fill framebuffer row %d: %w", y, err)
		}
	}
	return nil
}

// Blit copies src to the screen with its top left corner at at.
func (f *Framebuffer) Blit(src *image.RGBA, at image.Point) error {
	dst := src.Bounds().Sub(src.Bounds().Min).Add(at).Intersect(f.Bounds())
	if dst.Empty() {
		return nil
	}

	row := make([]byte, dst.Dx()*bytesPerPixel)
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		for x := dst.Min.X; x < dst.Max.X; x++ {
			c := src.RGBAAt(src.Bounds().Min.X+x-at.X, src.Bounds().Min.Y+y-at.Y)
			f.encode(row[(x-dst.Min.X)*bytesPerPixel:], c)
		}
		if err := f.memory.Write(f.rowAddress(dst.Min.X, y), row); err != nil {
			return fmt.Errorf("failed to blit framebuffer row %d: %w", y, err)
		}
	}
	return nil
}

// Paint marks step index of the boot as reached: it fills that step's
// segment of the top stripe and replaces the label line with label.
func (f *Framebuffer) Paint(index int, label string) error {
	if index < 0 {
		index = 0
	}
	if index >= f.stages {
		index = f.stages - 1
	}
	width := int(f.mode.HorizontalResolution)
	segment := width / f.stages
	if index >= f.stages-1 {
		segment = width - segment*index
	}
	x := (width / f.stages) * index

	if err := f.Fill(image.Rect(x, 0, x+segment, stripeHeight), palette[index%len(palette)]); err != nil {
		return err
	}

	return f.Blit(RenderLabel(label, width, labelHeight), image.Pt(0, stripeHeight))
}

// RenderLabel draws text in the 7x13 bitmap font onto a width x height
// canvas.
func RenderLabel(text string, width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(foreground),
		Face: face,
		Dot:  fixed.P(4, face.Ascent+(height-face.Height)/2),
	}
	d.DrawString(text)
	return canvas
}
