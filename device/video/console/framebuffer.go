package console

import (
	"unsafe"

	"halcyon/kernel"
)

const (
	fbForegroundColor = uint32(0x00aaaaaa)
	fbBackgroundColor = uint32(0x00000000)
)

var (
	errMissingFont      = &kernel.Error{Module: "console", Message: "no font registered for framebuffer console"}
	errUnsupportedDepth = &kernel.Error{Module: "console", Message: "framebuffer console requires a 32 bpp mode"}
)

// FramebufferDevice renders a byte stream as text on a 32 bpp linear
// framebuffer using a bitmap font. The visible area is divided into
// character cells of GlyphWidth x GlyphHeight pixels.
type FramebufferDevice struct {
	info FramebufferInfo
	font *Font
	fb   []uint8

	// Console dimensions in character cells.
	cols uint32
	rows uint32

	curX uint32
	curY uint32
}

// NewFramebufferDevice creates a framebuffer console rendering with the
// given font.
func NewFramebufferDevice(info FramebufferInfo, font *Font) *FramebufferDevice {
	return &FramebufferDevice{
		info: info,
		font: font,
	}
}

// DriverName returns the name of this driver.
func (dev *FramebufferDevice) DriverName() string {
	return "framebuffer_console"
}

// Init validates the framebuffer mode, aliases the pixel memory through the
// direct map and clears the screen.
func (dev *FramebufferDevice) Init() *kernel.Error {
	if dev.font == nil {
		return errMissingFont
	}
	if dev.info.BitsPerPixel != 32 {
		return errUnsupportedDepth
	}

	fbBase := fbVirtAddrFn(dev.info.PhysAddr)
	fbSize := dev.info.Pitch * dev.info.Height
	dev.fb = unsafe.Slice((*uint8)(unsafe.Pointer(uintptr(fbBase))), int(fbSize))

	dev.cols = dev.info.Width / dev.font.GlyphWidth
	dev.rows = dev.info.Height / dev.font.GlyphHeight
	dev.curX, dev.curY = 0, 0

	dev.clearRows(0, dev.info.Height)

	return nil
}

// Write renders data at the cursor cell, implements io.Writer.
func (dev *FramebufferDevice) Write(data []byte) (int, error) {
	for _, b := range data {
		switch b {
		case '\r':
			dev.curX = 0
		case '\n':
			dev.curX = 0
			dev.curY++
		default:
			dev.drawGlyph(b, dev.curX, dev.curY)
			dev.curX++
			if dev.curX == dev.cols {
				dev.curX = 0
				dev.curY++
			}
		}

		if dev.curY == dev.rows {
			dev.scrollUp()
			dev.curY = dev.rows - 1
		}
	}

	return len(data), nil
}

// drawGlyph renders the glyph for ch into the character cell at
// (cellX, cellY).
func (dev *FramebufferDevice) drawGlyph(ch byte, cellX, cellY uint32) {
	glyph := dev.font.Data[uint32(ch)*dev.font.glyphSize():]

	pixelX := cellX * dev.font.GlyphWidth
	pixelY := cellY * dev.font.GlyphHeight

	for row := uint32(0); row < dev.font.GlyphHeight; row++ {
		rowBits := glyph[row*dev.font.BytesPerRow:]
		fbOffset := (pixelY+row)*dev.info.Pitch + pixelX*4

		for col := uint32(0); col < dev.font.GlyphWidth; col++ {
			color := fbBackgroundColor
			if rowBits[col>>3]&(0x80>>(col&7)) != 0 {
				color = fbForegroundColor
			}
			dev.putPixel(fbOffset+col*4, color)
		}
	}
}

// putPixel writes a 32 bpp pixel value at the given framebuffer byte offset.
func (dev *FramebufferDevice) putPixel(offset uint32, color uint32) {
	dev.fb[offset] = uint8(color)
	dev.fb[offset+1] = uint8(color >> 8)
	dev.fb[offset+2] = uint8(color >> 16)
	dev.fb[offset+3] = uint8(color >> 24)
}

// scrollUp shifts the rendered text up one character row and clears the
// bottom row.
func (dev *FramebufferDevice) scrollUp() {
	rowBytes := dev.font.GlyphHeight * dev.info.Pitch
	visibleBytes := dev.rows * rowBytes

	copy(dev.fb[:visibleBytes-rowBytes], dev.fb[rowBytes:visibleBytes])
	dev.clearRows((dev.rows-1)*dev.font.GlyphHeight, dev.font.GlyphHeight)
}

// clearRows fills pixelCount rows starting at startRow with the background
// color.
func (dev *FramebufferDevice) clearRows(startRow, pixelCount uint32) {
	for y := startRow; y < startRow+pixelCount; y++ {
		fbOffset := y * dev.info.Pitch
		for x := uint32(0); x < dev.info.Width; x++ {
			dev.putPixel(fbOffset+x*4, fbBackgroundColor)
		}
	}
}
