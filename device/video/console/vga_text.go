package console

import (
	"unsafe"

	"halcyon/kernel"
	"halcyon/kernel/mm"
)

// vgaClearAttr is light gray text on a black background.
const vgaClearAttr = uint16(0x07) << 8

// VgaTextDevice implements an EGA-compatible text console using VGA mode
// 0x3. Each cell in the console framebuffer is two bytes: the character
// ASCII code and an attribute byte encoding the foreground and background
// colors. The device renders a byte stream, handling '\n' and '\r' and
// scrolling when the bottom row fills up.
type VgaTextDevice struct {
	width  uint32
	height uint32

	fbPhysAddr mm.PhysAddr
	fb         []uint16

	curX uint32
	curY uint32
}

// NewVgaTextDevice creates a text console backed by the cell framebuffer at
// fbPhysAddr.
func NewVgaTextDevice(columns, rows uint32, fbPhysAddr mm.PhysAddr) *VgaTextDevice {
	return &VgaTextDevice{
		width:      columns,
		height:     rows,
		fbPhysAddr: fbPhysAddr,
	}
}

// DriverName returns the name of this driver.
func (dev *VgaTextDevice) DriverName() string {
	return "vga_text_console"
}

// Init aliases the cell framebuffer through the direct map and clears it.
func (dev *VgaTextDevice) Init() *kernel.Error {
	fbBase := fbVirtAddrFn(dev.fbPhysAddr)
	dev.fb = unsafe.Slice((*uint16)(unsafe.Pointer(uintptr(fbBase))), int(dev.width*dev.height))

	for i := range dev.fb {
		dev.fb[i] = vgaClearAttr | uint16(' ')
	}
	dev.curX, dev.curY = 0, 0

	return nil
}

// Write renders data at the cursor position, implements io.Writer.
func (dev *VgaTextDevice) Write(data []byte) (int, error) {
	for _, b := range data {
		switch b {
		case '\r':
			dev.curX = 0
		case '\n':
			dev.curX = 0
			dev.curY++
		default:
			dev.fb[dev.curY*dev.width+dev.curX] = vgaClearAttr | uint16(b)
			dev.curX++
			if dev.curX == dev.width {
				dev.curX = 0
				dev.curY++
			}
		}

		if dev.curY == dev.height {
			dev.scrollUp()
			dev.curY = dev.height - 1
		}
	}

	return len(data), nil
}

// scrollUp shifts the console contents up one row and clears the bottom row.
func (dev *VgaTextDevice) scrollUp() {
	var i uint32
	for ; i < (dev.height-1)*dev.width; i++ {
		dev.fb[i] = dev.fb[i+dev.width]
	}
	for ; i < dev.height*dev.width; i++ {
		dev.fb[i] = vgaClearAttr | uint16(' ')
	}
}
