// Package console provides the write-only diagnostic output devices the
// kernel logs through: an EGA-compatible VGA text console and a linear
// framebuffer console. Which one is used is a runtime decision driven by the
// boot configuration, not a build-time branch.
package console

import (
	"io"

	"halcyon/kernel"
	"halcyon/kernel/mm"
)

// Mode selects the console implementation to bring up.
type Mode uint8

const (
	// ModeText selects the VGA text-mode console at 0xb8000.
	ModeText Mode = iota

	// ModeFramebuffer selects the linear framebuffer console.
	ModeFramebuffer
)

// FramebufferInfo describes the linear framebuffer handed over by the
// loader.
type FramebufferInfo struct {
	PhysAddr     mm.PhysAddr
	Width        uint32
	Height       uint32
	Pitch        uint32
	BitsPerPixel uint8
}

// Device is a write-only output sink for kernel diagnostics.
type Device interface {
	io.Writer

	// Init prepares the device for output.
	Init() *kernel.Error

	// DriverName returns the name of this driver.
	DriverName() string
}

var errUnknownMode = &kernel.Error{Module: "console", Message: "unknown console mode"}

// fbVirtAddrFn resolves the virtual alias a device uses to touch its
// framebuffer. Tests redirect it at plain memory.
var fbVirtAddrFn = func(addr mm.PhysAddr) mm.VirtAddr { return addr.DirectMapped() }

// ProbeForMode returns an uninitialized console device matching the
// requested mode.
func ProbeForMode(mode Mode, fbInfo FramebufferInfo) (Device, *kernel.Error) {
	switch mode {
	case ModeText:
		return NewVgaTextDevice(80, 25, mm.PhysAddr(0xb8000)), nil
	case ModeFramebuffer:
		return NewFramebufferDevice(fbInfo, defaultFont), nil
	default:
		return nil, errUnknownMode
	}
}
