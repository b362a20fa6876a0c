package mm

import "math"

// Frame describes a physical memory page index.
type Frame uintptr

// Page describes a virtual memory page index.
type Page uintptr

// InvalidFrame is returned by frame allocators when they fail to reserve the
// requested frame.
const InvalidFrame = Frame(math.MaxUint64)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte in this frame.
func (f Frame) Address() PhysAddr {
	return PhysAddr(f << PageShift)
}

// FrameFromAddress returns the Frame containing the given physical address.
// Addresses that are not frame-aligned are rounded down to the frame that
// contains them.
func FrameFromAddress(physAddr PhysAddr) Frame {
	return Frame((physAddr & ^PhysAddr(PageSize-1)) >> PageShift)
}

// Address returns the virtual address of the first byte in this page.
func (p Page) Address() VirtAddr {
	return VirtAddr(p << PageShift)
}

// PageFromAddress returns the Page containing the given virtual address.
// Addresses that are not page-aligned are rounded down to the page that
// contains them.
func PageFromAddress(virtAddr VirtAddr) Page {
	return Page((virtAddr & ^VirtAddr(PageSize-1)) >> PageShift)
}
