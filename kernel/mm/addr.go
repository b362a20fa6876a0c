// Package mm defines the address and frame newtypes shared by the memory
// managers. Physical and virtual addresses are distinct types so the
// compiler rejects code that mixes the two address spaces; crossing between
// them always goes through the checked direct-map conversions below.
package mm

import "halcyon/kernel"

var (
	errNotDirectMapped = &kernel.Error{Module: "mm", Message: "virtual address is outside the direct physical map"}
	errNotKernelImage  = &kernel.Error{Module: "mm", Message: "virtual address is outside the kernel image region"}
)

// PhysAddr describes an address in physical memory.
type PhysAddr uintptr

// VirtAddr describes an address in the kernel's virtual address space.
type VirtAddr uintptr

// IsFrameAligned returns true if this address is aligned to a frame
// boundary.
func (p PhysAddr) IsFrameAligned() bool {
	return p&PhysAddr(PageSize-1) == 0
}

// DirectMapped returns the kernel-visible virtual alias for this physical
// address via the direct physical map.
func (p PhysAddr) DirectMapped() VirtAddr {
	return VirtAddr(p) + DirectMapOffset
}

// PhysFromDirectMap converts a virtual address inside the direct physical
// map back to the physical address it aliases. Addresses outside the direct
// map region are rejected.
func PhysFromDirectMap(v VirtAddr) (PhysAddr, *kernel.Error) {
	if v < DirectMapOffset || v >= KernelImageOffset {
		return 0, errNotDirectMapped
	}

	return PhysAddr(v - DirectMapOffset), nil
}

// PhysFromKernelImage converts a virtual address inside the kernel image
// region to the physical address the image was loaded at.
func PhysFromKernelImage(v VirtAddr) (PhysAddr, *kernel.Error) {
	if v < KernelImageOffset {
		return 0, errNotKernelImage
	}

	return PhysAddr(v - KernelImageOffset), nil
}
