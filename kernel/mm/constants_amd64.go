package mm

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). The pointer
	// size for this architecture is defined as (1 << PointerShift).
	PointerShift = uintptr(3)

	// PageShift is equal to log2(PageSize). This constant is used when we
	// need to convert a physical address to a frame number (shift right by
	// PageShift) and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = uintptr(1 << PageShift)

	// TableEntryCount defines the fan-out of each translation table
	// level: 512 8-byte entries per 4K table.
	TableEntryCount = uintptr(1 << 9)
)

const (
	// DirectMapOffset is the fixed virtual offset of the direct physical
	// map. Adding it to any physical address yields a kernel-visible
	// alias for that memory without building a dedicated translation.
	DirectMapOffset = VirtAddr(0xffff800000000000)

	// KernelImageOffset is the fixed virtual offset separating the kernel
	// image's link-time base from its physical load address.
	KernelImageOffset = VirtAddr(0xffffffffc0000000)
)
