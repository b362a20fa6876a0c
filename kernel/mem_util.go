package kernel

import "unsafe"

// Memset sets size bytes at the given address to the supplied value. Instead
// of a plain byte loop, the implementation seeds the first byte and doubles
// the filled prefix with log2(size) copy calls; frame addresses are always
// aligned so the copies vectorize well.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	// Overlay a slice on top of this address region.
	target := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst. The two regions must not
// overlap.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	copy(
		unsafe.Slice((*byte)(unsafe.Pointer(dst)), size),
		unsafe.Slice((*byte)(unsafe.Pointer(src)), size),
	)
}
