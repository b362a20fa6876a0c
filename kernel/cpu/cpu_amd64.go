// Package cpu wraps the privileged amd64 instructions used by the boot core.
//
// Each hardware primitive is declared as a package variable. The bare-metal
// bootstrap replaces them with thin assembly trampolines before the kernel
// entrypoint runs; hosted builds (go test) keep the defaults below, which
// only model the architectural state the rest of the kernel observes.
package cpu

import "sync/atomic"

var (
	// PortWriteByte writes a uint8 value to the requested port (OUT).
	PortWriteByte = func(port uint16, val uint8) {}

	// PortReadByte reads a uint8 value from the requested port (IN).
	PortReadByte = func(port uint16) uint8 { return 0 }

	// Halt stops instruction execution until the next interrupt (HLT).
	Halt = func() {}

	// LoadIDT loads the interrupt descriptor table register with the
	// 10-byte limit/base descriptor at the supplied address (LIDT).
	LoadIDT = func(idtrAddr uintptr) {}

	// Hooks for the interrupt flag and translation root instructions.
	// The defaults only update the mirrored state below.
	setIFFn    = func() {}
	clearIFFn  = func() {}
	writeCR3Fn = func(cr3 uint64) {}

	intEnabled uint32
	activeCR3  uint64
)

// EnableInterrupts enables external interrupt delivery (STI).
func EnableInterrupts() {
	atomic.StoreUint32(&intEnabled, 1)
	setIFFn()
}

// DisableInterrupts disables external interrupt delivery (CLI).
func DisableInterrupts() {
	atomic.StoreUint32(&intEnabled, 0)
	clearIFFn()
}

// InterruptsEnabled returns true if external interrupt delivery is currently
// enabled.
func InterruptsEnabled() bool {
	return atomic.LoadUint32(&intEnabled) == 1
}

// SwitchCR3 installs the supplied physical address as the active translation
// root, flushing the TLB.
func SwitchCR3(cr3 uint64) {
	atomic.StoreUint64(&activeCR3, cr3)
	writeCR3Fn(cr3)
}

// ActiveCR3 returns the value last installed into the translation root
// register.
func ActiveCR3() uint64 {
	return atomic.LoadUint64(&activeCR3)
}
