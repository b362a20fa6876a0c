// Package irq builds and loads the interrupt descriptor table. Populating
// the IDT is the first bring-up action: every later stage assumes that a
// stray exception lands in a descriptor instead of jumping through garbage.
package irq

import (
	"unsafe"

	"halcyon/kernel"
	"halcyon/kernel/cpu"
)

// Vector identifies one of the 256 interrupt descriptor slots.
type Vector uint8

const (
	idtEntryCount = 256

	// kernelCodeSelector is the GDT selector for the kernel code segment
	// set up by the bootstrap code.
	kernelCodeSelector = 0x08

	// gateFlags marks a gate as present, DPL 0, 64-bit interrupt gate.
	gateFlags = 0x8e
)

// gateEntry describes one 16-byte interrupt gate.
type gateEntry struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	flags      uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// encode points this gate at the trampoline located at handlerAddr and marks
// it present.
func (e *gateEntry) encode(handlerAddr uintptr) {
	e.offsetLow = uint16(handlerAddr)
	e.selector = kernelCodeSelector
	e.ist = 0
	e.flags = gateFlags
	e.offsetMid = uint16(handlerAddr >> 16)
	e.offsetHigh = uint32(handlerAddr >> 32)
	e.reserved = 0
}

// present returns true if this gate has been populated.
func (e *gateEntry) present() bool {
	return e.flags&0x80 != 0
}

// idtDescriptor is the 10-byte limit/base operand consumed by LIDT.
type idtDescriptor struct {
	limit uint16
	base  uintptr
}

var (
	idt  [idtEntryCount]gateEntry
	idtr idtDescriptor

	// trampolineAddrFn returns the address of the assembly trampoline
	// for a vector, or 0 if the vector has none. The arch bootstrap
	// installs the real provider; vectors without a trampoline stay
	// non-present so stray deliveries fault loudly instead of jumping
	// into unmapped memory.
	trampolineAddrFn = func(v Vector) uintptr { return 0 }

	// loadIDTFn is mocked by tests.
	loadIDTFn = func(idtrAddr uintptr) { cpu.LoadIDT(idtrAddr) }
)

// SetTrampolineProvider registers the function that maps vectors to their
// entry trampolines. It must be called before Init.
func SetTrampolineProvider(fn func(v Vector) uintptr) {
	trampolineAddrFn = fn
}

// Init populates the interrupt descriptor table and loads it into the CPU.
func Init() *kernel.Error {
	for v := 0; v < idtEntryCount; v++ {
		if addr := trampolineAddrFn(Vector(v)); addr != 0 {
			idt[v].encode(addr)
		}
	}

	idtr.limit = uint16(unsafe.Sizeof(idt) - 1)
	idtr.base = uintptr(unsafe.Pointer(&idt[0]))
	loadIDTFn(uintptr(unsafe.Pointer(&idtr)))

	return nil
}
