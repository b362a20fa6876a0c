// Package vmm owns the root of the kernel's virtual address space. This core
// only guarantees that the root translation table exists, is frame-aligned
// and is installed as the active translation root; linking further tables
// into it is the business of whoever builds the mapping, using frames
// borrowed from the PMM.
package vmm

import (
	"halcyon/kernel"
	"halcyon/kernel/cpu"
	"halcyon/kernel/kfmt"
	"halcyon/kernel/mm"
	"halcyon/kernel/mm/pmm"
)

var (
	// The following functions are mocked by tests.
	allocZeroedFn = pmm.AllocZeroedFrames
	switchCR3Fn   = cpu.SwitchCR3
	panicFn       = kfmt.Panic

	errAlreadyInitialized = &kernel.Error{Module: "vmm", Message: "kernel pagemap already initialized"}
	errNotInitialized     = &kernel.Error{Module: "vmm", Message: "kernel pagemap not initialized"}

	// kernelPagemap is the process-wide kernel address space descriptor.
	// It is created exactly once during bring-up and never torn down.
	kernelPagemap      Pagemap
	pagemapInitialized bool
)

// Pagemap describes a virtual address space via the physical frame of its
// root translation table. The Pagemap exclusively owns the root table; the
// frames backing lower-level tables are borrowed from the PMM and their
// lifetime is managed by whoever linked them in.
type Pagemap struct {
	root mm.Frame
}

// Root returns the physical frame holding the root translation table.
func (pm Pagemap) Root() mm.Frame {
	return pm.root
}

// RootRegister returns the value that must be written to the hardware
// translation root register (CR3) to make this address space active.
func (pm Pagemap) RootRegister() uint64 {
	return uint64(pm.root.Address())
}

// Activate installs this pagemap as the active translation root, flushing
// the TLB.
func (pm Pagemap) Activate() {
	switchCR3Fn(pm.RootRegister())
}

// Init creates the kernel pagemap. The root table is a single zeroed frame
// allocated from the PMM (table construction consumes PMM frames, which is
// why the frame allocator must be initialized first) and is installed as the
// active translation root before returning. Init must be called exactly
// once; a second call is a fatal contract violation.
func Init() *kernel.Error {
	if pagemapInitialized {
		panicFn(errAlreadyInitialized)
		return errAlreadyInitialized
	}

	rootAddr, err := allocZeroedFn(1)
	if err != nil {
		return err
	}

	kernelPagemap = Pagemap{root: mm.FrameFromAddress(rootAddr)}
	pagemapInitialized = true
	kernelPagemap.Activate()

	kfmt.Printf("[vmm] kernel pagemap root at 0x%x\n", uintptr(rootAddr))
	return nil
}

// KernelPagemap returns the singleton describing the kernel's own address
// space. Consulting it before Init has created it is a fatal contract
// violation.
func KernelPagemap() *Pagemap {
	if !pagemapInitialized {
		panicFn(errNotInitialized)
	}

	return &kernelPagemap
}
