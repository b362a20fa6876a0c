package kmain

import (
	"halcyon/device/acpi"
	"halcyon/device/video/console"
	"halcyon/kernel"
	"halcyon/kernel/boot"
	"halcyon/kernel/cpu"
	"halcyon/kernel/hal/memmap"
	"halcyon/kernel/hal/pic"
	"halcyon/kernel/hal/pit"
	"halcyon/kernel/irq"
	"halcyon/kernel/kfmt"
	"halcyon/kernel/mm"
	"halcyon/kernel/mm/pmm"
	"halcyon/kernel/mm/vmm"
)

const (
	// The PIC vector bases the legacy lines are remapped to, clear of
	// the CPU exception range.
	picMasterVectorBase = 0x20
	picSlaveVectorBase  = 0x28

	cascadeIrqLine = 2
	timerIrqLine   = 0
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the only Go symbol visible (exported) from the rt0 initialization
// code, invoked with interrupts disabled after the GDT and a minimal g0
// struct are set up. kernelStart and kernelEnd delimit the kernel image in
// physical memory so the frame allocator never hands those frames out;
// fbInfo describes the framebuffer negotiated by the loader.
//
// Kmain is not expected to return: the bring-up sequence parks the processor
// in its terminal stage. If it does return, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(kernelStart, kernelEnd uintptr, fbInfo console.FramebufferInfo) {
	cfg := boot.DefaultConfig()

	// The discovered memory map is shared between the discovery stage
	// and the frame allocator stage.
	var regions []memmap.Region

	seq, err := boot.NewSequencer(boot.Actions{
		LoadInterruptTables: irq.Init,
		DiscoverMemory: func() *kernel.Error {
			var stageErr *kernel.Error
			regions, stageErr = memmap.DiscoverRegions()
			return stageErr
		},
		InitFrameAllocator: func() *kernel.Error {
			reserved := []pmm.Range{{
				Base:   mm.PhysAddr(kernelStart),
				Length: uint64(kernelEnd - kernelStart),
			}}
			if stageErr := pmm.Init(regions, reserved); stageErr != nil {
				return stageErr
			}
			return vmm.Init()
		},
		InitGraphics: func() *kernel.Error {
			dev, stageErr := console.ProbeForMode(cfg.ConsoleMode, fbInfo)
			if stageErr != nil {
				return stageErr
			}
			if stageErr = dev.Init(); stageErr != nil {
				return stageErr
			}
			kfmt.SetOutputSink(dev)
			kfmt.Printf("[kmain] console driver: %s\n", dev.DriverName())
			return nil
		},
		RemapInterruptController: func() *kernel.Error {
			return pic.Remap(picMasterVectorBase, picSlaveVectorBase)
		},
		MaskInterruptController: func() *kernel.Error {
			pic.MaskAll()
			pic.EnableLine(cascadeIrqLine)
			pic.EnableLine(timerIrqLine)
			return nil
		},
		ProgramTimer: func() *kernel.Error {
			return pit.SetFrequency(cfg.TimerHz)
		},
		SetAcpiTracing: func() *kernel.Error {
			return acpi.SetTracing(cfg.TraceACPI)
		},
		InitAcpiSubsystem: acpi.InitSubsystem,
		EnableInterrupts: func() *kernel.Error {
			cpu.EnableInterrupts()
			return nil
		},
		LoadAcpiNamespace: acpi.CreateNamespace,
		EnableAcpi: func() *kernel.Error {
			return acpi.EnableEvents(acpi.IRQModelPIC)
		},
	})
	if err != nil {
		kfmt.Panic(err)
		return
	}

	seq.Run()

	// Run parks the processor in the terminal stage; reaching this point
	// means the sequence escaped. Use kfmt.Panic instead of panic to
	// prevent the compiler from treating it as dead code.
	kfmt.Panic(errKmainReturned)
}
