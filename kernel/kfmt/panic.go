package kfmt

import (
	"halcyon/kernel"
	"halcyon/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests.
	cpuHaltFn = func() { cpu.Halt() }

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active sink and halts
// the CPU. Calls to Panic never return. Contract violations and bring-up
// failures funnel through here; there is no recovery path this early in
// boot.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
