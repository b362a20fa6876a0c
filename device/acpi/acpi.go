// Package acpi exposes the ACPI interpreter to the boot sequence. The
// interpreter itself (table parsing, AML execution) is pluggable; this
// package only defines the contract the bring-up stages drive and routes
// calls to whichever implementation registered itself.
package acpi

import "halcyon/kernel"

// Interrupt routing models accepted by EnableEvents. The value is handed
// to the platform firmware so it routes SCIs through the matching
// controller.
const (
	IRQModelPIC   uint8 = 0
	IRQModelAPIC  uint8 = 1
	IRQModelSAPIC uint8 = 2
)

// Interpreter is implemented by ACPI interpreter drivers.
type Interpreter interface {
	// SetTracing toggles diagnostic tracing of interpreter activity.
	SetTracing(enabled bool)

	// InitSubsystem locates the ACPI tables and prepares the
	// interpreter for namespace construction.
	InitSubsystem() *kernel.Error

	// CreateNamespace parses the AML bytecode in the DSDT and SSDTs
	// and builds the ACPI namespace.
	CreateNamespace() *kernel.Error

	// EnableEvents switches the platform into ACPI mode and routes
	// its events through the given interrupt model.
	EnableEvents(irqModel uint8) *kernel.Error
}

var (
	errNoInterpreter = &kernel.Error{Module: "acpi", Message: "no interpreter registered"}

	activeInterpreter Interpreter
)

// UseInterpreter registers the interpreter implementation the package-level
// entry points route to. It must be called before the ACPI bring-up stages
// run.
func UseInterpreter(in Interpreter) {
	activeInterpreter = in
}

// SetTracing toggles interpreter tracing. Calls before an interpreter is
// registered report an error instead of being silently dropped so the boot
// sequence can surface the misconfiguration.
func SetTracing(enabled bool) *kernel.Error {
	if activeInterpreter == nil {
		return errNoInterpreter
	}

	activeInterpreter.SetTracing(enabled)
	return nil
}

// InitSubsystem initializes the registered interpreter.
func InitSubsystem() *kernel.Error {
	if activeInterpreter == nil {
		return errNoInterpreter
	}

	return activeInterpreter.InitSubsystem()
}

// CreateNamespace builds the ACPI namespace via the registered interpreter.
func CreateNamespace() *kernel.Error {
	if activeInterpreter == nil {
		return errNoInterpreter
	}

	return activeInterpreter.CreateNamespace()
}

// EnableEvents switches the platform into ACPI mode.
func EnableEvents(irqModel uint8) *kernel.Error {
	if activeInterpreter == nil {
		return errNoInterpreter
	}

	return activeInterpreter.EnableEvents(irqModel)
}
