// Package boot drives the one-time hardware bring-up sequence. The sequence
// is a strictly ordered state machine: each transition performs exactly one
// side-effecting action and advances only on success. The ordering encodes
// hardware dependencies (the interrupt controller must be remapped and fully
// masked before any line is unmasked or interrupts are globally enabled), so
// it is fixed data rather than caller-supplied.
package boot

import (
	"halcyon/kernel"
	"halcyon/kernel/cpu"
	"halcyon/kernel/kfmt"
)

var (
	errMissingAction = &kernel.Error{Module: "boot", Message: "sequencer action missing"}
	errAlreadyRun    = &kernel.Error{Module: "boot", Message: "bring-up sequence already executed"}

	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	// parkFn parks the processor once the terminal stage is reached.
	parkFn = func() {
		for {
			cpu.Halt()
		}
	}
)

// Actions bundles the side-effecting action behind each stage transition.
// Every field must be populated.
type Actions struct {
	LoadInterruptTables      func() *kernel.Error
	DiscoverMemory           func() *kernel.Error
	InitFrameAllocator       func() *kernel.Error
	InitGraphics             func() *kernel.Error
	RemapInterruptController func() *kernel.Error
	MaskInterruptController  func() *kernel.Error
	ProgramTimer             func() *kernel.Error
	SetAcpiTracing           func() *kernel.Error
	InitAcpiSubsystem        func() *kernel.Error
	EnableInterrupts         func() *kernel.Error
	LoadAcpiNamespace        func() *kernel.Error
	EnableAcpi               func() *kernel.Error
}

// step pairs an action with the stage the sequencer advances to when the
// action succeeds.
type step struct {
	target Stage
	action func() *kernel.Error
}

// Sequencer executes the bring-up sequence exactly once.
type Sequencer struct {
	stage Stage
	steps []step
	ran   bool
}

// NewSequencer builds a sequencer over the fixed stage order. It returns an
// error if any action is missing.
func NewSequencer(actions Actions) (*Sequencer, *kernel.Error) {
	steps := []step{
		{StageInterruptTablesLoaded, actions.LoadInterruptTables},
		{StageMemoryDiscovered, actions.DiscoverMemory},
		{StageFrameAllocatorReady, actions.InitFrameAllocator},
		{StageGraphicsReady, actions.InitGraphics},
		{StageInterruptControllerRemapped, actions.RemapInterruptController},
		{StageInterruptControllerMasked, actions.MaskInterruptController},
		{StageTimerProgrammed, actions.ProgramTimer},
		{StageAcpiTracingEnabled, actions.SetAcpiTracing},
		{StageAcpiSubsystemReady, actions.InitAcpiSubsystem},
		{StageInterruptsEnabled, actions.EnableInterrupts},
		{StageAcpiNamespaceLoaded, actions.LoadAcpiNamespace},
		{StageAcpiEnabled, actions.EnableAcpi},
	}

	for _, s := range steps {
		if s.action == nil {
			return nil, errMissingAction
		}
	}

	return &Sequencer{
		stage: StageStart,
		steps: steps,
	}, nil
}

// Stage returns the current bring-up stage.
func (seq *Sequencer) Stage() Stage {
	return seq.stage
}

// Run executes every stage action in order, advancing the stage cursor after
// each success. Any action failure is fatal: there is no safe hardware
// configuration to retry into this early, so the sequencer halts instead of
// recovering. On success Run reaches the terminal idle stage and parks the
// processor; it does not return.
func (seq *Sequencer) Run() {
	if seq.ran {
		panicFn(errAlreadyRun)
		return
	}
	seq.ran = true

	for _, s := range seq.steps {
		if err := s.action(); err != nil {
			panicFn(err)
			return
		}

		seq.stage = s.target
		kfmt.Printf("[boot] reached stage: %s\n", seq.stage.String())
	}

	seq.stage = StageIdle
	kfmt.Printf("[boot] reached stage: %s\n", seq.stage.String())
	parkFn()
}
