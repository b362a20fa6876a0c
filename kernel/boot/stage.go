package boot

// Stage identifies how far the bring-up sequencer has progressed. Exactly
// one stage is current at any time; transitions are monotonic and never
// revisited.
type Stage uint8

const (
	StageStart Stage = iota
	StageInterruptTablesLoaded
	StageMemoryDiscovered
	StageFrameAllocatorReady
	StageGraphicsReady
	StageInterruptControllerRemapped
	StageInterruptControllerMasked
	StageTimerProgrammed
	StageAcpiTracingEnabled
	StageAcpiSubsystemReady
	StageInterruptsEnabled
	StageAcpiNamespaceLoaded
	StageAcpiEnabled

	// StageIdle is terminal: the sequencer parks the processor there.
	StageIdle
)

var stageNames = []string{
	"start",
	"interrupt-tables-loaded",
	"memory-discovered",
	"frame-allocator-ready",
	"graphics-ready",
	"interrupt-controller-remapped",
	"interrupt-controller-masked",
	"timer-programmed",
	"acpi-tracing-enabled",
	"acpi-subsystem-ready",
	"interrupts-enabled",
	"acpi-namespace-loaded",
	"acpi-enabled",
	"idle",
}

// String implements fmt.Stringer for Stage.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}
