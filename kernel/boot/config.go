package boot

import "halcyon/device/video/console"

// Config holds the runtime knobs resolved before the sequencer starts.
// The bring-up order is identical regardless of these values; they only
// select which output driver comes up and how the timer is programmed.
type Config struct {
	// ConsoleMode selects the diagnostic output device.
	ConsoleMode console.Mode

	// TimerHz is the frequency programmed into timer channel 0.
	TimerHz uint32

	// TraceACPI toggles interpreter tracing during ACPI bring-up.
	TraceACPI bool
}

// DefaultConfig returns the configuration used when the loader supplies no
// overrides.
func DefaultConfig() Config {
	return Config{
		ConsoleMode: console.ModeText,
		TimerHz:     1000,
		TraceACPI:   true,
	}
}
