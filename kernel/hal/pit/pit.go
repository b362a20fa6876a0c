// Package pit programs channel 0 of the 8253/8254 programmable interval
// timer to fire periodic interrupts at a requested frequency.
package pit

import (
	"halcyon/kernel"
	"halcyon/kernel/cpu"
	"halcyon/kernel/kfmt"
)

const (
	// baseFrequency is the fixed oscillator frequency the divisor is
	// derived from.
	baseFrequency = 1193182

	commandPort      = 0x43
	channel0DataPort = 0x40

	// channel0Command selects channel 0, lobyte/hibyte access and
	// square wave mode (mode 3).
	channel0Command = 0x36
)

var errBadFrequency = &kernel.Error{Module: "pit", Message: "requested frequency outside the programmable range"}

var portWriteFn = func(port uint16, val uint8) { cpu.PortWriteByte(port, val) }

// SetFrequency programs channel 0 to tick hz times per second. The divisor
// is 16 bits wide so hz must be between 19 (divisor 65535 at the hardware
// oscillator rate) and the oscillator frequency itself.
func SetFrequency(hz uint32) *kernel.Error {
	if hz == 0 || hz > baseFrequency {
		return errBadFrequency
	}

	divisor := uint32(baseFrequency / hz)
	if divisor > 0xffff {
		return errBadFrequency
	}

	portWriteFn(commandPort, channel0Command)
	portWriteFn(channel0DataPort, uint8(divisor))
	portWriteFn(channel0DataPort, uint8(divisor>>8))

	kfmt.Printf("[pit] channel 0 programmed: %d Hz (divisor %d)\n", hz, divisor)
	return nil
}
