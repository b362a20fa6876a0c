// Package pic drives the two cascaded 8259 programmable interrupt
// controllers. The boot sequence remaps their vector bases away from the
// CPU exception range, masks every line, and then unmasks only the lines
// the kernel is ready to service.
package pic

import (
	"halcyon/kernel"
	"halcyon/kernel/cpu"
)

const (
	masterCommandPort = 0x20
	masterDataPort    = 0x21
	slaveCommandPort  = 0xa0
	slaveDataPort     = 0xa1

	// icw1Init begins the initialization sequence; icw4Needed tells the
	// controller to expect ICW4.
	icw1Init   = 0x10
	icw4Needed = 0x01

	// icw48086Mode selects 8086/88 operation.
	icw48086Mode = 0x01

	// cascadeLine is the master line the slave controller is wired to.
	cascadeLine = 2

	// eoiCommand signals end-of-interrupt.
	eoiCommand = 0x20

	linesPerController = 8
)

var errBadVectorBase = &kernel.Error{Module: "pic", Message: "vector base must be a multiple of 8 and above the exception range"}

var (
	portWriteFn = func(port uint16, val uint8) { cpu.PortWriteByte(port, val) }
	portReadFn  = func(port uint16) uint8 { return cpu.PortReadByte(port) }
)

// ioWait gives the controllers time to settle between initialization words
// on hardware where back-to-back port writes outrun the 8259.
func ioWait() {
	portWriteFn(0x80, 0)
}

// Remap reprograms both controllers so the master delivers its eight lines
// starting at masterBase and the slave at slaveBase. Both bases must be
// 8-aligned and must not overlap the CPU exception vectors (0-31).
func Remap(masterBase, slaveBase uint8) *kernel.Error {
	for _, base := range []uint8{masterBase, slaveBase} {
		if base&0x07 != 0 || base < 0x20 {
			return errBadVectorBase
		}
	}

	masterMask := portReadFn(masterDataPort)
	slaveMask := portReadFn(slaveDataPort)

	portWriteFn(masterCommandPort, icw1Init|icw4Needed)
	ioWait()
	portWriteFn(slaveCommandPort, icw1Init|icw4Needed)
	ioWait()

	// ICW2: vector bases.
	portWriteFn(masterDataPort, masterBase)
	ioWait()
	portWriteFn(slaveDataPort, slaveBase)
	ioWait()

	// ICW3: tell the master which line carries the slave and tell the
	// slave its cascade identity.
	portWriteFn(masterDataPort, 1<<cascadeLine)
	ioWait()
	portWriteFn(slaveDataPort, cascadeLine)
	ioWait()

	portWriteFn(masterDataPort, icw48086Mode)
	ioWait()
	portWriteFn(slaveDataPort, icw48086Mode)
	ioWait()

	// Initialization clobbers the mask registers; restore them.
	portWriteFn(masterDataPort, masterMask)
	portWriteFn(slaveDataPort, slaveMask)

	return nil
}

// MaskAll disables delivery on every line of both controllers.
func MaskAll() {
	portWriteFn(masterDataPort, 0xff)
	portWriteFn(slaveDataPort, 0xff)
}

// EnableLine unmasks a single interrupt line. Lines 0-7 live on the master
// controller and 8-15 on the slave; unmasking a slave line also unmasks the
// cascade line on the master so deliveries can propagate.
func EnableLine(line uint8) {
	if line < linesPerController {
		mask := portReadFn(masterDataPort)
		portWriteFn(masterDataPort, mask&^(1<<line))
		return
	}

	mask := portReadFn(slaveDataPort)
	portWriteFn(slaveDataPort, mask&^(1<<(line-linesPerController)))

	mask = portReadFn(masterDataPort)
	portWriteFn(masterDataPort, mask&^(1<<cascadeLine))
}

// DisableLine masks a single interrupt line.
func DisableLine(line uint8) {
	if line < linesPerController {
		mask := portReadFn(masterDataPort)
		portWriteFn(masterDataPort, mask|1<<line)
		return
	}

	mask := portReadFn(slaveDataPort)
	portWriteFn(slaveDataPort, mask|1<<(line-linesPerController))
}

// SendEOI acknowledges an interrupt on the given line. Interrupts delivered
// through the slave controller must be acknowledged on both chips.
func SendEOI(line uint8) {
	if line >= linesPerController {
		portWriteFn(slaveCommandPort, eoiCommand)
	}
	portWriteFn(masterCommandPort, eoiCommand)
}
