package cpu

import "testing"

func TestInterruptFlagMirror(t *testing.T) {
	var stiCalls, cliCalls int
	defer func() {
		setIFFn = func() {}
		clearIFFn = func() {}
	}()
	setIFFn = func() { stiCalls++ }
	clearIFFn = func() { cliCalls++ }

	DisableInterrupts()
	if InterruptsEnabled() {
		t.Fatal("expected interrupts to be disabled")
	}

	EnableInterrupts()
	if !InterruptsEnabled() {
		t.Fatal("expected interrupts to be enabled")
	}

	if stiCalls != 1 || cliCalls != 1 {
		t.Fatalf("expected 1 STI and 1 CLI; got %d and %d", stiCalls, cliCalls)
	}
}

func TestCR3Mirror(t *testing.T) {
	var written uint64
	defer func() { writeCR3Fn = func(uint64) {} }()
	writeCR3Fn = func(cr3 uint64) { written = cr3 }

	SwitchCR3(0x1000)

	if written != 0x1000 {
		t.Fatalf("expected CR3 write of 0x1000; got 0x%x", written)
	}

	if got := ActiveCR3(); got != 0x1000 {
		t.Fatalf("expected ActiveCR3 to return 0x1000; got 0x%x", got)
	}
}
