package console

import (
	"testing"
	"unsafe"

	"halcyon/kernel/mm"
)

func redirectFramebuffer(t *testing.T, backing unsafe.Pointer) {
	t.Helper()

	origFbVirtAddrFn := fbVirtAddrFn
	fbVirtAddrFn = func(addr mm.PhysAddr) mm.VirtAddr {
		return mm.VirtAddr(uintptr(backing))
	}
	t.Cleanup(func() { fbVirtAddrFn = origFbVirtAddrFn })
}

func TestVgaTextInit(t *testing.T) {
	cells := make([]uint16, 80*25)
	for i := range cells {
		cells[i] = 0xdead
	}
	redirectFramebuffer(t, unsafe.Pointer(&cells[0]))

	dev := NewVgaTextDevice(80, 25, mm.PhysAddr(0xb8000))
	if err := dev.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if dev.DriverName() != "vga_text_console" {
		t.Errorf("unexpected driver name: %s", dev.DriverName())
	}

	for i, cell := range cells {
		if cell != vgaClearAttr|uint16(' ') {
			t.Fatalf("expected cell %d to be cleared; got 0x%x", i, cell)
		}
	}
}

func TestVgaTextWrite(t *testing.T) {
	cells := make([]uint16, 80*25)
	redirectFramebuffer(t, unsafe.Pointer(&cells[0]))

	dev := NewVgaTextDevice(80, 25, mm.PhysAddr(0xb8000))
	if err := dev.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if n, err := dev.Write([]byte("hi\nok")); n != 5 || err != nil {
		t.Fatalf("expected Write to report (5, nil); got (%d, %v)", n, err)
	}

	specs := []struct {
		offset  uint32
		expChar byte
	}{
		{0, 'h'},
		{1, 'i'},
		{80, 'o'},
		{81, 'k'},
	}

	for specIndex, spec := range specs {
		if got := cells[spec.offset]; got != vgaClearAttr|uint16(spec.expChar) {
			t.Errorf("[spec %d] expected cell %d to contain %q; got 0x%x", specIndex, spec.offset, spec.expChar, got)
		}
	}

	if dev.curX != 2 || dev.curY != 1 {
		t.Errorf("expected cursor at (2, 1); got (%d, %d)", dev.curX, dev.curY)
	}
}

func TestVgaTextLineWrap(t *testing.T) {
	cells := make([]uint16, 4*3)
	redirectFramebuffer(t, unsafe.Pointer(&cells[0]))

	dev := NewVgaTextDevice(4, 3, mm.PhysAddr(0xb8000))
	if err := dev.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	dev.Write([]byte("abcde"))

	if got := cells[4]; got != vgaClearAttr|uint16('e') {
		t.Errorf("expected wrapped char on the second row; got 0x%x", got)
	}
	if dev.curX != 1 || dev.curY != 1 {
		t.Errorf("expected cursor at (1, 1); got (%d, %d)", dev.curX, dev.curY)
	}
}

func TestVgaTextScroll(t *testing.T) {
	cells := make([]uint16, 4*2)
	redirectFramebuffer(t, unsafe.Pointer(&cells[0]))

	dev := NewVgaTextDevice(4, 2, mm.PhysAddr(0xb8000))
	if err := dev.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	dev.Write([]byte("aa\nbb\ncc"))

	// "aa" scrolled off; "bb" is on the top row, "cc" on the bottom.
	expTop := []byte{'b', 'b', ' ', ' '}
	expBottom := []byte{'c', 'c', ' ', ' '}

	for i, exp := range expTop {
		if got := cells[i]; got != vgaClearAttr|uint16(exp) {
			t.Errorf("expected top row cell %d to contain %q; got 0x%x", i, exp, got)
		}
	}
	for i, exp := range expBottom {
		if got := cells[4+i]; got != vgaClearAttr|uint16(exp) {
			t.Errorf("expected bottom row cell %d to contain %q; got 0x%x", i, exp, got)
		}
	}
}
