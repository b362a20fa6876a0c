package pmm

import (
	"testing"
	"unsafe"

	"halcyon/kernel"
	"halcyon/kernel/hal/memmap"
	"halcyon/kernel/mm"
)

func TestInitFrameCounts(t *testing.T) {
	specs := []struct {
		descr     string
		regions   []memmap.Region
		reserved  []Range
		expFrames uint64
	}{
		{
			"single usable region",
			[]memmap.Region{
				{Base: 0, Length: 0x100000, Kind: memmap.RegionUsable},
			},
			nil,
			0x100000 / 4096,
		},
		{
			"non-usable regions are ignored",
			[]memmap.Region{
				{Base: 0, Length: 0x10000, Kind: memmap.RegionUsable},
				{Base: 0x10000, Length: 0x10000, Kind: memmap.RegionReserved},
				{Base: 0x20000, Length: 0x10000, Kind: memmap.RegionACPIReclaimable},
				{Base: 0x30000, Length: 0x10000, Kind: memmap.RegionBad},
				{Base: 0x40000, Length: 0x10000, Kind: memmap.RegionUsable},
			},
			nil,
			32,
		},
		{
			"unaligned extents are rounded inward",
			[]memmap.Region{
				// rounds to [0x1000, 0x9f000) -> 158 frames
				{Base: 0x123, Length: 0x9fc00 - 0x123, Kind: memmap.RegionUsable},
			},
			nil,
			158,
		},
		{
			"sub-frame region contributes no frames",
			[]memmap.Region{
				// too small to contain a whole frame; later regions
				// must still be accepted
				{Base: 0, Length: 0x800, Kind: memmap.RegionUsable},
				{Base: 0x100000, Length: 0x100000, Kind: memmap.RegionUsable},
			},
			nil,
			0x100000 / 4096,
		},
		{
			"sub-frame region straddling no boundary is skipped",
			[]memmap.Region{
				{Base: 0x500, Length: 0x200, Kind: memmap.RegionUsable},
				{Base: 0x10000, Length: 0x10000, Kind: memmap.RegionUsable},
			},
			nil,
			16,
		},
		{
			"reserved range carves a hole",
			[]memmap.Region{
				{Base: 0, Length: 0x10000, Kind: memmap.RegionUsable},
			},
			// kernel image occupying frames 4-7
			[]Range{{Base: 0x4000, Length: 0x4000}},
			12,
		},
		{
			"unaligned reserved range excludes partially covered frames",
			[]memmap.Region{
				{Base: 0, Length: 0x10000, Kind: memmap.RegionUsable},
			},
			// overlaps frames 4 and 5 only partially; both are excluded
			[]Range{{Base: 0x4800, Length: 0x1000}},
			14,
		},
	}

	for specIndex, spec := range specs {
		var fs FrameSet
		if err := fs.Init(spec.regions, spec.reserved); err != nil {
			t.Errorf("[spec %d] %s: unexpected error: %v", specIndex, spec.descr, err)
			continue
		}

		if got := fs.TotalFrames(); got != spec.expFrames {
			t.Errorf("[spec %d] %s: expected %d total frames; got %d", specIndex, spec.descr, spec.expFrames, got)
		}

		if got := fs.FreeFrameCount(); got != spec.expFrames {
			t.Errorf("[spec %d] %s: expected %d free frames; got %d", specIndex, spec.descr, spec.expFrames, got)
		}
	}
}

func TestInitErrors(t *testing.T) {
	var fs FrameSet
	err := fs.Init([]memmap.Region{
		{Base: 0, Length: 0x2000, Kind: memmap.RegionReserved},
	}, nil)

	if err != errNoUsableMemory {
		t.Fatalf("expected errNoUsableMemory; got %v", err)
	}

	var fs2 FrameSet
	err = fs2.Init([]memmap.Region{
		{Base: 0, Length: 0x4000, Kind: memmap.RegionUsable},
		{Base: 0x2000, Length: 0x4000, Kind: memmap.RegionUsable},
	}, nil)

	if err != errRegionOverlap {
		t.Fatalf("expected errRegionOverlap for overlapping regions; got %v", err)
	}
}

func TestAllocAccountingInvariant(t *testing.T) {
	var fs FrameSet
	mustInit(t, &fs, 64)

	checkInvariant := func() {
		t.Helper()
		if free, alloc, total := fs.FreeFrameCount(), fs.AllocatedFrameCount(), fs.TotalFrames(); free+alloc != total {
			t.Fatalf("accounting invariant violated: free(%d) + allocated(%d) != total(%d)", free, alloc, total)
		}
	}

	checkInvariant()

	var addrs []mm.PhysAddr
	for _, count := range []uint64{1, 4, 2, 8, 1} {
		addr, err := fs.AllocFrames(count)
		if err != nil {
			t.Fatalf("unexpected allocation error: %v", err)
		}
		addrs = append(addrs, addr)
		checkInvariant()
	}

	fs.FreeFrames(addrs[1], 4)
	checkInvariant()
	fs.FreeFrames(addrs[3], 8)
	checkInvariant()

	if got := fs.AllocatedFrameCount(); got != 4 {
		t.Fatalf("expected 4 allocated frames; got %d", got)
	}
}

func TestAllocReturnsDisjointRanges(t *testing.T) {
	var fs FrameSet
	mustInit(t, &fs, 32)

	type span struct{ first, last mm.Frame }
	var live []span

	for _, count := range []uint64{3, 1, 5, 2, 7} {
		addr, err := fs.AllocFrames(count)
		if err != nil {
			t.Fatalf("unexpected allocation error: %v", err)
		}

		if !addr.IsFrameAligned() {
			t.Fatalf("expected returned address 0x%x to be frame-aligned", uintptr(addr))
		}

		first := mm.FrameFromAddress(addr)
		next := span{first, first + mm.Frame(count) - 1}
		for _, s := range live {
			if next.first <= s.last && s.first <= next.last {
				t.Fatalf("allocation [%d-%d] overlaps live allocation [%d-%d]", next.first, next.last, s.first, s.last)
			}
		}
		live = append(live, next)
	}
}

func TestAllocFirstFitIsLowestAddress(t *testing.T) {
	var fs FrameSet
	mustInit(t, &fs, 16)

	// Fill the pool, then free two runs; the next fitting request must
	// come from the lower one.
	base, err := fs.AllocFrames(16)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	lowRun := base + mm.PhysAddr(2*mm.PageSize)  // frames 2-3
	highRun := base + mm.PhysAddr(9*mm.PageSize) // frames 9-10
	fs.FreeFrames(highRun, 2)
	fs.FreeFrames(lowRun, 2)

	got, err := fs.AllocFrames(2)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	if got != lowRun {
		t.Fatalf("expected first-fit to return the lowest run 0x%x; got 0x%x", uintptr(lowRun), uintptr(got))
	}
}

func TestAllocOutOfMemoryOnFragmentation(t *testing.T) {
	var fs FrameSet
	mustInit(t, &fs, 6)

	// Allocate everything, then free isolated frames 0, 2 and 4. The
	// aggregate free count (3) exceeds the request (2) but no contiguous
	// run of two frames exists.
	base, err := fs.AllocFrames(6)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	for _, frameIndex := range []uint64{0, 2, 4} {
		fs.FreeFrames(base+mm.PhysAddr(uintptr(frameIndex)*mm.PageSize), 1)
	}

	if got := fs.FreeFrameCount(); got != 3 {
		t.Fatalf("expected 3 free frames; got %d", got)
	}

	if _, err = fs.AllocFrames(2); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory; got %v", err)
	}

	// Single-frame requests must still succeed and pick frame 0.
	got, err := fs.AllocFrames(1)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}
	if got != base {
		t.Fatalf("expected allocation to return 0x%x; got 0x%x", uintptr(base), uintptr(got))
	}
}

func TestFreedFramesAreReusable(t *testing.T) {
	var fs FrameSet
	mustInit(t, &fs, 8)

	addr, err := fs.AllocFrames(8)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	fs.FreeFrames(addr, 8)

	// A request of matching size must succeed and reuse the freed run.
	got, err := fs.AllocFrames(8)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}
	if got != addr {
		t.Fatalf("expected freed run 0x%x to be reused; got 0x%x", uintptr(addr), uintptr(got))
	}

	fs.FreeFrames(got, 8)

	// Smaller requests must fit inside the freed run as well.
	if _, err = fs.AllocFrames(3); err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}
}

func TestAllocZeroedFrames(t *testing.T) {
	defer func() {
		directMappedFn = func(addr mm.PhysAddr) mm.VirtAddr { return addr.DirectMapped() }
	}()

	var fs FrameSet
	mustInit(t, &fs, 4)

	// Redirect the direct-map alias into a local buffer standing in for
	// physical memory and dirty its contents.
	physMem := make([]byte, 4*mm.PageSize)
	for i := 0; i < len(physMem); i++ {
		physMem[i] = 0xFE
	}
	directMappedFn = func(addr mm.PhysAddr) mm.VirtAddr {
		return mm.VirtAddr(uintptr(unsafe.Pointer(&physMem[0])) + uintptr(addr))
	}

	addr, err := fs.AllocZeroedFrames(2)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	var (
		start = uintptr(addr)
		end   = start + 2*mm.PageSize
	)
	for i := start; i < end; i++ {
		if physMem[i] != 0 {
			t.Fatalf("expected byte %d of the allocated span to be zero; got 0x%x", i-start, physMem[i])
		}
	}

	// Bytes outside the allocated span must not be touched.
	if physMem[end] != 0xFE {
		t.Fatalf("expected byte past the allocated span to retain its value; got 0x%x", physMem[end])
	}
}

func TestContractViolationsAreFatal(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var lastPanic interface{}
	panicFn = func(e interface{}) { lastPanic = e }

	var fs FrameSet
	mustInit(t, &fs, 8)

	specs := []struct {
		descr  string
		fn     func()
		expErr *kernel.Error
	}{
		{
			"allocating zero frames",
			func() { fs.AllocFrames(0) },
			errZeroFrameCount,
		},
		{
			"freeing zero frames",
			func() { fs.FreeFrames(0, 0) },
			errZeroFrameCount,
		},
		{
			"freeing an unaligned address",
			func() { fs.FreeFrames(0x123, 1) },
			errUnalignedAddr,
		},
		{
			"freeing an unmanaged range",
			func() { fs.FreeFrames(0xf00000, 1) },
			errUnmanagedRange,
		},
		{
			"double free",
			func() {
				addr, _ := fs.AllocFrames(1)
				fs.FreeFrames(addr, 1)
				fs.FreeFrames(addr, 1)
			},
			errFrameNotAllocated,
		},
		{
			"freeing past the end of a pool",
			func() {
				addr, _ := fs.AllocFrames(1)
				fs.FreeFrames(addr, 64)
			},
			errUnmanagedRange,
		},
	}

	for specIndex, spec := range specs {
		lastPanic = nil
		spec.fn()

		if lastPanic != spec.expErr {
			t.Errorf("[spec %d] %s: expected panic with %v; got %v", specIndex, spec.descr, spec.expErr, lastPanic)
		}
	}
}

func TestKernelFrameSetEntryPoints(t *testing.T) {
	defer func() { kernelFrameSet = FrameSet{} }()
	kernelFrameSet = FrameSet{}

	err := Init([]memmap.Region{
		{Base: 0, Length: 16 * uint64(mm.PageSize), Kind: memmap.RegionUsable},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addr, err := AllocFrames(2)
	if err != nil {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	FreeFrames(addr, 2)

	if free := kernelFrameSet.FreeFrameCount(); free != 16 {
		t.Fatalf("expected all 16 frames to be free; got %d", free)
	}
}

// mustInit sets up a FrameSet with frameCount usable frames starting at
// physical address 0.
func mustInit(t *testing.T, fs *FrameSet, frameCount uint64) {
	t.Helper()

	err := fs.Init([]memmap.Region{
		{Base: 0, Length: frameCount * uint64(mm.PageSize), Kind: memmap.RegionUsable},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
}
