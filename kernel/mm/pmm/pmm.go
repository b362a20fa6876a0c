// Package pmm implements the physical frame allocator. Free frames are
// tracked with per-region bitmaps; allocation is first-fit over contiguous
// runs with ties resolved to the lowest address so low memory, which legacy
// hardware often requires, is only handed out when nothing below it fits.
package pmm

import (
	"halcyon/kernel"
	"halcyon/kernel/hal/memmap"
	"halcyon/kernel/kfmt"
	"halcyon/kernel/mm"
	"halcyon/kernel/sync"
)

var (
	// ErrOutOfMemory is returned when no contiguous run of free frames
	// can satisfy an allocation request. Callers decide their own policy;
	// the allocator never retries or compacts.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

	errNoUsableMemory    = &kernel.Error{Module: "pmm", Message: "no usable memory regions found"}
	errRegionOverlap     = &kernel.Error{Module: "pmm", Message: "memory map regions overlap or are out of order"}
	errZeroFrameCount    = &kernel.Error{Module: "pmm", Message: "requested a zero frame count"}
	errUnalignedAddr     = &kernel.Error{Module: "pmm", Message: "address is not frame-aligned"}
	errUnmanagedRange    = &kernel.Error{Module: "pmm", Message: "range is not managed by the allocator"}
	errFrameNotAllocated = &kernel.Error{Module: "pmm", Message: "freeing a frame that is not allocated"}

	// The following functions are mocked by tests.
	panicFn        = kfmt.Panic
	memsetFn       = kernel.Memset
	directMappedFn = func(addr mm.PhysAddr) mm.VirtAddr { return addr.DirectMapped() }
)

// Range describes a physical address range excluded from frame management
// (e.g. the loaded kernel image or bootloader structures).
type Range struct {
	Base   mm.PhysAddr
	Length uint64
}

// framePool tracks the frames of one contiguous run of managed physical
// memory. Bit i of the bitmap is set while frame (startFrame + i) is
// allocated.
type framePool struct {
	startFrame mm.Frame
	endFrame   mm.Frame // inclusive

	freeCount uint64
	bitmap    []uint64
}

// frameCount returns the total number of frames tracked by this pool.
func (p *framePool) frameCount() uint64 {
	return uint64(p.endFrame-p.startFrame) + 1
}

// FrameSet records the free/allocated state of every managed physical frame.
// The invariant FreeFrames() + AllocatedFrames() == TotalFrames() holds
// before and after every operation; the total is fixed at Init time.
//
// Once interrupt delivery is enabled, interrupt-context and normal-context
// callers may race on the same FrameSet, so every state mutation happens
// under a spinlock.
type FrameSet struct {
	lock sync.Spinlock

	pools           []framePool
	totalFrames     uint64
	allocatedFrames uint64
}

// Init builds the free-frame record from the Usable entries of the supplied
// memory map, excluding any frame that overlaps one of the reserved ranges.
// The region list is used as-is: entries must be ordered and disjoint, and
// any inconsistency is a fatal configuration error rather than something the
// allocator attempts to repair. Finding no usable memory at all is an
// unrecoverable boot error.
func (fs *FrameSet) Init(regions []memmap.Region, reserved []Range) *kernel.Error {
	var lastEndFrame mm.Frame

	printMemoryMap(regions)

	for _, region := range regions {
		if region.Kind != memmap.RegionUsable || region.Length == 0 {
			continue
		}

		// Reported addresses may not be frame-aligned; round up to get
		// the start frame and round down to get the exclusive frame
		// limit. Comparing before subtracting keeps a region smaller
		// than a frame from underflowing the end frame.
		pageSizeMinus1 := mm.PhysAddr(mm.PageSize - 1)
		regionStartFrame := mm.Frame(((region.Base + pageSizeMinus1) &^ pageSizeMinus1) >> mm.PageShift)
		regionFrameLimit := mm.Frame(((region.Base + mm.PhysAddr(region.Length)) &^ pageSizeMinus1) >> mm.PageShift)
		if regionStartFrame >= regionFrameLimit {
			continue
		}
		regionEndFrame := regionFrameLimit - 1

		if len(fs.pools) != 0 && regionStartFrame <= lastEndFrame {
			return errRegionOverlap
		}
		lastEndFrame = regionEndFrame

		fs.addPools(regionStartFrame, regionEndFrame, reserved)
	}

	if fs.totalFrames == 0 {
		return errNoUsableMemory
	}

	kfmt.Printf("[pmm] managing %d frames (%d KiB usable)\n", fs.totalFrames, fs.totalFrames*uint64(mm.PageSize)/1024)
	return nil
}

// addPools splits the frame range [startFrame, endFrame] around the reserved
// ranges and registers a pool for each maximal run of managed frames.
func (fs *FrameSet) addPools(startFrame, endFrame mm.Frame, reserved []Range) {
	for startFrame <= endFrame {
		// Locate the earliest reserved range overlapping what is left
		// of this region. Any frame that overlaps a reserved range,
		// even partially, is excluded.
		var (
			holeStart = endFrame + 1
			holeEnd   mm.Frame
		)
		for _, r := range reserved {
			if r.Length == 0 {
				continue
			}

			resStart := mm.FrameFromAddress(r.Base)
			resEnd := mm.FrameFromAddress(r.Base + mm.PhysAddr(r.Length) - 1)
			if resEnd < startFrame || resStart > endFrame || resStart >= holeStart {
				continue
			}

			holeStart, holeEnd = resStart, resEnd
		}

		if holeStart > startFrame {
			poolEnd := endFrame
			if holeStart <= endFrame {
				poolEnd = holeStart - 1
			}

			count := uint64(poolEnd-startFrame) + 1
			fs.pools = append(fs.pools, framePool{
				startFrame: startFrame,
				endFrame:   poolEnd,
				freeCount:  count,
				bitmap:     make([]uint64, (count+63)>>6),
			})
			fs.totalFrames += count
		}

		if holeStart > endFrame {
			return
		}
		startFrame = holeEnd + 1
	}
}

// AllocFrames reserves frameCount contiguous free frames and returns the
// physical address of the first one. The search is first-fit in ascending
// address order. If no contiguous run of the requested length exists the
// request fails with ErrOutOfMemory even when the aggregate free count would
// suffice. Requesting zero frames is a contract violation and is fatal.
func (fs *FrameSet) AllocFrames(frameCount uint64) (mm.PhysAddr, *kernel.Error) {
	if frameCount == 0 {
		panicFn(errZeroFrameCount)
		return 0, errZeroFrameCount
	}

	fs.lock.Acquire()
	defer fs.lock.Release()

	for poolIndex := 0; poolIndex < len(fs.pools); poolIndex++ {
		pool := &fs.pools[poolIndex]
		if pool.freeCount < frameCount {
			continue
		}

		first, ok := pool.findRun(frameCount)
		if !ok {
			continue
		}

		pool.mark(first, frameCount, true)
		pool.freeCount -= frameCount
		fs.allocatedFrames += frameCount
		return (pool.startFrame + mm.Frame(first)).Address(), nil
	}

	return 0, ErrOutOfMemory
}

// AllocZeroedFrames behaves like AllocFrames but additionally overwrites the
// allocated span with zero bytes through the direct-map alias before
// returning it. Callers that interpret the memory as a structure with a
// defined initial state (e.g. a fresh page table) must use this variant.
func (fs *FrameSet) AllocZeroedFrames(frameCount uint64) (mm.PhysAddr, *kernel.Error) {
	addr, err := fs.AllocFrames(frameCount)
	if err != nil {
		return 0, err
	}

	memsetFn(uintptr(directMappedFn(addr)), 0, uintptr(frameCount)*mm.PageSize)
	return addr, nil
}

// FreeFrames returns the frameCount frames starting at addr to the free
// pool. The address must be frame-aligned and must have been returned by
// this allocator with the same frame count; violating either is a
// programming error and is fatal, since silently repairing a bad free would
// mask frame-state corruption with no diagnostic path available this early.
func (fs *FrameSet) FreeFrames(addr mm.PhysAddr, frameCount uint64) {
	if frameCount == 0 {
		panicFn(errZeroFrameCount)
		return
	}
	if !addr.IsFrameAligned() {
		panicFn(errUnalignedAddr)
		return
	}

	fs.lock.Acquire()
	defer fs.lock.Release()

	var (
		firstFrame = mm.FrameFromAddress(addr)
		lastFrame  = firstFrame + mm.Frame(frameCount) - 1
	)

	for poolIndex := 0; poolIndex < len(fs.pools); poolIndex++ {
		pool := &fs.pools[poolIndex]
		if firstFrame < pool.startFrame || firstFrame > pool.endFrame {
			continue
		}

		// Allocations never span pools, so the entire run must fall
		// inside this one.
		if lastFrame > pool.endFrame {
			panicFn(errUnmanagedRange)
			return
		}

		first := uint64(firstFrame - pool.startFrame)
		for i := uint64(0); i < frameCount; i++ {
			if pool.bitmap[(first+i)>>6]&(1<<((first+i)&63)) == 0 {
				panicFn(errFrameNotAllocated)
				return
			}
		}

		pool.mark(first, frameCount, false)
		pool.freeCount += frameCount
		fs.allocatedFrames -= frameCount
		return
	}

	panicFn(errUnmanagedRange)
}

// TotalFrames returns the number of frames managed by this set. The value is
// fixed for the lifetime of the set.
func (fs *FrameSet) TotalFrames() uint64 {
	return fs.totalFrames
}

// FreeFrameCount returns the number of frames currently free.
func (fs *FrameSet) FreeFrameCount() uint64 {
	fs.lock.Acquire()
	defer fs.lock.Release()
	return fs.totalFrames - fs.allocatedFrames
}

// AllocatedFrameCount returns the number of frames currently allocated.
func (fs *FrameSet) AllocatedFrameCount() uint64 {
	fs.lock.Acquire()
	defer fs.lock.Release()
	return fs.allocatedFrames
}

// findRun scans the pool bitmap for the lowest run of frameCount clear bits
// and returns the index of the first frame in the run. Fully allocated words
// are skipped 64 frames at a time.
func (p *framePool) findRun(frameCount uint64) (uint64, bool) {
	var (
		total  = p.frameCount()
		runLen uint64
	)

	for i := uint64(0); i < total; {
		if (i&63) == 0 && i+64 <= total && p.bitmap[i>>6] == ^uint64(0) {
			runLen = 0
			i += 64
			continue
		}

		if p.bitmap[i>>6]&(1<<(i&63)) == 0 {
			runLen++
			if runLen == frameCount {
				return i - frameCount + 1, true
			}
		} else {
			runLen = 0
		}
		i++
	}

	return 0, false
}

// mark sets (allocated=true) or clears the frameCount bitmap bits starting
// at frame index first.
func (p *framePool) mark(first, frameCount uint64, allocated bool) {
	for i := first; i < first+frameCount; i++ {
		if allocated {
			p.bitmap[i>>6] |= 1 << (i & 63)
		} else {
			p.bitmap[i>>6] &^= 1 << (i & 63)
		}
	}
}

// printMemoryMap logs the memory map handed to the allocator.
func printMemoryMap(regions []memmap.Region) {
	kfmt.Printf("[pmm] system memory map:\n")

	var totalUsable uint64
	for _, region := range regions {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n",
			uintptr(region.Base),
			uintptr(region.Base)+uintptr(region.Length),
			region.Length,
			region.Kind.String(),
		)

		if region.Kind == memmap.RegionUsable {
			totalUsable += region.Length
		}
	}
	kfmt.Printf("[pmm] usable memory: %dKb\n", totalUsable/1024)
}

// kernelFrameSet is the FrameSet instance that backs the package-level
// entry points below. It covers all frames not claimed by the kernel image
// or boot structures and serves every later-initialized subsystem that
// needs physical storage.
var kernelFrameSet FrameSet

// Init sets up the kernel physical memory allocation subsystem.
func Init(regions []memmap.Region, reserved []Range) *kernel.Error {
	return kernelFrameSet.Init(regions, reserved)
}

// AllocFrames reserves frameCount contiguous frames from the kernel frame
// set.
func AllocFrames(frameCount uint64) (mm.PhysAddr, *kernel.Error) {
	return kernelFrameSet.AllocFrames(frameCount)
}

// AllocZeroedFrames reserves frameCount contiguous zero-filled frames from
// the kernel frame set.
func AllocZeroedFrames(frameCount uint64) (mm.PhysAddr, *kernel.Error) {
	return kernelFrameSet.AllocZeroedFrames(frameCount)
}

// FreeFrames returns frames previously allocated from the kernel frame set.
func FreeFrames(addr mm.PhysAddr, frameCount uint64) {
	kernelFrameSet.FreeFrames(addr, frameCount)
}
