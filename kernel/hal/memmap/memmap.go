// Package memmap defines the boundary through which the boot core receives
// the firmware memory map. The environment (multiboot shim, e820 collector)
// registers a collector before boot; the bring-up sequencer drains it exactly
// once and feeds the regions to the frame allocator untouched.
package memmap

import (
	"halcyon/kernel"
	"halcyon/kernel/mm"
)

// RegionKind describes the type tag attached to a memory region.
type RegionKind uint32

const (
	// RegionUsable marks memory that is free for kernel use.
	RegionUsable RegionKind = iota + 1

	// RegionReserved marks memory that must never be touched.
	RegionReserved

	// RegionACPIReclaimable marks memory holding ACPI tables that can be
	// reused once the tables have been consumed.
	RegionACPIReclaimable

	// RegionBad marks memory reported as faulty by the firmware.
	RegionBad
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionACPIReclaimable:
		return "ACPI (reclaimable)"
	case RegionBad:
		return "bad"
	default:
		return "unknown"
	}
}

// Region describes one physical memory region reported by the firmware.
// Regions are produced once by the collector and are immutable afterwards.
type Region struct {
	// The physical address where this region starts.
	Base mm.PhysAddr

	// The length of the region in bytes.
	Length uint64

	// The type tag for this region.
	Kind RegionKind
}

// CollectorFn returns the ordered region list assembled by the firmware
// interface. The list is treated as authoritative: it is never merged,
// sorted or deduplicated by the boot core.
type CollectorFn func() []Region

var (
	errNoCollector    = &kernel.Error{Module: "memmap", Message: "no memory map collector registered"}
	errAlreadyDrained = &kernel.Error{Module: "memmap", Message: "memory map already discovered"}

	collectorFn CollectorFn
	drained     bool
)

// SetCollector registers the function that yields the firmware memory map.
// It must be called before the bring-up sequencer starts. Registering a new
// collector never re-arms discovery: the memory map is consumed exactly once
// for the lifetime of the kernel.
func SetCollector(fn CollectorFn) {
	collectorFn = fn
}

// DiscoverRegions invokes the registered collector and returns the region
// list verbatim. The collector is consulted exactly once; a second discovery
// attempt or a missing collector is a boot configuration error.
func DiscoverRegions() ([]Region, *kernel.Error) {
	if collectorFn == nil {
		return nil, errNoCollector
	}

	if drained {
		return nil, errAlreadyDrained
	}

	drained = true
	return collectorFn(), nil
}
