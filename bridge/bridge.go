// Command bridge is the foreign function surface: a process-wide
// Router singleton plus the logic every exported C entry point
// delegates to. It is package main because cgo's -buildmode=c-archive
// and c-shared both require the exporting package to be main;
// cgo_exports.go holds only the //export directives and C-type
// marshalling, every actual decision lives in this file so it stays
// unit-testable without a cgo-enabled build.
package main

import (
	"sync"
	"unsafe"

	"pageheap/heap"
	"pageheap/internal/memregion"
	"pageheap/internal/obslog"
	"pageheap/mpu"
)

// MaxZones bounds how many regions DefineHeapRegions accepts, mirroring
// the host heap-port contract's MAX_ZONES ceiling.
const MaxZones = 8

// HeapRegion describes one zone's backing storage. The original
// contract's descriptor also carries a fixed start address; this port
// always allocates fresh storage via internal/memregion, so only the
// size is meaningful here.
type HeapRegion struct {
	SizeBytes uint32
}

var (
	mu               sync.Mutex
	router           *heap.Router
	selector         = heap.SelectAny
	regions          []*memregion.Region
	mallocFailedHook func()
)

// SetMallocFailedHook registers fn to be invoked, with no arguments,
// every time Malloc is about to return a nil pointer. Passing nil
// disables the hook. Mirrors the original contract's
// vApplicationMallocFailedHook, which the embedding C build links in
// conditionally.
func SetMallocFailedHook(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	mallocFailedHook = fn
}

// DefineHeapRegions tears down any existing singleton and builds a
// fresh Router with one zone per entry in sizes, stopping at the first
// zero size or at MaxZones, whichever comes first. The first zone is
// treated as the fast zone; every subsequent zone is slow, matching a
// primary/secondary deployment with any number of secondary zones.
func DefineHeapRegions(cfg heap.Config, descriptors []HeapRegion, guard mpu.Guard) error {
	mu.Lock()
	defer mu.Unlock()

	releaseRegions()
	router = heap.NewRouter()

	for i, d := range descriptors {
		if d.SizeBytes == 0 || i >= MaxZones {
			break
		}
		region, err := memregion.New(int(d.SizeBytes))
		if err != nil {
			releaseRegions()
			router = nil
			return err
		}
		regions = append(regions, region)

		role := heap.RoleSlow
		if i == 0 {
			role = heap.RoleFast
		}
		if _, err := router.AddZone(cfg, region.Bytes(), role, guard); err != nil {
			releaseRegions()
			router = nil
			return err
		}
	}

	obslog.Logger().Info("heap regions defined", "zoneCount", router.ZoneCount())
	return nil
}

func releaseRegions() {
	for _, r := range regions {
		_ = r.Release()
	}
	regions = nil
}

func currentRouter() *heap.Router {
	mu.Lock()
	defer mu.Unlock()
	return router
}

// Malloc allocates n bytes from the current zone selector's route,
// invoking the registered malloc-failed hook on a nil result.
func Malloc(n uint32) unsafe.Pointer {
	r := currentRouter()
	if r == nil {
		runMallocFailedHook()
		return nil
	}

	mu.Lock()
	sel := selector
	mu.Unlock()

	ptr, err := r.Allocate(n, sel)
	if err != nil {
		runMallocFailedHook()
		return nil
	}
	return ptr
}

// Calloc is the zero-filled counterpart of Malloc.
func Calloc(num, elemSize uint32) unsafe.Pointer {
	r := currentRouter()
	if r == nil {
		runMallocFailedHook()
		return nil
	}

	mu.Lock()
	sel := selector
	mu.Unlock()

	ptr, err := r.Calloc(num, elemSize, sel)
	if err != nil {
		runMallocFailedHook()
		return nil
	}
	return ptr
}

func runMallocFailedHook() {
	mu.Lock()
	hook := mallocFailedHook
	mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Free deallocates ptr via whichever zone owns it. A nil or
// already-quarantined pointer is handled by the Router/Zone contract;
// an unowned pointer panics, same as the rest of the core.
func Free(ptr unsafe.Pointer) {
	r := currentRouter()
	if r == nil {
		return
	}
	r.Deallocate(ptr)
}

// FreeHeapSize returns the combined currently-free byte count across
// every zone.
func FreeHeapSize() uint32 {
	r := currentRouter()
	if r == nil {
		return 0
	}
	return uint32(r.GetFreeHeapSize())
}

// MinimumEverFreeHeapSize returns the combined low-watermark free byte
// count across every zone.
func MinimumEverFreeHeapSize() uint32 {
	r := currentRouter()
	if r == nil {
		return 0
	}
	return uint32(r.GetMinimumEverFreeBytes())
}

// HeapStats mirrors the host contract's stats record.
type HeapStats struct {
	TotalHeapSize       uint32
	AvailableHeapSize   uint32
	MinimumEverFreeSize uint32
	NumberOfZones       uint32
}

// GetHeapStats populates a HeapStats snapshot of the current router.
func GetHeapStats() HeapStats {
	r := currentRouter()
	if r == nil {
		return HeapStats{}
	}

	var total uint32
	for i := 0; ; i++ {
		tb, ok := r.ZoneTotalBytes(uint8(i))
		if !ok {
			break
		}
		total += uint32(tb)
	}

	return HeapStats{
		TotalHeapSize:       total,
		AvailableHeapSize:   uint32(r.GetFreeHeapSize()),
		MinimumEverFreeSize: uint32(r.GetMinimumEverFreeBytes()),
		NumberOfZones:       uint32(r.ZoneCount()),
	}
}

// InitialiseBlocks is a no-op, matching the original contract: zones
// are already fully initialised by DefineHeapRegions.
func InitialiseBlocks() {}

// ResetState discards every live allocation and quarantine entry
// across all zones without releasing their backing storage.
func ResetState() {
	r := currentRouter()
	if r == nil {
		return
	}
	r.ResetState()
}

// ZoneSet changes the zone selector future Malloc/Calloc calls route
// through.
func ZoneSet(sel heap.ZoneSelector) {
	mu.Lock()
	defer mu.Unlock()
	selector = sel
}

// ZoneGet returns the current zone selector.
func ZoneGet() heap.ZoneSelector {
	mu.Lock()
	defer mu.Unlock()
	return selector
}

// ZoneGetCount returns the number of zones attached to the current
// router, or 0 if none has been defined.
func ZoneGetCount() int {
	r := currentRouter()
	if r == nil {
		return 0
	}
	return r.ZoneCount()
}

// ZoneGetFreeBytes returns zone i's currently free byte count.
func ZoneGetFreeBytes(i uint8) (uint32, bool) {
	r := currentRouter()
	if r == nil {
		return 0, false
	}
	v, ok := r.ZoneFreeBytes(i)
	return uint32(v), ok
}

// ZoneGetTotalBytes returns zone i's total capacity in bytes.
func ZoneGetTotalBytes(i uint8) (uint32, bool) {
	r := currentRouter()
	if r == nil {
		return 0, false
	}
	v, ok := r.ZoneTotalBytes(i)
	return uint32(v), ok
}

// ZoneGetMinimumFreeBytes returns zone i's low watermark.
func ZoneGetMinimumFreeBytes(i uint8) (uint32, bool) {
	r := currentRouter()
	if r == nil {
		return 0, false
	}
	v, ok := r.ZoneMinimumEverFreeBytes(i)
	return uint32(v), ok
}

// ZoneGetUsedBytes returns zone i's used byte count.
func ZoneGetUsedBytes(i uint8) (uint32, bool) {
	r := currentRouter()
	if r == nil {
		return 0, false
	}
	v, ok := r.ZoneUsedBytes(i)
	return uint32(v), ok
}
