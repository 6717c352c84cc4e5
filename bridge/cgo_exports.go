// This file holds the cgo export surface, compiled with
// `go build -buildmode=c-archive` (or c-shared) so a C executive image
// can link against the flat names below. Every exported function is a
// thin marshal-and-delegate wrapper over bridge.go; no logic lives
// here.
package main

/*
typedef struct HeapRegion_t {
	size_t sizeBytes;
} HeapRegion_t;

typedef struct HeapStats_t {
	unsigned int totalHeapSize;
	unsigned int availableHeapSize;
	unsigned int minimumEverFreeSize;
	unsigned int numberOfZones;
} HeapStats_t;
*/
import "C"

import (
	"unsafe"

	"pageheap/heap"
	"pageheap/internal/obslog"
)

// recoverCorruption converts a panicking *heap.CorruptionError into a
// logged, re-panicking crash: the embedding C build has no Go runtime
// to recover into, so the most useful thing a hosted build can do is
// put the structured diagnosis in the log before the process goes
// down anyway.
func recoverCorruption() {
	if r := recover(); r != nil {
		if ce, ok := r.(*heap.CorruptionError); ok {
			obslog.Logger().Error("fatal heap corruption", "error", ce.Error())
		}
		panic(r)
	}
}

//export pvPortMalloc
func pvPortMalloc(n C.size_t) unsafe.Pointer {
	defer recoverCorruption()
	return Malloc(uint32(n))
}

//export vPortFree
func vPortFree(p unsafe.Pointer) {
	defer recoverCorruption()
	Free(p)
}

//export pvPortCalloc
func pvPortCalloc(num C.size_t, elemSize C.size_t) unsafe.Pointer {
	defer recoverCorruption()
	return Calloc(uint32(num), uint32(elemSize))
}

//export xPortGetFreeHeapSize
func xPortGetFreeHeapSize() C.size_t {
	return C.size_t(FreeHeapSize())
}

//export xPortGetMinimumEverFreeHeapSize
func xPortGetMinimumEverFreeHeapSize() C.size_t {
	return C.size_t(MinimumEverFreeHeapSize())
}

//export vPortGetHeapStats
func vPortGetHeapStats(out *C.HeapStats_t) {
	if out == nil {
		return
	}
	s := GetHeapStats()
	out.totalHeapSize = C.uint(s.TotalHeapSize)
	out.availableHeapSize = C.uint(s.AvailableHeapSize)
	out.minimumEverFreeSize = C.uint(s.MinimumEverFreeSize)
	out.numberOfZones = C.uint(s.NumberOfZones)
}

//export vPortInitialiseBlocks
func vPortInitialiseBlocks() {
	InitialiseBlocks()
}

//export vPortHeapResetState
func vPortHeapResetState() {
	ResetState()
}

//export vPortDefineHeapRegions
func vPortDefineHeapRegions(regions *C.HeapRegion_t, count C.int) C.int {
	if regions == nil || count <= 0 {
		return -1
	}

	n := int(count)
	if n > MaxZones {
		n = MaxZones
	}
	cSlice := unsafe.Slice(regions, n)

	descriptors := make([]HeapRegion, 0, n)
	for _, r := range cSlice {
		if r.sizeBytes == 0 {
			break
		}
		descriptors = append(descriptors, HeapRegion{SizeBytes: uint32(r.sizeBytes)})
	}

	if err := DefineHeapRegions(heap.DefaultConfig, descriptors, nil); err != nil {
		obslog.Logger().Error("vPortDefineHeapRegions failed", "error", err)
		return -1
	}
	return 0
}

//export heapZoneSet
func heapZoneSet(sel C.int) {
	ZoneSet(heap.ZoneSelector(sel))
}

//export heapZoneGet
func heapZoneGet() C.int {
	return C.int(ZoneGet())
}

//export heapZoneGetCount
func heapZoneGetCount() C.int {
	return C.int(ZoneGetCount())
}

//export heapZoneGetFreeBytes
func heapZoneGetFreeBytes(i C.int) C.size_t {
	v, _ := ZoneGetFreeBytes(uint8(i))
	return C.size_t(v)
}

//export heapZoneGetTotalBytes
func heapZoneGetTotalBytes(i C.int) C.size_t {
	v, _ := ZoneGetTotalBytes(uint8(i))
	return C.size_t(v)
}

//export heapZoneGetMinimumFreeBytes
func heapZoneGetMinimumFreeBytes(i C.int) C.size_t {
	v, _ := ZoneGetMinimumFreeBytes(uint8(i))
	return C.size_t(v)
}

//export heapZoneGetUsedBytes
func heapZoneGetUsedBytes(i C.int) C.size_t {
	v, _ := ZoneGetUsedBytes(uint8(i))
	return C.size_t(v)
}

func main() {}
