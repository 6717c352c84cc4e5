package heap

// ZoneDiagnostics is a read-only fragmentation/occupancy snapshot of a
// single zone, intended for operator tooling rather than allocator
// logic. Building one never mutates the zone: it walks the same
// bitmaps RunChecks already traverses.
type ZoneDiagnostics struct {
	ZoneIndex          uint8
	TotalPages         int
	FreePages          int
	LivePages          int
	QuarantinedPages   int
	LargestFreeRun     int
	QuarantineActive   int
	QuarantineCapacity int
	SuccessfulAllocs   uint64
	SuccessfulFrees    uint64
}

// Diagnostics builds a snapshot of the zone's current state.
func (z *Zone) Diagnostics() ZoneDiagnostics {
	live := z.bitmapAllocated.countSet()
	inUse := z.bitmapInUse.countSet()

	return ZoneDiagnostics{
		ZoneIndex:          z.zoneIndex,
		TotalPages:         z.totalPages,
		FreePages:          z.freePages,
		LivePages:          live,
		QuarantinedPages:   inUse - live,
		LargestFreeRun:     z.bitmapInUse.largestFreeRun(),
		QuarantineActive:   z.quarantine.count(),
		QuarantineCapacity: z.quarantine.capacity(),
		SuccessfulAllocs:   z.successfulAllocs,
		SuccessfulFrees:    z.successfulFrees,
	}
}

// Diagnostics returns a snapshot for every attached zone, in zone-index
// order.
func (r *Router) Diagnostics() []ZoneDiagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ZoneDiagnostics, len(r.zones))
	for i, z := range r.zones {
		out[i] = z.Diagnostics()
	}
	return out
}
