package heap

import (
	"sync"
	"unsafe"

	"pageheap/mpu"
)

// ZoneSelector controls which of a Router's zones an allocation should
// prefer.
type ZoneSelector int

const (
	// SelectAny lets the router pick whichever zone has room,
	// trying zones in index order.
	SelectAny ZoneSelector = iota
	// SelectFast restricts the allocation to the fast zone only.
	SelectFast
	// SelectSlow restricts the allocation to the slow zone only.
	SelectSlow
	// SelectFastPrefer tries the fast zone first, falling back to the
	// slow zone if the fast zone cannot satisfy the request.
	SelectFastPrefer
	// SelectSlowPrefer tries the slow zone first, falling back to the
	// fast zone if the slow zone cannot satisfy the request.
	SelectSlowPrefer
)

// ZoneRole marks a zone's position for the *Prefer selectors. A Router
// with only one zone treats it as both fast and slow.
type ZoneRole int

const (
	RoleFast ZoneRole = iota
	RoleSlow
)

// Router owns one or more Zones and serialises every operation across
// them behind a single mutex, mirroring the original heap-port's
// single-critical-section contract: the whole allocator, not just one
// zone, is the unit of mutual exclusion.
type Router struct {
	mu    sync.Mutex
	zones []*Zone
	roles []ZoneRole
}

// NewRouter builds a Router with no zones. Use AddZone to attach
// backing regions before the first Allocate.
func NewRouter() *Router {
	return &Router{}
}

// AddZone attaches a new zone carved from data, in the given role, and
// returns its zone index.
func (r *Router) AddZone(cfg Config, data []byte, role ZoneRole, guard mpu.Guard) (uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := uint8(len(r.zones))
	z, err := NewZone(cfg, data, idx, guard)
	if err != nil {
		return 0, err
	}
	r.zones = append(r.zones, z)
	r.roles = append(r.roles, role)
	return idx, nil
}

// ZoneCount returns the number of zones currently attached.
func (r *Router) ZoneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.zones)
}

func (r *Router) zonesForRole(role ZoneRole) []int {
	var out []int
	for i, rl := range r.roles {
		if rl == role {
			out = append(out, i)
		}
	}
	return out
}

func (r *Router) resolveRoute(sel ZoneSelector) []int {
	switch sel {
	case SelectFast:
		return r.zonesForRole(RoleFast)
	case SelectSlow:
		return r.zonesForRole(RoleSlow)
	case SelectFastPrefer:
		return append(r.zonesForRole(RoleFast), r.zonesForRole(RoleSlow)...)
	case SelectSlowPrefer:
		return append(r.zonesForRole(RoleSlow), r.zonesForRole(RoleFast)...)
	default:
		order := make([]int, len(r.zones))
		for i := range order {
			order[i] = i
		}
		return order
	}
}

// Allocate satisfies reqSize bytes from the first eligible zone under
// sel's routing order.
func (r *Router) Allocate(reqSize uint32, sel ZoneSelector) (unsafe.Pointer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.zones) == 0 {
		return nil, ErrNotInitialized
	}

	var lastErr error = ErrOutOfPages
	for _, idx := range r.resolveRoute(sel) {
		ptr, err := r.zones[idx].Allocate(reqSize)
		if err == nil {
			return ptr, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Calloc is the zero-filled counterpart of Allocate.
func (r *Router) Calloc(num, elemSize uint32, sel ZoneSelector) (unsafe.Pointer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.zones) == 0 {
		return nil, ErrNotInitialized
	}

	var lastErr error = ErrOutOfPages
	for _, idx := range r.resolveRoute(sel) {
		ptr, err := r.zones[idx].Calloc(num, elemSize)
		if err == nil {
			return ptr, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Deallocate finds the zone owning ptr and frees it there. It panics
// with *CorruptionError if ptr is not owned by any attached zone.
func (r *Router) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, z := range r.zones {
		if z.OwnsPointer(ptr) {
			z.Deallocate(ptr)
			return
		}
	}
	panicContract("deallocate: pointer not owned by any zone")
}

// OwnsPointer reports whether any attached zone considers ptr one of
// its own.
func (r *Router) OwnsPointer(ptr unsafe.Pointer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, z := range r.zones {
		if z.OwnsPointer(ptr) {
			return true
		}
	}
	return false
}

// GetFreeHeapSize returns the sum of every zone's currently free bytes.
func (r *Router) GetFreeHeapSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, z := range r.zones {
		total += z.FreeBytes()
	}
	return total
}

// GetMinimumEverFreeBytes returns the sum of every zone's low
// watermark. Zones hit their low watermarks at different times, so
// this is an upper bound on the true combined minimum, not itself a
// minimum that was ever observed simultaneously across all zones.
func (r *Router) GetMinimumEverFreeBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, z := range r.zones {
		total += z.MinEverFreeBytes()
	}
	return total
}

// ZoneFreeBytes returns zoneIndex's free byte count.
func (r *Router) ZoneFreeBytes(zoneIndex uint8) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(zoneIndex) >= len(r.zones) {
		return 0, false
	}
	return r.zones[zoneIndex].FreeBytes(), true
}

// ZoneTotalBytes returns zoneIndex's total capacity.
func (r *Router) ZoneTotalBytes(zoneIndex uint8) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(zoneIndex) >= len(r.zones) {
		return 0, false
	}
	return r.zones[zoneIndex].TotalBytes(), true
}

// ZoneUsedBytes returns zoneIndex's used byte count.
func (r *Router) ZoneUsedBytes(zoneIndex uint8) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(zoneIndex) >= len(r.zones) {
		return 0, false
	}
	return r.zones[zoneIndex].UsedBytes(), true
}

// ZoneMinimumEverFreeBytes returns zoneIndex's low watermark.
func (r *Router) ZoneMinimumEverFreeBytes(zoneIndex uint8) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(zoneIndex) >= len(r.zones) {
		return 0, false
	}
	return r.zones[zoneIndex].MinEverFreeBytes(), true
}

// ResetState discards every live allocation and quarantine entry
// across all zones, returning each to its freshly-constructed state.
// It does not rezero the backing storage unless the zone's
// ClearOnEvict is set; it exists for test harnesses and for recovery
// after a detected corruption has already been reported, not for use
// on a heap still in normal service.
func (r *Router) ResetState() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, z := range r.zones {
		z.resetState()
	}
}

// ValidateHeap runs every configured integrity check across every
// zone and reports whether the whole router is internally consistent.
func (r *Router) ValidateHeap() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, z := range r.zones {
		if !z.RunChecks() {
			return false
		}
	}
	return true
}
