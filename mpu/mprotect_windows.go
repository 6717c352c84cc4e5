//go:build windows

package mpu

import (
	"golang.org/x/sys/windows"
)

// Host is the Windows realisation of a host-OS-backed guard, using
// VirtualProtect in place of mprotect(2).
type Host struct {
	capacity int
	active   map[int]hostRegion
	next     int
}

type hostRegion struct {
	addr uintptr
	size uintptr
	old  uint32
}

var hostPageSize = uintptr(windows.Getpagesize())

// NewHost returns a Host-backed guard with room for capacity
// simultaneously protected regions.
func NewHost(capacity int) *Host {
	return &Host{capacity: capacity, active: make(map[int]hostRegion, capacity)}
}

func (h *Host) Protect(addr uintptr, size uintptr) (int, bool) {
	if len(h.active) >= h.capacity {
		return -1, false
	}
	if addr%hostPageSize != 0 || size%hostPageSize != 0 || size == 0 {
		return -1, false
	}

	var old uint32
	err := windows.VirtualProtect(addr, size, windows.PAGE_READONLY, &old)
	if err != nil {
		return -1, false
	}

	id := h.next
	h.next++
	h.active[id] = hostRegion{addr: addr, size: size, old: old}
	return id, true
}

func (h *Host) Unprotect(region int) {
	r, ok := h.active[region]
	if !ok {
		return
	}
	var old uint32
	_ = windows.VirtualProtect(r.addr, r.size, r.old, &old)
	delete(h.active, region)
}

func (h *Host) Available() bool { return true }
