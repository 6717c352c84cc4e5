//go:build linux || freebsd || darwin

package mpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// hostPageSize is the granularity the OS enforces for mprotect; it has
// no relationship to the allocator's own, much smaller PageSize.
var hostPageSize = uintptr(unix.Getpagesize())

// Host is a real, host-OS-backed guard: Protect calls mprotect(2) to
// mark a range read-only. It only succeeds when the requested range is
// aligned to and sized in multiples of the host's own page granularity,
// since mprotect cannot operate at finer resolution; callers ask for
// narrower windows when alignment fails, exactly as the coalescing
// logic above this package already does for its own power-of-two
// probing.
type Host struct {
	capacity int
	active   map[int]hostRegion
	next     int
}

type hostRegion struct {
	addr uintptr
	size uintptr
}

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

	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size) //nolint:govet
	if err := unix.Mprotect(b, unix.PROT_READ); err != nil {
		return -1, false
	}

	id := h.next
	h.next++
	h.active[id] = hostRegion{addr: addr, size: size}
	return id, true
}

func (h *Host) Unprotect(region int) {
	r, ok := h.active[region]
	if !ok {
		return
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(r.addr)), r.size) //nolint:govet
	_ = unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE)
	delete(h.active, region)
}

func (h *Host) Available() bool { return true }
