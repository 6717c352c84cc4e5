//go:build windows

package memregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func newRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memregion: size must be positive, got %d", size)
	}

	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("memregion: VirtualAlloc: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	release := func() error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}
	return &Region{data: data, release: release}, nil
}
