//go:build linux || freebsd || darwin

package memregion

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func newRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memregion: size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("memregion: mmap: %w", err)
	}

	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return err
	}
	return &Region{data: data, release: release}, nil
}
