package main

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/spf13/cobra"

	"pageheap/heap"
)

// simFlags are the heap-construction flags shared by simulate, stats,
// and validate.
type simFlags struct {
	pageSize   uint32
	pages      int
	quarantine uint32
	checkLevel int
	preset     string
}

func addSimFlags(cmd *cobra.Command, f *simFlags) {
	cmd.Flags().Uint32Var(&f.pageSize, "page-size", 0, "Page size in bytes (0 uses the preset's default)")
	cmd.Flags().IntVar(&f.pages, "pages", 8, "Number of pages in the zone")
	cmd.Flags().Uint32Var(&f.quarantine, "quarantine-capacity", 0, "Quarantine capacity (0 uses the preset's default)")
	cmd.Flags().IntVar(&f.checkLevel, "check-level", -1, "Quarantine check level 0-3 (-1 uses the preset's default)")
	cmd.Flags().StringVar(&f.preset, "preset", "default", "Config preset: default, strict, fast")
}

func (f simFlags) resolveConfig() (heap.Config, error) {
	var cfg heap.Config
	switch f.preset {
	case "default":
		cfg = heap.DefaultConfig
	case "strict":
		cfg = heap.StrictConfig
	case "fast":
		cfg = heap.FastConfig
	default:
		return heap.Config{}, fmt.Errorf("unknown preset %q (must be default, strict, or fast)", f.preset)
	}

	if f.pageSize != 0 {
		cfg.PageSize = f.pageSize
	}
	if f.quarantine != 0 {
		cfg.QuarantineCapacity = f.quarantine
	}
	if f.checkLevel >= 0 {
		cfg.QuarantineCheckLevel = f.checkLevel
	}
	return cfg, nil
}

// buildZone constructs a single-zone heap for the simulation commands.
// The MPU guard is always nil here: exercising MPU coalescing from a
// hosted CLI offers nothing a unit test doesn't already cover better.
func buildZone(f simFlags) (*heap.Zone, error) {
	cfg, err := f.resolveConfig()
	if err != nil {
		return nil, err
	}
	data := make([]byte, int(cfg.PageSize)*f.pages)
	return heap.NewZone(cfg, data, 0, nil)
}

// simOp is one parsed step of a workload script: "alloc:<n>" or
// "free:<handle>".
type simOp struct {
	isFree bool
	size   uint32
	handle int
}

func parseOps(args []string) ([]simOp, error) {
	ops := make([]simOp, 0, len(args))
	for _, a := range args {
		parts := strings.SplitN(a, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed op %q (want alloc:<bytes> or free:<handle>)", a)
		}
		switch parts[0] {
		case "alloc":
			n, err := strconv.ParseUint(parts[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad alloc size in %q: %w", a, err)
			}
			ops = append(ops, simOp{size: uint32(n)})
		case "free":
			h, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("bad free handle in %q: %w", a, err)
			}
			ops = append(ops, simOp{isFree: true, handle: h})
		default:
			return nil, fmt.Errorf("unknown op kind %q in %q", parts[0], a)
		}
	}
	return ops, nil
}

// runOps executes a parsed workload against z, logging each step via
// printVerbose, and returns the live handle table (nil entries mark
// freed or failed allocations).
func runOps(z *heap.Zone, ops []simOp) []unsafe.Pointer {
	handles := make([]unsafe.Pointer, 0, len(ops))
	for _, op := range ops {
		if op.isFree {
			if op.handle < 0 || op.handle >= len(handles) {
				printError("free: handle %d out of range\n", op.handle)
				continue
			}
			z.Deallocate(handles[op.handle])
			handles[op.handle] = nil
			printVerbose("free handle=%d\n", op.handle)
			continue
		}

		ptr, err := z.Allocate(op.size)
		if err != nil {
			printVerbose("alloc size=%d failed: %v\n", op.size, err)
			handles = append(handles, nil)
			continue
		}
		printVerbose("alloc size=%d -> handle=%d\n", op.size, len(handles))
		handles = append(handles, ptr)
	}
	return handles
}
