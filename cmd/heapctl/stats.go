package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var f simFlags
	cmd := &cobra.Command{
		Use:   "stats [op...]",
		Short: "Show free/used/minimum-ever byte counts for a simulated zone",
		Long: `Builds a zone, runs the given workload (same op syntax as simulate),
and reports the byte-level statistics a host's GetHeapStats call would
see rather than simulate's page-level diagnostics.

Example:
  heapctl stats --pages 8 alloc:900 alloc:900 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(f, args)
		},
	}
	addSimFlags(cmd, &f)
	rootCmd.AddCommand(cmd)
}

type zoneStats struct {
	TotalBytes      int `json:"totalBytes"`
	FreeBytes       int `json:"freeBytes"`
	UsedBytes       int `json:"usedBytes"`
	MinEverFreeSize int `json:"minEverFreeBytes"`
}

func runStats(f simFlags, args []string) error {
	ops, err := parseOps(args)
	if err != nil {
		return err
	}

	z, err := buildZone(f)
	if err != nil {
		return err
	}

	runOps(z, ops)

	st := zoneStats{
		TotalBytes:      z.TotalBytes(),
		FreeBytes:       z.FreeBytes(),
		UsedBytes:       z.UsedBytes(),
		MinEverFreeSize: z.MinEverFreeBytes(),
	}

	if jsonOut {
		return printJSON(st)
	}

	printInfo("Total bytes:          %d\n", st.TotalBytes)
	printInfo("Free bytes:           %d\n", st.FreeBytes)
	printInfo("Used bytes:           %d\n", st.UsedBytes)
	printInfo("Minimum ever free:    %d\n", st.MinEverFreeSize)
	return nil
}
