package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var f simFlags
	cmd := &cobra.Command{
		Use:   "simulate [op...]",
		Short: "Run a scripted allocate/free workload against a simulated zone",
		Long: `Each op is either alloc:<bytes> or free:<handle>, where <handle> is
the 0-based index the op appeared at in the workload when it was an
alloc. Ops run in order against a single freshly-built zone.

Example:
  heapctl simulate --pages 8 alloc:900 alloc:900 free:0 alloc:900 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(f, args)
		},
	}
	addSimFlags(cmd, &f)
	rootCmd.AddCommand(cmd)
}

func runSimulate(f simFlags, args []string) error {
	ops, err := parseOps(args)
	if err != nil {
		return err
	}

	z, err := buildZone(f)
	if err != nil {
		return err
	}

	runOps(z, ops)
	diag := z.Diagnostics()

	if jsonOut {
		return printJSON(diag)
	}

	printInfo("Zone diagnostics after %d op(s):\n", len(ops))
	printInfo("  Total pages:       %d\n", diag.TotalPages)
	printInfo("  Free pages:        %d\n", diag.FreePages)
	printInfo("  Live pages:        %d\n", diag.LivePages)
	printInfo("  Quarantined pages: %d\n", diag.QuarantinedPages)
	printInfo("  Largest free run:  %d\n", diag.LargestFreeRun)
	printInfo("  Quarantine:        %d/%d\n", diag.QuarantineActive, diag.QuarantineCapacity)
	printInfo("  Allocs/Frees:      %d/%d\n", diag.SuccessfulAllocs, diag.SuccessfulFrees)
	return nil
}
