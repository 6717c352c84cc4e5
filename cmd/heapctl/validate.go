package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var f simFlags
	cmd := &cobra.Command{
		Use:   "validate [op...]",
		Short: "Run a workload then run every configured integrity check",
		Long: `Builds a zone, runs the given workload (same op syntax as simulate),
then runs RunChecks and reports pass/fail. A corrupted zone panics with
a structured diagnosis instead of returning a plain failure, matching
the fatal-assertion policy the allocator core uses everywhere else.

Example:
  heapctl validate --preset strict --pages 8 alloc:900 free:0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(f, args)
		},
	}
	addSimFlags(cmd, &f)
	rootCmd.AddCommand(cmd)
}

type validateResult struct {
	OK bool `json:"ok"`
}

func runValidate(f simFlags, args []string) error {
	ops, err := parseOps(args)
	if err != nil {
		return err
	}

	z, err := buildZone(f)
	if err != nil {
		return err
	}

	runOps(z, ops)
	ok := z.RunChecks()

	if jsonOut {
		return printJSON(validateResult{OK: ok})
	}

	if ok {
		printInfo("heap integrity: OK\n")
	} else {
		printInfo("heap integrity: FAILED\n")
	}
	return nil
}
