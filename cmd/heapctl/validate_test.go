package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidatePassesOnHealthyWorkload(t *testing.T) {
	jsonOut = true
	defer func() { jsonOut = false }()

	f := simFlags{pages: 8, preset: "strict", checkLevel: -1}
	out, err := captureOutput(t, func() error {
		return runValidate(f, []string{"alloc:900", "alloc:900", "free:0"})
	})
	require.NoError(t, err)
	assertJSON(t, out)
	assert.Contains(t, out, `"ok": true`)
}
