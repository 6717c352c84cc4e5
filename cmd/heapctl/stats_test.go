package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatsTextOutput(t *testing.T) {
	jsonOut = false
	defer func() { jsonOut = false }()

	f := simFlags{pages: 8, preset: "default", checkLevel: -1}
	out, err := captureOutput(t, func() error {
		return runStats(f, []string{"alloc:900"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Total bytes:")
	assert.Contains(t, out, "Used bytes:")
}

func TestRunStatsJSONOutput(t *testing.T) {
	jsonOut = true
	defer func() { jsonOut = false }()

	f := simFlags{pages: 8, preset: "default", checkLevel: -1}
	out, err := captureOutput(t, func() error {
		return runStats(f, nil)
	})
	require.NoError(t, err)
	assertJSON(t, out)
}
