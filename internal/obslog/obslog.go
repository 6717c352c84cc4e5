// Package obslog is the ambient logging seam shared by every command
// and library package in this module. It starts silent so importing it
// has no effect on a library caller that never configures it, and is
// upgraded once, early, by whichever binary owns process startup.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	log = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

// Options configures the process-wide logger.
type Options struct {
	// Level selects the minimum level that reaches the handler.
	Level slog.Level
	// JSON selects a JSON handler when true, a human-readable text
	// handler when false.
	JSON bool
	// Writer is where log output goes. Defaults to os.Stderr.
	Writer io.Writer
}

// Init installs the process-wide logger. Call it once, as early as
// possible, from a binary's main function; library packages should
// never call it.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	log = slog.New(h)
}

// Logger returns the current process-wide logger. Safe for concurrent
// use; reflects whatever the most recent Init call configured.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}
