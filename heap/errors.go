package heap

import (
	"errors"
	"fmt"

	"pageheap/internal/obslog"
)

// Benign, non-fatal conditions. These are never panics: the operation
// simply declines and the caller's counters don't advance.
var (
	// ErrZeroSize is returned by allocate for a requested size of 0.
	ErrZeroSize = errors.New("heap: requested size must be non-zero")

	// ErrOutOfPages is returned when no free run large enough exists.
	ErrOutOfPages = errors.New("heap: no free run large enough")

	// ErrCallocOverflow is returned when n*elemSize overflows.
	ErrCallocOverflow = errors.New("heap: calloc size overflow")

	// ErrNotOwned is returned by a Zone when asked to deallocate a
	// pointer it does not own. The Router turns the all-zones-failed
	// case of this into a fatal NotOwnedError instead.
	ErrNotOwned = errors.New("heap: pointer not owned by this zone")

	// ErrNotInitialized is returned by operations on a zero-value Zone.
	ErrNotInitialized = errors.New("heap: zone not initialized")
)

func errConfigInvalid(msg string) error {
	return fmt.Errorf("heap: invalid config: %s", msg)
}

// CorruptionError is raised (via panic, never returned) whenever a guard
// record, a quarantine payload, or padding fails validation, or a
// contract violation is detected (double init, unowned free, ISR
// context). It carries enough structure for a caller's recover handler
// to log a precise diagnosis instead of a bare panic string.
type CorruptionError struct {
	Component string // "header", "footer", "pair", "quarantine", "padding", "contract"
	Field     string
	Offset    int
	Want      uint64
	Got       uint64
	Message   string
}

func (e *CorruptionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("heap: %s corruption: %s", e.Component, e.Message)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf(
			"heap: %s corruption at offset 0x%x: field %s want=0x%x got=0x%x",
			e.Component, e.Offset, e.Field, e.Want, e.Got,
		)
	}
	return fmt.Sprintf(
		"heap: %s corruption: field %s want=0x%x got=0x%x",
		e.Component, e.Field, e.Want, e.Got,
	)
}

func panicCorrupt(component, field string, offset int, want, got uint64) {
	err := &CorruptionError{Component: component, Field: field, Offset: offset, Want: want, Got: got}
	obslog.Logger().Warn("heap corruption detected", "component", component, "field", field, "offset", offset, "want", want, "got", got)
	panic(err)
}

func panicContract(message string) {
	err := &CorruptionError{Component: "contract", Message: message, Offset: -1}
	obslog.Logger().Warn("heap contract violation", "message", message)
	panic(err)
}
