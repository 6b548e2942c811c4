package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryRequired is returned when a plugin registry is not provided.
	ErrRegistryRequired = errors.New("plugin registry required")

	// ErrSourceRequired is returned when a source with no data is submitted.
	ErrSourceRequired = errors.New("source with data required")

	// ErrBusy is returned when a run for the same document id is
	// already in flight and the pipeline is configured to fail fast.
	ErrBusy = errors.New("ingestion already in flight for document")

	// ErrInvalidMaxAttempts is returned for a non-positive retry attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")
)

// RunError is the run-level failure returned by Ingest. State is the
// last state the run reached before failing; Unwrap yields the
// underlying stage error so errors.Is classifies the kind.
type RunError struct {
	State State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("ingestion failed after %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
