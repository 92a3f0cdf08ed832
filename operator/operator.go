package operator

import (
	"github.com/apache/arrow/go/v13/arrow"
)

// Operator is the pull protocol every pipeline stage implements. A single
// driver thread calls the methods strictly sequentially, one tick per cycle:
// NeedsInput, optionally AddInput, GetOutput, IsFinished. No method may
// block; a stage that cannot make progress returns nil from GetOutput and
// waits for a later tick.
type Operator interface {
	// NeedsInput reports whether the stage wants a batch from its upstream
	// on this tick.
	NeedsInput() bool

	// AddInput hands the stage a batch from its upstream. Calling it on a
	// stage whose NeedsInput returned false is a wiring bug and panics.
	AddInput(batch arrow.Record)

	// GetOutput returns a batch if one became ready this tick, nil
	// otherwise. A nil result is not an error and not terminal.
	GetOutput() arrow.Record

	// Finish asks the stage to stop producing new data. The stage keeps
	// answering GetOutput until everything it has buffered is drained;
	// Finish never completes the stage synchronously. Idempotent.
	Finish()

	// IsFinished reports whether the stage has emitted everything it ever
	// will. Once true it stays true and GetOutput returns nil forever.
	IsFinished() bool
}

// Context is the per-operator accounting collaborator. The operator reports
// into it and owns none of its lifecycle.
type Context interface {
	// SetMemoryReservation reports the current size in bytes of the
	// operator's in-progress batch builder.
	SetMemoryReservation(bytes int64)

	// RecordGeneratedOutput reports an emitted batch.
	RecordGeneratedOutput(bytes int64, rows int64)
}

// MemoryTracker is the plain Context used by the engine and the tests. It
// accumulates output totals and remembers the latest builder reservation.
type MemoryTracker struct {
	ReservedBytes int64
	OutputBytes   int64
	OutputRows    int64
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func (tracker *MemoryTracker) SetMemoryReservation(bytes int64) {
	tracker.ReservedBytes = bytes
}

func (tracker *MemoryTracker) RecordGeneratedOutput(bytes int64, rows int64) {
	tracker.OutputBytes += bytes
	tracker.OutputRows += rows
}
