package hive

import (
	"fmt"
	"time"
)

// Status represents the tracked state of a migration.
type Status int

const (
	// StatusPending indicates no result has been recorded yet.
	StatusPending Status = iota

	// StatusApplied indicates the migration was applied successfully.
	StatusApplied

	// StatusFailed indicates the last apply attempt failed.
	StatusFailed

	// StatusSkipped indicates deployment tooling deliberately skipped it.
	StatusSkipped
)

// String returns the storage and display form of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending", "":
		return StatusPending, nil
	case "applied":
		return StatusApplied, nil
	case "failed":
		return StatusFailed, nil
	case "skipped":
		return StatusSkipped, nil
	default:
		return StatusPending, fmt.Errorf("unknown migration status %q", s)
	}
}

// StatusEntry is one persisted tracking row.
//
// A row with no entry in the store is reported as StatusPending with a nil
// AppliedAt. Rows are only written through Tracker.Record and are never
// deleted by hive.
type StatusEntry struct {
	// ID matches Record.ID.
	ID string `json:"id"`

	// Status is pending, applied, failed or skipped.
	Status Status `json:"status"`

	// AppliedAt is when the apply attempt finished (nil while pending).
	AppliedAt *time.Time `json:"applied_at,omitempty"`

	// ExecutionTimeMs is the wall-clock duration of the apply attempt.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	// Checksum is the checksum of the content that was actually applied.
	Checksum string `json:"checksum,omitempty"`
}

// Result describes the outcome of one apply attempt, as reported by
// deployment tooling after it executed (or skipped) a migration.
type Result struct {
	ID string

	// Success marks the attempt as applied; otherwise it is failed.
	Success bool

	// Skipped overrides Success and records StatusSkipped.
	Skipped bool

	// ExecutionTime is the wall-clock duration of the attempt. Must not be negative.
	ExecutionTime time.Duration

	// AppliedAt defaults to the tracker clock when zero.
	AppliedAt time.Time

	// Checksum of the content that was executed.
	Checksum string

	// Error is an optional failure message. It is logged, not stored.
	Error string
}

// status maps the result to the status it records.
func (r Result) status() Status {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Success:
		return StatusApplied
	default:
		return StatusFailed
	}
}

// validate reports why a result cannot be stored, or nil.
func (r Result) validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty migration id", ErrInvalidResult)
	}
	if r.ExecutionTime < 0 {
		return fmt.Errorf("%w: negative execution time %s for %s", ErrInvalidResult, r.ExecutionTime, r.ID)
	}
	return nil
}
