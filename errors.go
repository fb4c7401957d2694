package hive

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by hive operations.
var (
	ErrNoDriver          = errors.New("tracking driver not configured")
	ErrMigrationNotFound = errors.New("migration not found")
	ErrInvalidResult     = errors.New("invalid migration result")
)

// ParseError reports a migration file that cannot be interpreted.
//
// It is returned by ParseRecord and propagated unchanged (wrapped) by
// discovery, so a single malformed file fails the whole pass.
type ParseError struct {
	Module   string // Owning module, if known
	Filename string // Offending file name (e.g., "003_create_x.sql")
	Reason   string // What was wrong
	Cause    error  // Underlying error, if any (e.g., read failure)
}

func (e *ParseError) Error() string {
	name := e.Filename
	if e.Module != "" {
		name = e.Module + "/" + e.Filename
	}
	if e.Cause != nil {
		return fmt.Sprintf("parse migration %s: %s: %v", name, e.Reason, e.Cause)
	}
	return fmt.Sprintf("parse migration %s: %s", name, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ProblemKind classifies a structural problem in a migration set.
type ProblemKind string

const (
	// ProblemDuplicateID means two records share an id.
	ProblemDuplicateID ProblemKind = "duplicate_id"

	// ProblemUnknownDependency means a record depends on an id that does not exist.
	ProblemUnknownDependency ProblemKind = "unknown_dependency"

	// ProblemSequenceGap means a module skips a sequence number.
	ProblemSequenceGap ProblemKind = "sequence_gap"

	// ProblemSequenceDuplicate means a module uses a sequence number twice.
	ProblemSequenceDuplicate ProblemKind = "sequence_duplicate"

	// ProblemCycle means the dependency relation contains a cycle.
	ProblemCycle ProblemKind = "cycle"

	// ProblemChecksumDrift means an applied migration changed on disk.
	ProblemChecksumDrift ProblemKind = "checksum_drift"
)

// Problem is one structural issue found while validating migrations.
type Problem struct {
	Kind ProblemKind `json:"kind"`

	// ID is the migration the problem is attached to (empty for module-level problems).
	ID string `json:"id,omitempty"`

	// Module is set for sequencing problems.
	Module string `json:"module,omitempty"`

	// Dependency is the missing id for ProblemUnknownDependency.
	Dependency string `json:"dependency,omitempty"`

	// Sequence is the missing or duplicated sequence number.
	Sequence int `json:"sequence,omitempty"`

	// Nodes lists the ids on a cycle, first node repeated at the end.
	Nodes []string `json:"nodes,omitempty"`
}

// String renders the problem as a single human-readable line.
func (p Problem) String() string {
	switch p.Kind {
	case ProblemDuplicateID:
		return "duplicate migration id: " + p.ID
	case ProblemUnknownDependency:
		return fmt.Sprintf("unknown dependency: %s required by %s", p.Dependency, p.ID)
	case ProblemSequenceGap:
		return fmt.Sprintf("module %s: missing sequence %d", p.Module, p.Sequence)
	case ProblemSequenceDuplicate:
		return fmt.Sprintf("module %s: duplicate sequence %d", p.Module, p.Sequence)
	case ProblemCycle:
		return "dependency cycle detected: " + strings.Join(p.Nodes, " -> ")
	case ProblemChecksumDrift:
		return fmt.Sprintf("checksum drift: %s was modified after it was applied", p.ID)
	default:
		return string(p.Kind)
	}
}

// ValidationError carries every structural problem found in a migration set.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "migration validation failed"
	case 1:
		return "migration validation failed: " + e.Problems[0].String()
	default:
		return fmt.Sprintf("migration validation failed with %d problems: %s",
			len(e.Problems), strings.Join(e.Messages(), "; "))
	}
}

// Messages returns one line per problem.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.String())
	}
	return msgs
}

// HasCycle reports whether any problem is a dependency cycle.
func (e *ValidationError) HasCycle() bool {
	for _, p := range e.Problems {
		if p.Kind == ProblemCycle {
			return true
		}
	}
	return false
}
