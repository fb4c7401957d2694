package hive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var migrationNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// IsValidMigrationName checks if a migration or module name is valid:
// lowercase letters, digits and underscores only.
func IsValidMigrationName(name string) bool {
	return migrationNamePattern.MatchString(name)
}

// NamingPattern defines the convention for migration filename prefixes.
type NamingPattern string

const (
	// NamingPatternNone disables prefix format validation (default).
	NamingPatternNone NamingPattern = ""

	// NamingPatternSequential enforces unpadded prefixes: 1_x.sql, 2_x.sql, ...
	NamingPatternSequential NamingPattern = "sequential"

	// NamingPatternSequentialPadded enforces padded prefixes: 001_x.sql, 002_x.sql, ...
	// This is the recommended default for most projects.
	NamingPatternSequentialPadded NamingPattern = "sequential-padded"
)

// NamingConfig configures filename prefix validation.
type NamingConfig struct {
	// Pattern specifies the naming pattern to enforce.
	// Default: NamingPatternNone (no validation).
	Pattern NamingPattern `yaml:"pattern"`

	// Padding is the digit count for NamingPatternSequentialPadded.
	// Default: 3 (001, 002, 003, ...)
	Padding int `yaml:"padding"`

	// Enforce turns violations into validation errors.
	// If false, violations are reported as warnings only.
	Enforce bool `yaml:"enforce"`
}

// DefaultNamingConfig returns the default naming configuration.
func DefaultNamingConfig() *NamingConfig {
	return &NamingConfig{
		Pattern: NamingPatternNone,
		Padding: 3,
		Enforce: true,
	}
}

func (nc *NamingConfig) padding() int {
	if nc == nil || nc.Padding <= 0 {
		return 3
	}
	return nc.Padding
}

// Validate checks a filename prefix (e.g., "001") against the pattern.
func (nc *NamingConfig) Validate(prefix string) error {
	if nc == nil || nc.Pattern == NamingPatternNone {
		return nil
	}

	switch nc.Pattern {
	case NamingPatternSequential:
		if _, err := strconv.Atoi(prefix); err != nil || strings.HasPrefix(prefix, "-") {
			return fmt.Errorf("prefix must be a positive integer (e.g., 1, 2, 3): got %q", prefix)
		}
		if len(prefix) > 1 && prefix[0] == '0' {
			return fmt.Errorf("prefix must not have leading zeros (use 'sequential-padded' pattern instead): got %q", prefix)
		}
		return nil
	case NamingPatternSequentialPadded:
		p := nc.padding()
		if len(prefix) != p || strings.Trim(prefix, "0123456789") != "" {
			return fmt.Errorf("prefix must be %d-digit format (e.g., %s): got %q", p, FormatSequence(1, p), prefix)
		}
		return nil
	default:
		return fmt.Errorf("unknown naming pattern: %s", nc.Pattern)
	}
}

// Prefix returns the filename prefix for a sequence number under this pattern.
// A nil config or NamingPatternNone formats as sequential-padded.
func (nc *NamingConfig) Prefix(seq int) string {
	if nc != nil && nc.Pattern == NamingPatternSequential {
		return strconv.Itoa(seq)
	}
	return FormatSequence(seq, nc.padding())
}

// FormatSequence zero-pads seq to padding digits.
func FormatSequence(seq, padding int) string {
	return fmt.Sprintf("%0*d", padding, seq)
}

// NextSequence returns the next free sequence number for module:
// one past the highest sequence already used.
func NextSequence(records []*Record, module string) int {
	highest := 0
	for _, r := range records {
		if r.Module == module && r.Sequence > highest {
			highest = r.Sequence
		}
	}
	return highest + 1
}

// MigrationFilename builds "{prefix}_{name}.sql" for a new migration.
func (nc *NamingConfig) MigrationFilename(seq int, name string) string {
	return nc.Prefix(seq) + "_" + name + DefaultExtension
}

// recordPrefix returns the numeric prefix of a record's id.
func recordPrefix(r *Record) string {
	return strings.TrimPrefix(r.ID, r.Module+"_")
}
