package hive

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/honeynil/hive/internal/checksum"
)

// DefaultExtension is the file extension discovery looks for.
const DefaultExtension = ".sql"

// Record represents one migration file belonging to a module.
//
// Records are pure derivations of the files on disk and are rebuilt on
// every discovery pass. They are never persisted.
//
// # Identity
//
// ID is "{module}_{prefix}" where prefix is the numeric filename prefix as
// written, so modules/auth/migrations/001_create_users.sql has the id
// "auth_001". IDs must be unique across all modules.
//
// # Dependencies
//
// Dependencies are declared in the leading comment block of the file:
//
//	-- @depends: auth_001
//	-- @depends: core_002, billing_001
//	-- @description: create the sessions table
//	CREATE TABLE sessions (...);
//
// The leading block is every line from the top of the file that is blank
// or starts with "--". Markers after the first statement are ignored.
type Record struct {
	// ID uniquely identifies the migration across all modules.
	ID string `json:"id"`

	// Module is the owning logical module (e.g., "auth", "core").
	Module string `json:"module"`

	// Filename is the original file name, for display only.
	Filename string `json:"filename"`

	// Sequence is the numeric filename prefix (>= 1).
	Sequence int `json:"sequence"`

	// Dependencies lists ids that must be applied first. Sorted, no duplicates.
	Dependencies []string `json:"dependencies"`

	// Description is a human-readable summary.
	Description string `json:"description,omitempty"`

	// Content is the raw file content.
	Content []byte `json:"-"`

	// Checksum is the SHA-256 of Content.
	Checksum string `json:"checksum"`
}

// clone returns a copy that shares no slices with r.
func (r *Record) clone() *Record {
	c := *r
	c.Dependencies = append([]string(nil), r.Dependencies...)
	c.Content = append([]byte(nil), r.Content...)
	return &c
}

var (
	filenamePattern   = regexp.MustCompile(`^(\d+)_(.+)$`)
	identityPattern   = regexp.MustCompile(`^[a-z0-9_]+$`)
	dependsMarker     = regexp.MustCompile(`^--\s*@depends\s*:(.*)$`)
	descriptionMarker = regexp.MustCompile(`^--\s*@description\s*:(.*)$`)
)

// ParseRecord builds a Record from a migration file.
//
// module is supplied by the caller (discovery takes it from the directory
// layout). The function is pure: no I/O, no existence checks on
// dependencies. Dangling dependencies are reported later by BuildGraph.
func ParseRecord(module, filename string, content []byte) (*Record, error) {
	if !identityPattern.MatchString(module) {
		return nil, &ParseError{Module: module, Filename: filename,
			Reason: "module name must contain only lowercase letters, numbers, and underscores"}
	}

	stem := strings.TrimSuffix(filename, extensionOf(filename))
	m := filenamePattern.FindStringSubmatch(stem)
	if m == nil {
		return nil, &ParseError{Module: module, Filename: filename,
			Reason: "file name must start with a sequence number followed by an underscore (e.g., 001_create_users.sql)"}
	}

	prefix, name := m[1], m[2]
	seq, err := strconv.Atoi(prefix)
	if err != nil {
		return nil, &ParseError{Module: module, Filename: filename, Reason: "invalid sequence number", Cause: err}
	}
	if seq < 1 {
		return nil, &ParseError{Module: module, Filename: filename, Reason: "sequence number must be 1 or greater"}
	}

	deps, description, err := parseHeader(content)
	if err != nil {
		return nil, &ParseError{Module: module, Filename: filename, Reason: err.Error()}
	}
	if description == "" {
		description = strings.ReplaceAll(name, "_", " ")
	}

	return &Record{
		ID:           module + "_" + prefix,
		Module:       module,
		Filename:     filename,
		Sequence:     seq,
		Dependencies: deps,
		Description:  description,
		Content:      content,
		Checksum:     checksum.Calculate(content),
	}, nil
}

type headerError string

func (e headerError) Error() string { return string(e) }

// parseHeader scans the leading comment block for @depends and
// @description markers.
func parseHeader(content []byte) ([]string, string, error) {
	set := make(map[string]struct{})
	var description string

	// Lines are sliced out of content directly so a long statement after
	// the header is never buffered.
	for rest := content; len(rest) > 0; {
		var raw []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			raw, rest = rest[:i], rest[i+1:]
		} else {
			raw, rest = rest, nil
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}
		if !bytes.HasPrefix(trimmed, []byte("--")) {
			break
		}
		line := string(trimmed)

		if m := dependsMarker.FindStringSubmatch(line); m != nil {
			ids := strings.FieldsFunc(m[1], func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t'
			})
			if len(ids) == 0 {
				return nil, "", headerError("empty @depends declaration")
			}
			for _, id := range ids {
				if !identityPattern.MatchString(id) {
					return nil, "", headerError("malformed dependency " + strconv.Quote(id))
				}
				set[id] = struct{}{}
			}
			continue
		}

		if m := descriptionMarker.FindStringSubmatch(line); m != nil && description == "" {
			description = strings.TrimSpace(m[1])
		}
	}

	deps := make([]string, 0, len(set))
	for id := range set {
		deps = append(deps, id)
	}
	sort.Strings(deps)

	return deps, description, nil
}

// extensionOf returns the extension of filename including the dot,
// or "" when there is none.
func extensionOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i <= 0 {
		return ""
	}
	return filename[i:]
}

// DependsOn reports whether r declares a direct dependency on id.
func (r *Record) DependsOn(id string) bool {
	i := sort.SearchStrings(r.Dependencies, id)
	return i < len(r.Dependencies) && r.Dependencies[i] == id
}
