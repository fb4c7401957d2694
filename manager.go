// Package hive resolves migration dependencies across modules.
//
// hive discovers per-module SQL migration files, parses them into records,
// builds a validated dependency graph with a deterministic application
// order, and reports what a tracking store believes has already run.
// It validates and reports; it never executes migrations. Running the SQL is
// the job of deployment tooling, which reports back through Tracker.Record.
//
// # Layout
//
//	modules/
//	    auth/migrations/001_create_users.sql
//	    auth/migrations/002_add_sessions.sql     -- @depends: auth_001
//	    core/migrations/001_create_settings.sql  -- @depends: auth_001
//
// # Basic Usage
//
//	driver := postgres.New(db)
//	m := hive.New(driver, hive.WithLogger(slog.Default()))
//
//	report := m.Validate(ctx, "modules")
//	if !report.Success {
//	    for _, e := range report.Errors {
//	        fmt.Println(e)
//	    }
//	    os.Exit(1)
//	}
//
//	for _, id := range report.Graph.Order {
//	    // apply id, then:
//	    m.Tracker().Record(ctx, hive.Result{ID: id, Success: true, ExecutionTime: d})
//	}
package hive

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DriftPolicy decides how an applied migration whose file changed since it
// was applied is reported.
type DriftPolicy string

const (
	// DriftIgnore skips checksum comparison.
	DriftIgnore DriftPolicy = "ignore"

	// DriftWarn reports drift as a warning (default).
	DriftWarn DriftPolicy = "warn"

	// DriftError reports drift as a validation error.
	DriftError DriftPolicy = "error"
)

// ParseDriftPolicy converts a configuration string to a DriftPolicy.
func ParseDriftPolicy(s string) (DriftPolicy, error) {
	switch DriftPolicy(s) {
	case "":
		return DriftWarn, nil
	case DriftIgnore, DriftWarn, DriftError:
		return DriftPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown drift policy %q (want ignore, warn or error)", s)
	}
}

// Config configures a Manager.
type Config struct {
	// Extension selects migration files. Default: ".sql".
	Extension string

	// Cache memoises parsed records across passes. Default: none.
	Cache *RecordCache

	// Logger receives start/end lines and warnings. Default: no-op.
	Logger Logger

	// Naming validates filename prefixes. Default: no validation.
	Naming *NamingConfig

	// DriftPolicy controls checksum drift reporting. Default: DriftWarn.
	DriftPolicy DriftPolicy
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extension:   DefaultExtension,
		DriftPolicy: DriftWarn,
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithCache sets the parse cache.
func WithCache(cache *RecordCache) Option {
	return func(c *Config) { c.Cache = cache }
}

// WithNaming sets the filename prefix convention.
func WithNaming(nc *NamingConfig) Option {
	return func(c *Config) { c.Naming = nc }
}

// WithDriftPolicy sets the drift policy.
func WithDriftPolicy(p DriftPolicy) Option {
	return func(c *Config) { c.DriftPolicy = p }
}

// WithExtension sets the migration file extension.
func WithExtension(ext string) Option {
	return func(c *Config) { c.Extension = ext }
}

// Manager composes discovery, graph building and tracking into reports.
//
// A Manager holds configuration and a driver only; every call recomputes
// everything from disk and the store. It is safe for concurrent use when its
// driver is.
type Manager struct {
	driver     Driver
	config     *Config
	discoverer *Discoverer
	tracker    *Tracker
	logger     Logger
}

// New creates a Manager. driver may be nil, in which case Validate skips
// drift detection and Summary returns ErrNoDriver.
func New(driver Driver, opts ...Option) *Manager {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return NewWithConfig(driver, config)
}

// NewWithConfig creates a Manager with a custom configuration.
func NewWithConfig(driver Driver, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DriftPolicy == "" {
		config.DriftPolicy = DriftWarn
	}

	logger := loggerOrDefault(config.Logger)

	return &Manager{
		driver: driver,
		config: config,
		discoverer: &Discoverer{
			Extension: config.Extension,
			Cache:     config.Cache,
			Logger:    logger,
		},
		tracker: NewTracker(driver, WithTrackerLogger(logger)),
		logger:  logger,
	}
}

// Tracker returns the tracker backed by the Manager's driver.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Close closes the driver, if any.
func (m *Manager) Close() error {
	if m.driver == nil {
		return nil
	}
	return m.driver.Close()
}

// Discover returns the records found under root, sorted by module, sequence
// and id. No graph checks are run.
func (m *Manager) Discover(ctx context.Context, root string) ([]*Record, error) {
	records, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	return sortedRecords(records), nil
}

// ValidationReport is the outcome of Validate.
type ValidationReport struct {
	// Success is true iff Errors is empty.
	Success bool `json:"success"`

	// Migrations lists discovered records, in application order when the
	// graph is valid.
	Migrations []*Record `json:"migrations"`

	// Errors lists every blocking problem, one line each.
	Errors []string `json:"errors"`

	// Warnings lists non-blocking findings (drift, naming, tracker faults).
	Warnings []string `json:"warnings"`

	// Problems holds the structured form of graph and drift findings.
	Problems []Problem `json:"problems,omitempty"`

	// Graph is nil when the set has structural errors.
	Graph *Graph `json:"graph,omitempty"`
}

// Validate discovers migrations under root and runs every structural check.
//
// Validate never returns an error: parse failures, graph problems
// (including cycles) and tracker faults all become report entries.
// Consumers should treat Success == false as a hard gate.
func (m *Manager) Validate(ctx context.Context, root string) *ValidationReport {
	m.logger.InfoContext(ctx, "validating migrations", "root", root)

	report := &ValidationReport{
		Migrations: []*Record{},
		Errors:     []string{},
		Warnings:   []string{},
	}

	records, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		m.finishValidation(ctx, root, report)
		return report
	}

	m.checkNaming(records, report)

	graph, err := BuildGraph(records)
	switch {
	case err == nil:
		report.Graph = graph
		report.Migrations = graph.Records()
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			report.Problems = append(report.Problems, verr.Problems...)
			report.Errors = append(report.Errors, verr.Messages()...)
		} else {
			report.Errors = append(report.Errors, err.Error())
		}
		report.Migrations = sortedRecords(records)
	}

	m.checkDrift(ctx, records, report)

	m.finishValidation(ctx, root, report)
	return report
}

func (m *Manager) finishValidation(ctx context.Context, root string, report *ValidationReport) {
	report.Success = len(report.Errors) == 0
	if report.Success {
		m.logger.InfoContext(ctx, "migrations valid",
			"root", root,
			"migrations", len(report.Migrations),
			"warnings", len(report.Warnings),
		)
		return
	}
	m.logger.WarnContext(ctx, "migration validation failed",
		"root", root,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
	)
}

func (m *Manager) checkNaming(records []*Record, report *ValidationReport) {
	nc := m.config.Naming
	if nc == nil || nc.Pattern == NamingPatternNone {
		return
	}
	for _, r := range sortedRecords(records) {
		if err := nc.Validate(recordPrefix(r)); err != nil {
			msg := fmt.Sprintf("%s/%s: %v", r.Module, r.Filename, err)
			if nc.Enforce {
				report.Errors = append(report.Errors, msg)
			} else {
				report.Warnings = append(report.Warnings, msg)
			}
		}
	}
}

func (m *Manager) checkDrift(ctx context.Context, records []*Record, report *ValidationReport) {
	if m.driver == nil || m.config.DriftPolicy == DriftIgnore || len(records) == 0 {
		return
	}

	entries, err := m.tracker.Status(ctx, records)
	if err != nil {
		report.Warnings = append(report.Warnings, "tracking status unavailable: "+err.Error())
		return
	}

	for i, r := range records {
		if !Drifted(r, entries[i]) {
			continue
		}
		p := Problem{Kind: ProblemChecksumDrift, ID: r.ID, Module: r.Module}
		report.Problems = append(report.Problems, p)
		if m.config.DriftPolicy == DriftError {
			report.Errors = append(report.Errors, p.String())
		} else {
			report.Warnings = append(report.Warnings, p.String())
		}
	}
}

// Drifted reports whether an applied migration's file changed since it ran.
func Drifted(r *Record, e StatusEntry) bool {
	return e.Status == StatusApplied && e.Checksum != "" && e.Checksum != r.Checksum
}

// Counts aggregates statuses for a group of migrations.
type Counts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	// Drifted counts applied migrations whose file changed since.
	Drifted int `json:"drifted"`
}

func (c *Counts) add(r *Record, e StatusEntry) {
	c.Total++
	switch e.Status {
	case StatusApplied:
		c.Applied++
	case StatusFailed:
		c.Failed++
	case StatusSkipped:
		c.Skipped++
	default:
		c.Pending++
	}
	if Drifted(r, e) {
		c.Drifted++
	}
}

// SummaryReport aggregates tracking status per module and overall.
type SummaryReport struct {
	Modules map[string]Counts `json:"modules"`
	Overall Counts            `json:"overall"`
}

// Summary combines discovery with tracker status for every record.
//
// Failed counts are informational: a failed migration may be retried or
// superseded, so callers should surface them as warnings.
func (m *Manager) Summary(ctx context.Context, root string) (*SummaryReport, error) {
	if m.driver == nil {
		return nil, ErrNoDriver
	}

	records, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	entries, err := m.tracker.Status(ctx, records)
	if err != nil {
		return nil, err
	}

	report := &SummaryReport{Modules: make(map[string]Counts)}
	for i, r := range records {
		c := report.Modules[r.Module]
		c.add(r, entries[i])
		report.Modules[r.Module] = c
		report.Overall.add(r, entries[i])
	}

	m.logger.InfoContext(ctx, "migration summary",
		"root", root,
		"total", report.Overall.Total,
		"pending", report.Overall.Pending,
		"applied", report.Overall.Applied,
		"failed", report.Overall.Failed,
	)
	if report.Overall.Failed > 0 {
		m.logger.WarnContext(ctx, "failed migrations present", "failed", report.Overall.Failed)
	}

	return report, nil
}

// PlanEntry is one step of an application plan.
type PlanEntry struct {
	Position     int         `json:"position"`
	ID           string      `json:"id"`
	Module       string      `json:"module"`
	Filename     string      `json:"filename"`
	Description  string      `json:"description,omitempty"`
	Dependencies []string    `json:"dependencies"`
	Status       Status      `json:"status"`
	Drifted      bool        `json:"drifted,omitempty"`
	Record       *Record     `json:"-"`
	Entry        StatusEntry `json:"-"`
}

// Plan returns every migration in application order joined with its
// tracked status. Without a driver every entry is pending. A set with
// structural problems yields the *ValidationError from BuildGraph.
func (m *Manager) Plan(ctx context.Context, root string) ([]PlanEntry, error) {
	records, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	graph, err := BuildGraph(records)
	if err != nil {
		return nil, err
	}

	ordered := graph.Records()
	entries, err := m.statusOrPending(ctx, ordered)
	if err != nil {
		return nil, err
	}

	plan := make([]PlanEntry, 0, len(ordered))
	for i, r := range ordered {
		plan = append(plan, PlanEntry{
			Position:     i + 1,
			ID:           r.ID,
			Module:       r.Module,
			Filename:     r.Filename,
			Description:  r.Description,
			Dependencies: r.Dependencies,
			Status:       entries[i].Status,
			Drifted:      Drifted(r, entries[i]),
			Record:       r,
			Entry:        entries[i],
		})
	}
	return plan, nil
}

// Explanation describes one migration and its neighbourhood.
type Explanation struct {
	Record *Record `json:"record"`

	// Dependencies are the direct dependencies.
	Dependencies []string `json:"dependencies"`

	// Requires lists every transitive dependency, nearest first.
	Requires []string `json:"requires"`

	// Dependents are migrations that depend on this one directly.
	Dependents []string `json:"dependents"`

	// Position is the 1-based place in application order, or 0 when the
	// set has structural problems.
	Position int `json:"position"`

	Status  StatusEntry `json:"status"`
	Drifted bool        `json:"drifted,omitempty"`
}

// Explain describes the migration id found under root. It returns an
// error wrapping ErrMigrationNotFound when no such migration exists.
// Structural problems elsewhere in the set do not prevent an explanation.
func (m *Manager) Explain(ctx context.Context, root, id string) (*Explanation, error) {
	records, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Record, len(records))
	for _, r := range records {
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = r
		}
	}

	target, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMigrationNotFound, id)
	}

	ex := &Explanation{
		Record:       target,
		Dependencies: target.Dependencies,
		Requires:     requires(byID, target),
		Dependents:   []string{},
	}

	for _, r := range sortedRecords(records) {
		if r.DependsOn(id) {
			ex.Dependents = append(ex.Dependents, r.ID)
		}
	}

	if graph, err := BuildGraph(records); err == nil {
		ex.Position = graph.Position(id) + 1
	}

	entries, err := m.statusOrPending(ctx, []*Record{target})
	if err != nil {
		return nil, err
	}
	ex.Status = entries[0]
	ex.Drifted = Drifted(target, entries[0])

	return ex, nil
}

// requires walks dependencies breadth-first. Unknown ids are listed but not
// expanded; cycles terminate on the visited set.
func requires(byID map[string]*Record, target *Record) []string {
	seen := map[string]bool{target.ID: true}
	out := []string{}
	queue := append([]string(nil), target.Dependencies...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if r, ok := byID[id]; ok {
			queue = append(queue, r.Dependencies...)
		}
	}
	return out
}

func (m *Manager) statusOrPending(ctx context.Context, records []*Record) ([]StatusEntry, error) {
	if m.driver == nil {
		entries := make([]StatusEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, StatusEntry{ID: r.ID, Status: StatusPending})
		}
		return entries, nil
	}
	return m.tracker.Status(ctx, records)
}

// sortedRecords returns a copy of records ordered by (module, sequence, id).
func sortedRecords(records []*Record) []*Record {
	out := append([]*Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		h := recordHeap(out)
		return h.Less(i, j)
	})
	return out
}
