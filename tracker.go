package hive

import (
	"context"
	"fmt"
	"time"
)

// Tracker persists and reports per-migration status through a Driver.
//
// The Driver is the only mutable state; a Tracker itself holds
// configuration only. Results are upserts keyed by migration id, so
// concurrent Record calls for different ids never interfere and the last
// write for a given id wins.
type Tracker struct {
	driver Driver
	logger Logger
	now    func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger used for warnings about dropped results.
func WithTrackerLogger(l Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = loggerOrDefault(l)
	}
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a Tracker backed by driver.
func NewTracker(driver Driver, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		driver: driver,
		logger: defaultLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init creates the tracking storage if it does not exist. Safe to call
// repeatedly.
func (t *Tracker) Init(ctx context.Context) error {
	if t.driver == nil {
		return ErrNoDriver
	}
	if err := t.driver.Init(ctx); err != nil {
		return fmt.Errorf("init tracking storage: %w", err)
	}
	return nil
}

// Status returns one entry per record, in input order. Records with no
// stored row are reported as pending; nothing is written for them.
func (t *Tracker) Status(ctx context.Context, records []*Record) ([]StatusEntry, error) {
	stored, err := t.index(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(records))
	for _, r := range records {
		if e, ok := stored[r.ID]; ok {
			entries = append(entries, e)
			continue
		}
		entries = append(entries, StatusEntry{ID: r.ID, Status: StatusPending})
	}
	return entries, nil
}

// Entries returns every stored row, including rows whose migration file no
// longer exists.
func (t *Tracker) Entries(ctx context.Context) ([]StatusEntry, error) {
	if t.driver == nil {
		return nil, ErrNoDriver
	}
	entries, err := t.driver.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracking rows: %w", err)
	}
	return entries, nil
}

// Record stores the outcome of one apply attempt.
//
// Record never fails the caller. A malformed result (empty id, negative
// execution time) is logged and dropped. A storage failure is logged and
// the row is left as it was.
func (t *Tracker) Record(ctx context.Context, result Result) {
	if err := result.validate(); err != nil {
		t.logger.WarnContext(ctx, "dropping migration result", "id", result.ID, "error", err)
		return
	}
	if t.driver == nil {
		t.logger.WarnContext(ctx, "dropping migration result", "id", result.ID, "error", ErrNoDriver)
		return
	}

	appliedAt := result.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = t.now()
	}
	appliedAt = appliedAt.UTC()

	entry := StatusEntry{
		ID:              result.ID,
		Status:          result.status(),
		AppliedAt:       &appliedAt,
		ExecutionTimeMs: result.ExecutionTime.Milliseconds(),
		Checksum:        result.Checksum,
	}

	if err := t.driver.Save(ctx, entry); err != nil {
		t.logger.WarnContext(ctx, "failed to record migration result",
			"id", result.ID,
			"status", entry.Status.String(),
			"error", err,
		)
		return
	}

	if entry.Status == StatusFailed {
		t.logger.WarnContext(ctx, "migration failed",
			"id", result.ID,
			"duration_ms", entry.ExecutionTimeMs,
			"error", result.Error,
		)
		return
	}
	t.logger.InfoContext(ctx, "migration result recorded",
		"id", result.ID,
		"status", entry.Status.String(),
		"duration_ms", entry.ExecutionTimeMs,
	)
}

// index loads stored rows keyed by id.
func (t *Tracker) index(ctx context.Context) (map[string]StatusEntry, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]StatusEntry, len(entries))
	for _, e := range entries {
		stored[e.ID] = e
	}
	return stored, nil
}
