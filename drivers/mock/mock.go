// Package mock provides an in-memory tracking driver for testing hive
// without a real database.
//
// Rows live in a map guarded by a mutex and are lost when the process
// exits. Error injection helpers let tests exercise the tracker's fault
// handling.
package mock

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/honeynil/hive"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("mock driver: closed")

// Driver is an in-memory implementation of hive.Driver for testing.
type Driver struct {
	mu          sync.Mutex
	rows        map[string]hive.StatusEntry
	initialized bool
	closed      bool
	initErr     error
	loadErr     error
	saveErr     error
	saves       int
}

// New creates an empty mock driver.
func New() *Driver {
	return &Driver{
		rows: make(map[string]hive.StatusEntry),
	}
}

// SetInitError makes Init return the specified error.
func (d *Driver) SetInitError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initErr = err
}

// SetLoadError makes Load return the specified error.
func (d *Driver) SetLoadError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadErr = err
}

// SetSaveError makes Save return the specified error.
func (d *Driver) SetSaveError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saveErr = err
}

// Init marks the driver initialized.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initErr != nil {
		return d.initErr
	}
	if d.closed {
		return ErrClosed
	}

	d.initialized = true
	return nil
}

// Load returns every stored row, sorted by id.
func (d *Driver) Load(ctx context.Context) ([]hive.StatusEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loadErr != nil {
		return nil, d.loadErr
	}
	if d.closed {
		return nil, ErrClosed
	}

	result := make([]hive.StatusEntry, 0, len(d.rows))
	for _, e := range d.rows {
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save upserts the row for entry.ID.
func (d *Driver) Save(ctx context.Context, entry hive.StatusEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.saveErr != nil {
		return d.saveErr
	}
	if d.closed {
		return ErrClosed
	}

	d.rows[entry.ID] = copyEntry(entry)
	d.saves++
	return nil
}

// Close marks the driver closed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Seed stores entries directly, bypassing error injection (for testing).
func (d *Driver) Seed(entries ...hive.StatusEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		d.rows[e.ID] = copyEntry(e)
	}
}

// Get returns the stored row for id (for testing).
func (d *Driver) Get(id string) (hive.StatusEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rows[id]
	return copyEntry(e), ok
}

// Count returns the number of stored rows (for testing).
func (d *Driver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

// Saves returns how many Save calls succeeded (for testing).
func (d *Driver) Saves() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}

// IsInitialized reports whether Init has succeeded (for testing).
func (d *Driver) IsInitialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// IsClosed reports whether Close was called (for testing).
func (d *Driver) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Reset clears all rows and injected errors (for testing).
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = make(map[string]hive.StatusEntry)
	d.initErr, d.loadErr, d.saveErr = nil, nil, nil
	d.saves = 0
	d.closed = false
}

// copyEntry detaches AppliedAt so callers cannot mutate stored rows.
func copyEntry(e hive.StatusEntry) hive.StatusEntry {
	if e.AppliedAt != nil {
		t := *e.AppliedAt
		e.AppliedAt = &t
	}
	return e
}
