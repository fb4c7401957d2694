package hive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/honeynil/hive/internal/checksum"
)

// MigrationsDir is the per-module directory holding migration files.
const MigrationsDir = "migrations"

// Discoverer walks a modules tree and parses every migration file in it.
//
// The expected layout is:
//
//	{root}/{module}/migrations/{NNN}_{description}.sql
//
// A Discoverer holds configuration only. It keeps no state between calls
// and is safe for concurrent use (the optional Cache is itself safe).
type Discoverer struct {
	// Extension selects migration files. Default: ".sql".
	Extension string

	// Cache, when set, skips reparsing unchanged files.
	Cache *RecordCache

	// Logger receives start/end lines. Default: no-op.
	Logger Logger
}

// Discover walks the modules tree at root using a zero-value Discoverer.
func Discover(ctx context.Context, root string) ([]*Record, error) {
	return (&Discoverer{}).Discover(ctx, root)
}

// Discover walks the modules tree rooted at the directory root.
//
// A missing root yields an empty list, not an error. The returned order is
// unspecified; use Graph.Order for application order.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]*Record, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.logger().InfoContext(ctx, "modules directory not found, nothing to discover", "root", root)
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("stat modules directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("modules root %s is not a directory", root)
	}

	label := root
	if abs, err := filepath.Abs(root); err == nil {
		label = abs
	}
	return d.discover(ctx, os.DirFS(root), label)
}

// DiscoverFS walks a modules tree whose root is the root of fsys.
func (d *Discoverer) DiscoverFS(ctx context.Context, fsys fs.FS) ([]*Record, error) {
	return d.discover(ctx, fsys, ".")
}

func (d *Discoverer) discover(ctx context.Context, fsys fs.FS, label string) ([]*Record, error) {
	logger := d.logger()
	logger.InfoContext(ctx, "discovering migrations", "root", label)

	modules, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("read modules directory %s: %w", label, err)
	}

	records := []*Record{}
	moduleCount := 0

	for _, entry := range modules {
		if !entry.IsDir() {
			continue
		}

		module := entry.Name()
		found, err := d.discoverModule(ctx, fsys, label, module)
		if err != nil {
			return nil, err
		}
		if found == nil {
			continue
		}

		moduleCount++
		records = append(records, found...)
	}

	logger.InfoContext(ctx, "discovered migrations",
		"root", label,
		"modules", moduleCount,
		"migrations", len(records),
	)

	return records, nil
}

// discoverModule returns nil (not an empty slice) when the module has no
// migrations directory.
func (d *Discoverer) discoverModule(ctx context.Context, fsys fs.FS, label, module string) ([]*Record, error) {
	dir := path.Join(module, MigrationsDir)

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations directory %s: %w", dir, err)
	}

	ext := d.extension()
	records := []*Record{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := d.load(fsys, label, module, path.Join(dir, entry.Name()), entry)
		if err != nil {
			return nil, fmt.Errorf("discover module %s: %w", module, err)
		}
		records = append(records, r)
	}

	return records, nil
}

func (d *Discoverer) load(fsys fs.FS, label, module, name string, entry fs.DirEntry) (*Record, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &ParseError{Module: module, Filename: entry.Name(), Reason: "unreadable content", Cause: err}
	}

	var key string
	if d.Cache != nil {
		key = cacheKey(path.Join(filepath.ToSlash(label), name), checksum.Calculate(content))
		if r, ok := d.Cache.get(key); ok {
			return r, nil
		}
	}

	r, err := ParseRecord(module, entry.Name(), content)
	if err != nil {
		return nil, err
	}

	if key != "" {
		d.Cache.put(key, r)
	}
	return r, nil
}

func (d *Discoverer) extension() string {
	if d.Extension == "" {
		return DefaultExtension
	}
	if !strings.HasPrefix(d.Extension, ".") {
		return "." + d.Extension
	}
	return d.Extension
}

func (d *Discoverer) logger() Logger {
	return loggerOrDefault(d.Logger)
}
