// Package redis provides a Redis tracking driver for hive.
//
// All tracking rows live in a single hash. Each field is a migration id and
// each value is the JSON-encoded row, so Save is a single HSET and Load a
// single HGETALL.
//
// # Basic Usage
//
//	import (
//	    goredis "github.com/redis/go-redis/v9"
//	    "github.com/honeynil/hive"
//	    "github.com/honeynil/hive/drivers/redis"
//	)
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	m := hive.New(redis.New(client))
//
// Any go-redis client works, including cluster and sentinel clients built
// with goredis.NewUniversalClient.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/honeynil/hive"
)

// DefaultKey is the hash key used when none is given.
const DefaultKey = "hive_migrations"

// Driver implements the hive.Driver interface for Redis.
type Driver struct {
	client goredis.UniversalClient
	key    string
	now    func() time.Time
}

// row is the stored JSON value for one migration id.
type row struct {
	hive.StatusEntry
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a new Redis driver using the default hash key.
func New(client goredis.UniversalClient) *Driver {
	return NewWithKey(client, DefaultKey)
}

// NewWithKey creates a new Redis driver that stores rows under key.
func NewWithKey(client goredis.UniversalClient, key string) *Driver {
	return &Driver{
		client: client,
		key:    key,
		now:    time.Now,
	}
}

// Open parses a redis:// or rediss:// URL and creates a driver for it.
func Open(url string) (*Driver, error) {
	return OpenWithKey(url, DefaultKey)
}

// OpenWithKey is like Open but stores rows under key.
func OpenWithKey(url, key string) (*Driver, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewWithKey(goredis.NewClient(opts), key), nil
}

// Key returns the hash key holding the tracking rows.
func (d *Driver) Key() string {
	return d.key
}

// Init checks that the server is reachable. Redis needs no schema.
func (d *Driver) Init(ctx context.Context) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Load returns every tracking row, sorted by id.
func (d *Driver) Load(ctx context.Context) ([]hive.StatusEntry, error) {
	fields, err := d.client.HGetAll(ctx, d.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load tracking rows from %s: %w", d.key, err)
	}

	entries := make([]hive.StatusEntry, 0, len(fields))
	for id, data := range fields {
		e, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Save replaces the row for entry.ID.
func (d *Driver) Save(ctx context.Context, entry hive.StatusEntry) error {
	data, err := encode(entry, d.now())
	if err != nil {
		return err
	}
	if err := d.client.HSet(ctx, d.key, entry.ID, data).Err(); err != nil {
		return fmt.Errorf("save tracking row %s: %w", entry.ID, err)
	}
	return nil
}

// Close closes the client.
func (d *Driver) Close() error {
	return d.client.Close()
}

// SetClock overrides the time source for updated_at (for testing).
func (d *Driver) SetClock(now func() time.Time) {
	d.now = now
}

func encode(entry hive.StatusEntry, now time.Time) ([]byte, error) {
	if entry.AppliedAt != nil {
		at := entry.AppliedAt.UTC()
		entry.AppliedAt = &at
	}
	data, err := json.Marshal(row{StatusEntry: entry, UpdatedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode tracking row %s: %w", entry.ID, err)
	}
	return data, nil
}

// decode parses a stored value. The hash field is authoritative for the id.
func decode(id, data string) (hive.StatusEntry, error) {
	var r row
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return hive.StatusEntry{}, fmt.Errorf("row %s: %w", id, err)
	}
	r.ID = id
	return r.StatusEntry, nil
}
