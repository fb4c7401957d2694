package hive

import (
	"github.com/bluele/gcache"
)

// RecordCache memoises parsed records across discovery passes.
//
// Files are still read on every pass; the cache skips parsing only.
// Entries are keyed by the file's path under its modules root and the
// checksum of the bytes read, so an edited file is always reparsed and two
// trees never share an entry unless their files are identical. Records are
// copied in and out. The cache is owned by the caller and passed to a
// Discoverer explicitly; there is no package-level cache.
type RecordCache struct {
	c gcache.Cache
}

// NewRecordCache creates an LRU cache holding up to size records.
func NewRecordCache(size int) *RecordCache {
	if size <= 0 {
		size = 1024
	}
	return &RecordCache{c: gcache.New(size).LRU().Build()}
}

func cacheKey(path, sum string) string {
	return path + "|" + sum
}

func (rc *RecordCache) get(key string) (*Record, bool) {
	if rc == nil {
		return nil, false
	}
	v, err := rc.c.Get(key)
	if err != nil {
		return nil, false
	}
	r, ok := v.(*Record)
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

func (rc *RecordCache) put(key string, r *Record) {
	if rc == nil {
		return
	}
	_ = rc.c.Set(key, r.clone())
}

// Len returns the number of cached records.
func (rc *RecordCache) Len() int {
	if rc == nil {
		return 0
	}
	return rc.c.Len(false)
}

// Purge drops every cached record.
func (rc *RecordCache) Purge() {
	if rc != nil {
		rc.c.Purge()
	}
}
