package rulestore

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const exportCacheSize = 64

type exportKey struct {
	uid     uint32
	version uint64
	limit   int
}

type exportEntry struct {
	data      []byte
	truncated bool
}

// ExportCache memoizes formatted exports. Entries are keyed on the store
// version, so a mutation implicitly invalidates every cached export
// without any bookkeeping on the write path.
type ExportCache struct {
	store *Store
	cache *lru.Cache[exportKey, exportEntry]
}

// NewExportCache creates an export cache over store.
func NewExportCache(store *Store) (*ExportCache, error) {
	cache, err := lru.New[exportKey, exportEntry](exportCacheSize)
	if err != nil {
		return nil, err
	}
	return &ExportCache{store: store, cache: cache}, nil
}

// Export returns the formatted export for uid, serving repeated reads of
// an unchanged store from the cache.
func (c *ExportCache) Export(uid uint32, limit int) ([]byte, bool) {
	version := c.store.Version()
	key := exportKey{uid: uid, version: version, limit: limit}
	if entry, ok := c.cache.Get(key); ok {
		return entry.data, entry.truncated
	}

	data, truncated := Export(c.store, uid, limit)

	// Only cache if no mutation raced the export, otherwise the entry
	// would pin pre-mutation bytes under a post-mutation version.
	if c.store.Version() == version {
		c.cache.Add(key, exportEntry{data: data, truncated: truncated})
	}
	return data, truncated
}
