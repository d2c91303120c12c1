package scraper

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic cache keying
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

// Cache stores scrape results keyed by article URL. Failed scrapes are
// stored too, so unreachable hosts are not retried. Implementations
// must be safe for concurrent use; last writer wins on races.
type Cache interface {
	Get(url string) (domain.ScrapeResult, bool)
	Set(url string, result domain.ScrapeResult)
}

// cacheKey hashes the URL so backends never deal with raw URLs as
// keys.
func cacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// MemoryCache keeps results for the process lifetime.
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]domain.ScrapeResult
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{results: make(map[string]domain.ScrapeResult)}
}

func (c *MemoryCache) Get(url string) (domain.ScrapeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[cacheKey(url)]
	return res, ok
}

func (c *MemoryCache) Set(url string, result domain.ScrapeResult) {
	c.mu.Lock()
	c.results[cacheKey(url)] = result
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

var boltBucket = []byte("scrape_results")

// BoltCache persists results in a bbolt file so restarts keep the
// scrape history.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache opens (or creates) the cache database at path.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(url string) (domain.ScrapeResult, bool) {
	var (
		res domain.ScrapeResult
		ok  bool
	)

	_ = c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(cacheKey(url)))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil
		}
		ok = true
		return nil
	})

	return res, ok
}

func (c *BoltCache) Set(url string, result domain.ScrapeResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}

	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(cacheKey(url)), raw)
	})
}

// Close releases the underlying database file.
func (c *BoltCache) Close() error { return c.db.Close() }
