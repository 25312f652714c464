package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zfogg/sidechain/reader/pkg/logger"
	bolt "go.etcd.io/bbolt"
)

var bucketMedia = []byte("media")

// CacheStats summarizes the cache contents
type CacheStats struct {
	Entries int
	Bytes   int64
	Path    string
}

// Cache is a byte cache for downloaded media keyed by source URL. An empty
// path gives a memory-only cache.
type Cache struct {
	path string
	db   *bolt.DB

	mu  sync.RWMutex
	mem map[string][]byte
}

// OpenCache opens (or creates) the cache file at path
func OpenCache(path string) (*Cache, error) {
	if path == "" {
		return &Cache{mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open media cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMedia)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{path: path, db: db}, nil
}

// Close releases the cache file
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached bytes for src
func (c *Cache) Get(src string) ([]byte, bool) {
	if c.db == nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		data, ok := c.mem[src]
		return data, ok
	}

	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMedia).Get([]byte(src)); v != nil {
			// Bolt memory is only valid inside the transaction
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to read media cache", "src", src, "error", err)
		return nil, false
	}
	return data, data != nil
}

// Put stores data for src
func (c *Cache) Put(src string, data []byte) error {
	if c.db == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.mem[src] = append([]byte(nil), data...)
		return nil
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMedia).Put([]byte(src), data)
	})
}

// Stats counts entries and stored bytes
func (c *Cache) Stats() (CacheStats, error) {
	stats := CacheStats{Path: c.path}

	if c.db == nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for _, v := range c.mem {
			stats.Entries++
			stats.Bytes += int64(len(v))
		}
		return stats, nil
	}

	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMedia).ForEach(func(k, v []byte) error {
			stats.Entries++
			stats.Bytes += int64(len(v))
			return nil
		})
	})
	return stats, err
}

// Clear removes every entry and returns how many were dropped
func (c *Cache) Clear() (int, error) {
	if c.db == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		n := len(c.mem)
		c.mem = make(map[string][]byte)
		return n, nil
	}

	var n int
	err := c.db.Update(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketMedia).Stats().KeyN
		if err := tx.DeleteBucket(bucketMedia); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMedia)
		return err
	})
	return n, err
}
