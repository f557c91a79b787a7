// Package cache provides a file-based cache for effort ratings, keyed by
// BLAKE3 content hashes so re-running an exercise with unchanged history
// skips model calls.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/collabscope/collabscope/pkg/models"
)

// RatingCache stores effort ratings on disk.
type RatingCache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// entry is one cached rating with its write time for TTL checks.
type entry struct {
	Timestamp time.Time           `json:"timestamp"`
	Rating    models.EffortRating `json:"rating"`
}

// New creates a rating cache rooted at dir. A disabled cache is a no-op.
func New(dir string, ttlHours int, enabled bool) (*RatingCache, error) {
	if !enabled {
		return &RatingCache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &RatingCache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// HashKey computes the BLAKE3 content hash of a cache key.
func HashKey(key string) string {
	hash := blake3.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached rating if present and not expired.
func (c *RatingCache) Get(key string) (models.EffortRating, bool) {
	if !c.enabled {
		return models.EffortRating{}, false
	}

	data, err := os.ReadFile(c.keyPath(key))
	if err != nil {
		return models.EffortRating{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.EffortRating{}, false
	}
	if c.ttl > 0 && time.Since(e.Timestamp) > c.ttl {
		os.Remove(c.keyPath(key))
		return models.EffortRating{}, false
	}
	return e.Rating, true
}

// Put stores a rating. Write failures are swallowed; the cache is an
// optimization, never a correctness dependency.
func (c *RatingCache) Put(key string, rating models.EffortRating) {
	if !c.enabled {
		return
	}
	e := entry{Timestamp: time.Now(), Rating: rating}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = os.WriteFile(c.keyPath(key), data, 0o600)
}

// Clear removes all cache entries.
func (c *RatingCache) Clear() error {
	if !c.enabled {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if !ent.IsDir() {
			os.Remove(filepath.Join(c.dir, ent.Name()))
		}
	}
	return nil
}

func (c *RatingCache) keyPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}
