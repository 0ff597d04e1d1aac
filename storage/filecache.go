package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"atlas_scraper/models"
)

// FileCache stores analysis results as one JSON file per (platform, URL)
// pair. Cache writes are best-effort: a failed write is logged and the result
// is still returned to the caller.
type FileCache struct {
	dir string
	log *logrus.Logger

	// now is swapped in tests
	now func() time.Time
}

type cacheMeta struct {
	URL       string          `json:"url"`
	Platform  models.Platform `json:"platform"`
	CachedAt  time.Time       `json:"cachedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type cacheEnvelope struct {
	Meta cacheMeta       `json:"meta"`
	Data models.Analysis `json:"data"`
}

func NewFileCache(dir string, log *logrus.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, log: log, now: time.Now}, nil
}

// Key derives the cache filename for a listing. Identical inputs always map
// to the same file.
func (c *FileCache) Key(platform models.Platform, url string) string {
	sum := sha256.Sum256([]byte(string(platform) + ":" + url))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) path(platform models.Platform, url string) string {
	return filepath.Join(c.dir, c.Key(platform, url)+".json")
}

// Get returns the cached analysis for the listing, or ok=false on miss.
// Expired and unreadable entries are both misses; corrupt files are removed.
func (c *FileCache) Get(platform models.Platform, url string) (*models.Analysis, bool) {
	path := c.path(platform, url)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.WithError(err).WithField("path", path).Warn("removing corrupt cache entry")
		os.Remove(path)
		return nil, false
	}

	if c.now().After(env.Meta.ExpiresAt) {
		return nil, false
	}

	return &env.Data, true
}

// Put stores an analysis with the given TTL. Errors are logged, not returned.
func (c *FileCache) Put(platform models.Platform, url string, analysis *models.Analysis, ttl time.Duration) {
	now := c.now()
	env := cacheEnvelope{
		Meta: cacheMeta{
			URL:       url,
			Platform:  platform,
			CachedAt:  now,
			ExpiresAt: now.Add(ttl),
		},
		Data: *analysis,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		c.log.WithError(err).Warn("cache marshal failed")
		return
	}

	if err := os.WriteFile(c.path(platform, url), data, 0644); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
}

// Purge removes expired entries and returns how many were deleted.
func (c *FileCache) Purge() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.WithError(err).Warn("cache purge failed")
		return 0
	}

	removed := 0
	now := c.now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var env cacheEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			os.Remove(path)
			removed++
			continue
		}

		if now.After(env.Meta.ExpiresAt) {
			os.Remove(path)
			removed++
		}
	}

	return removed
}
