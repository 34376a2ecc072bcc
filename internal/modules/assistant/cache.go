package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CacheStore is the key-value backend behind Cache. Satisfied by
// *pkgredis.Client; tests substitute an in-memory map.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DelByPrefix(ctx context.Context, prefix string) (int, error)
}

// CacheEntry is the persisted shape of a cached execution result. Buffered
// entries mirror the JSON response body; streamed entries carry the fully
// accumulated text plus the metadata needed to replay the stream.
type CacheEntry struct {
	Success   bool             `json:"success,omitempty"`
	Content   string           `json:"content"`
	ModuleID  int64            `json:"module_id"`
	Streaming bool             `json:"streaming"`
	Format    string           `json:"format,omitempty"`
	Metadata  *streamCacheMeta `json:"metadata,omitempty"`
}

type streamCacheMeta struct {
	MarkdownEnabled bool   `json:"markdown_enabled"`
	OutputFormat    string `json:"output_format"`
}

// Cache stores execution results in Redis, keyed per module by a hash of the
// request shape. Cache failures are deliberately non-fatal: a read error is
// a miss, a write error is logged and dropped.
type Cache struct {
	store CacheStore
	log   *zap.Logger
}

func NewCache(store CacheStore, log *zap.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// Key derives the deterministic cache key for a request shape. The streaming
// bit participates because buffered and streamed entries are stored in
// different representations and must never cross-match.
func (c *Cache) Key(moduleID int64, query string, contextID *int64, streaming bool) string {
	input := query
	if contextID != nil && *contextID > 0 {
		input += fmt.Sprintf("_%d", *contextID)
	}
	if streaming {
		input += "_s1"
	} else {
		input += "_s0"
	}
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s%x", c.modulePrefix(moduleID), hash)
}

func (c *Cache) modulePrefix(moduleID int64) string {
	return fmt.Sprintf("cache:%d:", moduleID)
}

// Get looks up an entry. (nil, false) means miss; errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, key string) (*CacheEntry, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if raw == "" {
		return nil, false
	}
	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// Set stores an entry with the given TTL in seconds. A TTL of zero or less
// disables caching and the call is a no-op returning false.
func (c *Cache) Set(ctx context.Context, key string, entry *CacheEntry, ttlSeconds int) bool {
	if c == nil || c.store == nil || ttlSeconds <= 0 {
		return false
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn("cache entry marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := c.store.Set(ctx, key, raw, time.Duration(ttlSeconds)*time.Second); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Clear removes every entry scoped to a module. Called whenever the module's
// configuration changes.
func (c *Cache) Clear(ctx context.Context, moduleID int64) int {
	if c == nil || c.store == nil {
		return 0
	}
	deleted, err := c.store.DelByPrefix(ctx, c.modulePrefix(moduleID))
	if err != nil {
		c.log.Warn("cache clear failed", zap.Int64("module_id", moduleID), zap.Error(err))
	}
	return deleted
}
