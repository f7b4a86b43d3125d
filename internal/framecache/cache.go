// Package framecache memoizes keyed frames per (frame, settings fingerprint).
package framecache

import (
	"sync"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

type key struct {
	frame       entity.FrameID
	fingerprint entity.SettingsFingerprint
}

// Cache maps (frame, fingerprint) to the processed buffer. It is not bounded:
// entries live until the fingerprint changes or the frame is evicted from the
// working set. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[key]*entity.PixelBuffer
	current entity.SettingsFingerprint
	synced  bool
}

func New() *Cache {
	return &Cache{entries: make(map[key]*entity.PixelBuffer)}
}

func (c *Cache) Get(frame entity.FrameID, fp entity.SettingsFingerprint) (*entity.PixelBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.entries[key{frame, fp}]
	return buf, ok
}

func (c *Cache) Put(frame entity.FrameID, fp entity.SettingsFingerprint, buf *entity.PixelBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key{frame, fp}] = buf
}

// Sync records fp as the current fingerprint and discards every entry when it
// differs from the previous one. Reports whether the cache was invalidated.
func (c *Cache) Sync(fp entity.SettingsFingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synced && c.current == fp {
		return false
	}
	changed := c.synced
	c.current = fp
	c.synced = true
	if changed {
		clear(c.entries)
	}
	return changed
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Evict drops every entry of frame regardless of fingerprint.
func (c *Cache) Evict(frame entity.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.frame == frame {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
