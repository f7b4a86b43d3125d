package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/chromakey"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/framecache"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SourceFrame is a decoded frame as extracted from the video. Its buffer is
// never mutated; keying works on a clone.
type SourceFrame struct {
	ID     entity.FrameID
	Buffer *entity.PixelBuffer
}

// FrameKeyer serves keyed frames for the current settings, computing each
// (frame, settings) pair once. Changing settings discards every cached frame.
type FrameKeyer struct {
	cache       *framecache.Cache
	parallelism int
	logger      *zap.Logger

	mu       sync.RWMutex
	settings entity.ChromaKeySettings
	fp       entity.SettingsFingerprint
}

func NewFrameKeyer(parallelism int, logger *zap.Logger) *FrameKeyer {
	return &FrameKeyer{
		cache:       framecache.New(),
		parallelism: max(1, parallelism),
		logger:      logger,
	}
}

func (k *FrameKeyer) SetSettings(s entity.ChromaKeySettings) {
	fp := s.Fingerprint()

	k.mu.Lock()
	k.settings = s
	k.fp = fp
	k.mu.Unlock()

	if k.cache.Sync(fp) {
		metrics.FrameCacheInvalidations.Inc()
		k.logger.Debug("settings changed, processed frame cache cleared")
	}
}

func (k *FrameKeyer) current() (entity.ChromaKeySettings, entity.SettingsFingerprint) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.settings, k.fp
}

// Key returns the processed version of frame under the current settings.
// The returned buffer is shared with the cache and must not be modified.
func (k *FrameKeyer) Key(frame SourceFrame) (*entity.PixelBuffer, error) {
	settings, fp := k.current()
	if buf, ok := k.cache.Get(frame.ID, fp); ok {
		metrics.FrameCacheRequests.WithLabelValues("hit").Inc()
		return buf, nil
	}
	metrics.FrameCacheRequests.WithLabelValues("miss").Inc()

	start := time.Now()
	buf, err := chromakey.Apply(frame.Buffer.Clone(), settings)
	if err != nil {
		return nil, fmt.Errorf("key frame %s: %w", frame.ID, err)
	}
	metrics.FrameKeyingDuration.Observe(time.Since(start).Seconds())
	metrics.FramesKeyedTotal.Inc()

	k.cache.Put(frame.ID, fp, buf)
	return buf, nil
}

// KeyAll keys frames in parallel and returns the results in input order.
func (k *FrameKeyer) KeyAll(ctx context.Context, frames []SourceFrame) ([]*entity.PixelBuffer, error) {
	out := make([]*entity.PixelBuffer, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.parallelism)
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := k.Key(f)
			if err != nil {
				return err
			}
			out[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Drop removes frames that left the working set.
func (k *FrameKeyer) Drop(ids ...entity.FrameID) {
	for _, id := range ids {
		k.cache.Evict(id)
	}
}

func (k *FrameKeyer) Cached() int {
	return k.cache.Len()
}
