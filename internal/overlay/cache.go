package overlay

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fragment is the rendered overlay of one metric, shown for Duration.
// Image is shared between fragments with the same key and must not be modified.
type Fragment struct {
	Metric   Metric
	Key      Key
	Image    *image.RGBA
	Duration time.Duration
}

// Renderer draws the overlay image of a metric for a quantized key
type Renderer interface {
	Render(ctx context.Context, m Metric, k Key) (*image.RGBA, error)
}

// RendererFunc adapts a function to the Renderer interface
type RendererFunc func(ctx context.Context, m Metric, k Key) (*image.RGBA, error)

func (f RendererFunc) Render(ctx context.Context, m Metric, k Key) (*image.RGBA, error) {
	return f(ctx, m, k)
}

// Stats describes cache usage
type Stats struct {
	Hits    int64
	Misses  int64
	Renders int64
	Entries int
}

// HitRatio returns the share of lookups served without rendering
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheKey struct {
	metric Metric
	key    Key
}

func (k cacheKey) String() string {
	return string(k.metric) + "/" + string(k.key)
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *slog.Logger) func(c *Cache) {
	return func(c *Cache) {
		c.logger = logger.With(slog.String("component", "overlay-cache"))
	}
}

// Cache maps (metric, quantized key) to rendered images. Entries are never evicted.
// It is safe for concurrent use and renders every key at most once.
type Cache struct {
	renderer Renderer

	mu      sync.RWMutex
	entries map[cacheKey]*image.RGBA
	group   singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	renders atomic.Int64

	logger *slog.Logger
}

// NewCache creates an empty cache with a discard logger
func NewCache(r Renderer, options ...func(c *Cache)) *Cache {
	c := Cache{
		renderer: r,
		entries:  make(map[cacheKey]*image.RGBA),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Get returns the fragment for the value, rendering it on the first request of its key.
// The duration is stamped on the returned fragment and is not part of the key.
func (c *Cache) Get(ctx context.Context, m Metric, value *float64, duration time.Duration) (Fragment, error) {
	ck := cacheKey{metric: m, key: Quantize(m, value)}

	if img, ok := c.lookup(ck); ok {
		c.hits.Add(1)
		return Fragment{Metric: m, Key: ck.key, Image: img, Duration: duration}, nil
	}

	c.misses.Add(1)

	v, err, _ := c.group.Do(ck.String(), func() (any, error) {
		// another caller may have finished rendering since the lookup above
		if img, ok := c.lookup(ck); ok {
			return img, nil
		}

		img, err := c.renderer.Render(ctx, ck.metric, ck.key)
		if err != nil {
			return nil, fmt.Errorf("rendering %s overlay for '%s': %w", ck.metric, ck.key, err)
		}
		c.renders.Add(1)

		c.mu.Lock()
		c.entries[ck] = img
		c.mu.Unlock()

		c.logger.Debug("overlay rendered", slog.String("metric", string(ck.metric)), slog.String("key", string(ck.key)))

		return img, nil
	})
	if err != nil {
		return Fragment{}, err
	}

	return Fragment{Metric: m, Key: ck.key, Image: v.(*image.RGBA), Duration: duration}, nil
}

func (c *Cache) lookup(ck cacheKey) (*image.RGBA, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, ok := c.entries[ck]
	return img, ok
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Renders: c.renders.Load(),
		Entries: entries,
	}
}
