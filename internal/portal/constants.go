package portal

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/observability"
)

// Constants holds the portal's localized lookup tables (governorates,
// case statuses, relations).
type Constants map[string]any

// ConstantsCache caches the lookup tables per locale. Loading is
// idempotent: repeated EnsureLoaded calls for the cached locale are free,
// a locale switch refetches, and concurrent loads for the same locale
// collapse into one request.
type ConstantsCache struct {
	api     *auth.Client
	index   pathResolver
	metrics *observability.Metrics

	group singleflight.Group

	mu           sync.Mutex
	data         Constants
	loadedLocale string
	lastErr      error
}

type pathResolver interface {
	PathFor(operationID string, params map[string]string) (string, error)
}

// NewConstantsCache creates an empty cache.
func NewConstantsCache(api *auth.Client, index pathResolver, metrics *observability.Metrics) *ConstantsCache {
	return &ConstantsCache{api: api, index: index, metrics: metrics}
}

// EnsureLoaded returns the constants for locale, fetching them only when
// the cache holds nothing or holds another locale.
func (c *ConstantsCache) EnsureLoaded(ctx context.Context, locale string) (Constants, error) {
	c.mu.Lock()
	if c.data != nil && c.loadedLocale == locale {
		data := c.data
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.ConstantsCacheHitsTotal.Inc()
		}
		return data, nil
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ConstantsCacheMissesTotal.Inc()
	}

	v, err, _ := c.group.Do(locale, func() (any, error) {
		return c.fetch(ctx, locale)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		return nil, err
	}
	c.data = v.(Constants)
	c.loadedLocale = locale
	return c.data, nil
}

func (c *ConstantsCache) fetch(ctx context.Context, locale string) (Constants, error) {
	path, err := c.index.PathFor("getConstants", nil)
	if err != nil {
		return nil, err
	}

	var out Constants
	err = c.api.Get(ctx, path, &out, auth.CallOptions{Lang: locale, Operation: "getConstants"})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Loaded returns the cached constants and their locale without fetching.
func (c *ConstantsCache) Loaded() (Constants, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, c.loadedLocale, c.data != nil
}

// LastError returns the most recent load failure, if any.
func (c *ConstantsCache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Invalidate drops the cached tables so the next EnsureLoaded refetches.
func (c *ConstantsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.loadedLocale = ""
	c.lastErr = nil
}
