// Package menu resolves the server-defined menu taxonomy into the site
// navigation and keeps the result in a time-boxed cache.
package menu

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
)

const navigationKey = "navigation"

// Fetcher loads the raw menu taxonomy.
type Fetcher interface {
	MenuStructure(ctx context.Context) ([]MenuType, error)
}

// Resolver serves the site navigation from cache, fetching at most once per
// cache slot at a time.
type Resolver struct {
	fetcher Fetcher
	cache   *Cache
	metrics *Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithMetrics attaches cache metrics.
func WithMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a Resolver around fetcher and cache.
func NewResolver(fetcher Fetcher, cache *Cache, opts ...ResolverOption) *Resolver {
	if cache == nil {
		cache = NewCache(DefaultTTL, nil)
	}
	r := &Resolver{fetcher: fetcher, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetMenuStructure returns the navigation list. It never fails: fetch errors
// and unusable taxonomies resolve to DefaultNavigation.
func (r *Resolver) GetMenuStructure(ctx context.Context) []NavigationItem {
	if items, ok := r.cache.Get(navigationKey); ok {
		r.metrics.hit()
		return items
	}
	r.metrics.miss()

	generation := r.cache.Generation()
	// One flight per generation: callers after a bust start a fresh fetch
	// instead of joining a flight whose result will be discarded.
	key := navigationKey + ":" + strconv.FormatUint(generation, 10)
	flight := context.WithoutCancel(ctx)
	resultCh := r.group.DoChan(key, func() (interface{}, error) {
		if items, ok := r.cache.Get(navigationKey); ok {
			return items, nil
		}
		return r.load(flight, generation), nil
	})
	select {
	case <-ctx.Done():
		return DefaultNavigation()
	case res := <-resultCh:
		items, _ := res.Val.([]NavigationItem)
		return cloneNavigation(items)
	}
}

// ClearCache drops the cached navigation.
func (r *Resolver) ClearCache() {
	r.cache.Bust()
}

// RefreshMenu clears the cache and resolves the navigation again.
func (r *Resolver) RefreshMenu(ctx context.Context) []NavigationItem {
	r.ClearCache()
	return r.GetMenuStructure(ctx)
}

func (r *Resolver) load(ctx context.Context, generation uint64) []NavigationItem {
	start := r.cache.clock.Now()
	types, err := r.fetcher.MenuStructure(ctx)
	r.metrics.observeFetch(r.cache.clock.Since(start))

	var items []NavigationItem
	switch {
	case err != nil:
		r.logger.Warn("menu fetch failed, serving default navigation", slog.Any("error", err))
		r.metrics.fallback("fetch_error")
		items = DefaultNavigation()
	default:
		var ok bool
		items, ok = Transform(types)
		if !ok {
			r.logger.Warn("no usable menu type, serving default navigation", slog.Int("types", len(types)))
			r.metrics.fallback("no_menu_type")
			items = DefaultNavigation()
		}
	}
	r.cache.Set(navigationKey, items, generation)
	return items
}
