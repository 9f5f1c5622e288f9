package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEngines bounds the number of live engines per process.
const DefaultMaxEngines = 10000

// EngineFactory builds the engine for a browser session id.
type EngineFactory func(browserID string) (*Engine, error)

// Registry keeps one Engine per browser session. The least recently used
// engine is evicted, and stopped, once the registry is full.
type Registry struct {
	mu      sync.Mutex
	engines *lru.Cache[string, *Engine]
	factory EngineFactory
	logger  *slog.Logger
}

// NewRegistry constructs a Registry holding at most size engines.
func NewRegistry(size int, factory EngineFactory, logger *slog.Logger) (*Registry, error) {
	if factory == nil {
		return nil, errors.New("shared: engine factory required")
	}
	if size <= 0 {
		size = DefaultMaxEngines
	}
	if logger == nil {
		logger = slog.Default()
	}
	engines, err := lru.NewWithEvict(size, func(id string, engine *Engine) {
		engine.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("shared: create engine registry: %w", err)
	}
	return &Registry{engines: engines, factory: factory, logger: logger}, nil
}

// Get returns the engine for browserID, creating and starting it on first
// use.
func (r *Registry) Get(ctx context.Context, browserID string) (*Engine, error) {
	if browserID == "" {
		return nil, ErrNoEngine
	}
	r.mu.Lock()
	engine, ok := r.engines.Get(browserID)
	if !ok {
		var err error
		engine, err = r.factory(browserID)
		if err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("shared: build engine: %w", err)
		}
		r.engines.Add(browserID, engine)
		r.logger.Debug("engine created", slog.Int("engines", r.engines.Len()))
	}
	r.mu.Unlock()

	engine.Start(ctx)
	return engine, nil
}

// Lookup returns the engine for browserID without creating one.
func (r *Registry) Lookup(browserID string) (*Engine, bool) {
	if browserID == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engines.Get(browserID)
}

// Len reports the number of live engines.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.engines.Len()
}

// Close stops every engine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines.Purge()
}
