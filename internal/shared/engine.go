package shared

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harmonia-web/portal/internal/auth"
	"github.com/harmonia-web/portal/internal/inactivity"
	"github.com/harmonia-web/portal/internal/rbac"
	"github.com/harmonia-web/portal/internal/storage"
)

// Engine is the per-browser session core: the session store plus the
// inactivity monitor that signs it out.
type Engine struct {
	ID      string
	Session *auth.Store
	Monitor *inactivity.Monitor

	logger    *slog.Logger
	bootOnce  sync.Once
	ready     chan struct{}
	closeOnce sync.Once
}

// EngineOptions configures NewEngine. Revalidate is how long a verified
// identity is trusted before permission checks ask the server again.
type EngineOptions struct {
	API        auth.API
	Storage    storage.Store
	Inactivity inactivity.Config
	Revalidate time.Duration
	Logger     *slog.Logger
}

// NewEngine wires a session store to an inactivity monitor: the monitor is
// armed while a user is signed in and its expiry logs the session out.
func NewEngine(id string, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("browser", shortID(id)))

	store := auth.NewStore(opts.API, opts.Storage, logger,
		auth.WithRevalidateInterval(opts.Revalidate), auth.WithClock(opts.Inactivity.Clock))
	monCfg := opts.Inactivity
	monCfg.Logger = logger
	monCfg.OnExpire = func() {
		store.Logout(context.Background())
	}
	monitor := inactivity.New(monCfg)

	store.OnChange(func(u *rbac.User) {
		if u != nil {
			monitor.Enable()
			return
		}
		monitor.Disable()
	})

	return &Engine{
		ID:      id,
		Session: store,
		Monitor: monitor,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Start boots the session store in the background exactly once. Requests
// served meanwhile see IsLoading and the optimistic cached identity.
func (e *Engine) Start(ctx context.Context) {
	e.bootOnce.Do(func() {
		go func() {
			defer close(e.ready)
			if err := e.Session.Boot(context.WithoutCancel(ctx)); err != nil {
				e.logger.Error("session boot failed", slog.Any("error", err))
			}
		}()
	})
}

// Ready is closed once boot has finished.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Close stops every timer owned by the engine.
func (e *Engine) Close() {
	e.closeOnce.Do(e.Monitor.Stop)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
