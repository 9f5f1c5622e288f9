package shared

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-web/portal/internal/apiclient"
	"github.com/harmonia-web/portal/internal/inactivity"
	"github.com/harmonia-web/portal/internal/rbac"
	"github.com/harmonia-web/portal/internal/storage"
)

type stubAPI struct {
	user  *rbac.User
	boots atomic.Int32

	mu      sync.Mutex
	revoked []string
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (*apiclient.Session, error) {
	return &apiclient.Session{Token: "fresh", User: s.user.Clone()}, nil
}

func (s *stubAPI) CurrentUser(ctx context.Context) (*rbac.User, error) {
	s.boots.Add(1)
	return s.user.Clone(), nil
}

func (s *stubAPI) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, apiclient.TokenFromContext(ctx))
	return nil
}

func (s *stubAPI) revokedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revoked...)
}

func signedInStorage(t *testing.T) *storage.MemoryStore {
	t.Helper()
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, storage.KeyToken, "tok"))
	require.NoError(t, mem.Set(ctx, storage.KeyUser, `{"id":7,"name":"Rina"}`))
	return mem
}

func waitReady(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case <-e.Ready():
	case <-time.After(time.Second):
		t.Fatal("engine boot did not finish")
	}
}

func TestEngineExpiryLogsSessionOut(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mem := signedInStorage(t)
	api := &stubAPI{user: &rbac.User{ID: 7, Name: "Rina"}}
	engine := NewEngine("browser-1", EngineOptions{
		API:     api,
		Storage: mem,
		Inactivity: inactivity.Config{
			Timeout: 5 * time.Second,
			Warning: 2 * time.Second,
			Clock:   clock,
		},
	})
	t.Cleanup(engine.Close)

	engine.Start(context.Background())
	waitReady(t, engine)
	require.NotNil(t, engine.Session.CurrentUser())
	assert.Equal(t, inactivity.StateIdle, engine.Monitor.State())

	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		return engine.Monitor.State() == inactivity.StateWarning
	}, time.Second, time.Millisecond)

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return engine.Session.CurrentUser() == nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, inactivity.StateDisabled, engine.Monitor.State())
	_, ok, err := mem.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Eventually(t, func() bool {
		return len(api.revokedTokens()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"tok"}, api.revokedTokens())
}

func TestEngineLoginArmsMonitor(t *testing.T) {
	engine := NewEngine("browser-2", EngineOptions{
		API:        &stubAPI{user: &rbac.User{ID: 1, Name: "Budi"}},
		Storage:    storage.NewMemoryStore(),
		Inactivity: inactivity.Config{Clock: clockwork.NewFakeClock()},
	})
	t.Cleanup(engine.Close)
	engine.Start(context.Background())
	waitReady(t, engine)
	assert.Equal(t, inactivity.StateDisabled, engine.Monitor.State())

	res := engine.Session.Login(context.Background(), "budi@example.com", "secret")
	require.True(t, res.Success)
	assert.Equal(t, inactivity.StateIdle, engine.Monitor.State())

	engine.Session.Logout(context.Background())
	assert.Equal(t, inactivity.StateDisabled, engine.Monitor.State())
}

func TestRegistryReusesAndEvictsEngines(t *testing.T) {
	api := &stubAPI{user: &rbac.User{ID: 7}}
	registry, err := NewRegistry(2, func(id string) (*Engine, error) {
		return NewEngine(id, EngineOptions{
			API:        api,
			Storage:    signedInStorage(t),
			Inactivity: inactivity.Config{Clock: clockwork.NewFakeClock()},
		}), nil
	}, nil)
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	ctx := context.Background()
	first, err := registry.Get(ctx, "a")
	require.NoError(t, err)
	again, err := registry.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, first, again)
	waitReady(t, first)
	assert.Equal(t, int32(1), api.boots.Load())

	_, err = registry.Get(ctx, "b")
	require.NoError(t, err)
	_, err = registry.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	// "a" was least recently used, so its monitor is stopped.
	events, _ := first.Monitor.Subscribe()
	_, open := <-events
	assert.False(t, open)

	_, ok := registry.Lookup("a")
	assert.False(t, ok)
	_, ok = registry.Lookup("")
	assert.False(t, ok)
	c, ok := registry.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "c", c.ID)
}

func TestRegistryRejectsEmptyIDAndFactoryErrors(t *testing.T) {
	boom := errors.New("boom")
	registry, err := NewRegistry(0, func(string) (*Engine, error) { return nil, boom }, nil)
	require.NoError(t, err)

	_, err = registry.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoEngine)
	_, err = registry.Get(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	_, err = NewRegistry(1, nil, nil)
	assert.Error(t, err)
}
