package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/harmonia-web/portal/internal/apiclient"
	"github.com/harmonia-web/portal/internal/rbac"
	"github.com/harmonia-web/portal/internal/storage"
)

// DefaultLoginError is shown when the remote API gives no usable message.
const DefaultLoginError = "Invalid credentials"

// DefaultRevalidateInterval bounds how long a verified identity is trusted
// before Revalidate asks the server again.
const DefaultRevalidateInterval = time.Minute

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("auth: no active session")

// API is the subset of the remote API used by the session store.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.Session, error)
	CurrentUser(ctx context.Context) (*rbac.User, error)
	Logout(ctx context.Context) error
}

// LoginResult is the structured outcome of a login attempt.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ProfilePatch carries the profile fields a user may edit. Nil fields are
// left untouched.
type ProfilePatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Store holds the current user and token for one browser session and keeps
// them in durable storage.
type Store struct {
	api        API
	storage    storage.Store
	logger     *slog.Logger
	clock      clockwork.Clock
	revalidate time.Duration
	verify     singleflight.Group

	mu         sync.RWMutex
	user       *rbac.User
	token      string
	loading    bool
	verifiedAt time.Time
	observers  []func(*rbac.User)
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithRevalidateInterval sets how long a verified identity is trusted. A
// non-positive interval re-checks on every Revalidate call.
func WithRevalidateInterval(d time.Duration) StoreOption {
	return func(s *Store) { s.revalidate = d }
}

// WithClock injects the clock used for revalidation bookkeeping.
func WithClock(clock clockwork.Clock) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore constructs a Store. The store reports IsLoading until Boot returns.
func NewStore(api API, store storage.Store, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		api:        api,
		storage:    store,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
		revalidate: DefaultRevalidateInterval,
		loading:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a callback invoked with the new user (nil on sign-out)
// whenever the session appears, changes or disappears.
func (s *Store) OnChange(fn func(*rbac.User)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Boot restores the session from storage, shows the cached identity at once
// and then re-validates it against the server. Any verification failure
// discards the session.
func (s *Store) Boot(ctx context.Context) error {
	defer s.finishLoading()

	token, hasToken, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("auth: boot: %w", err)
	}
	raw, hasUser, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		return fmt.Errorf("auth: boot: %w", err)
	}
	if !hasToken || !hasUser || token == "" {
		if hasToken || hasUser {
			s.clear(ctx)
		}
		return nil
	}

	cached, err := rbac.DecodeUser([]byte(raw))
	if err != nil {
		s.logger.Warn("discard unreadable cached user", slog.Any("error", err))
		s.clear(ctx)
		return nil
	}
	s.set(token, cached)

	fresh, err := s.api.CurrentUser(s.authorized(ctx, token))
	if err != nil {
		s.logger.Warn("session verification failed", slog.Any("error", err))
		s.invalidateToken(ctx, token)
		return nil
	}
	rbac.Normalize(fresh)
	merged := mergeUser(cached, fresh)

	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if current != token {
		// Signed out or replaced while the verification was in flight.
		return nil
	}
	if err := s.persist(ctx, token, merged); err != nil {
		s.logger.Warn("persist verified user", slog.Any("error", err))
	}
	s.set(token, merged)
	s.markVerified(token)
	return nil
}

// Login authenticates and stores the resulting session. It never returns an
// error; failures are described by the result.
func (s *Store) Login(ctx context.Context, email, password string) LoginResult {
	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", slog.String("email", email), slog.Any("error", err))
		return LoginResult{Error: LoginErrorMessage(err)}
	}
	if sess == nil || sess.User == nil || sess.Token == "" {
		return LoginResult{Error: DefaultLoginError}
	}
	rbac.Normalize(sess.User)
	if err := s.persist(ctx, sess.Token, sess.User); err != nil {
		s.logger.Warn("persist session", slog.Any("error", err))
	}
	s.set(sess.Token, sess.User)
	s.markVerified(sess.Token)
	return LoginResult{Success: true}
}

// Logout clears local state and then asks the server to invalidate the
// token. The remote call is best effort.
func (s *Store) Logout(ctx context.Context) {
	token := s.Token()
	s.clear(ctx)
	if token == "" {
		return
	}
	if err := s.api.Logout(apiclient.WithToken(ctx, token)); err != nil {
		s.logger.Warn("remote logout failed", slog.Any("error", err))
	}
}

// Revalidate asks the server whether the session is still valid once the
// last verification is older than the revalidation interval. A rejected
// token clears the session; other failures keep it and are returned.
// Concurrent callers share one request.
func (s *Store) Revalidate(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	skip := s.loading || token == "" || s.user == nil ||
		(s.revalidate > 0 && s.clock.Since(s.verifiedAt) < s.revalidate)
	s.mu.RUnlock()
	if skip {
		return nil
	}

	_, err, _ := s.verify.Do(token, func() (any, error) {
		fresh, err := s.api.CurrentUser(s.authorized(ctx, token))
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				s.invalidateToken(context.WithoutCancel(ctx), token)
				return nil, nil
			}
			s.logger.Warn("session revalidation failed", slog.Any("error", err))
			return nil, fmt.Errorf("auth: revalidate: %w", err)
		}
		rbac.Normalize(fresh)

		s.mu.Lock()
		if s.token != token {
			s.mu.Unlock()
			return nil, nil
		}
		merged := mergeUser(s.user, fresh)
		s.user = merged.Clone()
		s.verifiedAt = s.clock.Now()
		// Persisting under the lock orders the write before any concurrent clear.
		if err := s.persist(ctx, token, merged); err != nil {
			s.logger.Warn("persist revalidated user", slog.Any("error", err))
		}
		observers := append(([]func(*rbac.User))(nil), s.observers...)
		s.mu.Unlock()

		notify(observers, merged)
		return nil, nil
	})
	return err
}

// UpdateUser shallow-merges profile fields into the current user and
// persists the result. Roles and permissions are never patched.
func (s *Store) UpdateUser(ctx context.Context, patch ProfilePatch) (*rbac.User, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	updated := s.user.Clone()
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Email != nil {
		updated.Email = *patch.Email
	}
	if patch.Avatar != nil {
		updated.Avatar = *patch.Avatar
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	s.user = updated
	token := s.token
	observers := append(([]func(*rbac.User))(nil), s.observers...)
	s.mu.Unlock()

	if err := s.persist(ctx, token, updated); err != nil {
		return updated.Clone(), err
	}
	notify(observers, updated)
	return updated.Clone(), nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Store) CurrentUser() *rbac.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Token returns the current bearer token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsLoading reports whether boot verification is still running.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// AuthorizedContext decorates ctx so API calls carry the bearer token and a
// 401 from a non-public endpoint clears this session.
func (s *Store) AuthorizedContext(ctx context.Context) context.Context {
	return s.authorized(ctx, s.Token())
}

// LoginErrorMessage picks the most specific message from a login failure:
// the email field error, then the general message, then a generic fallback.
func LoginErrorMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.FieldMessage("email"); msg != "" {
			return msg
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return DefaultLoginError
}

func (s *Store) authorized(ctx context.Context, token string) context.Context {
	ctx = apiclient.WithToken(ctx, token)
	return apiclient.WithUnauthorizedHandler(ctx, func(ctx context.Context) {
		s.invalidateToken(context.WithoutCancel(ctx), token)
	})
}

// invalidateToken clears the session only if token is still the active one,
// so a late 401 for an old token cannot sign out a newer login.
func (s *Store) invalidateToken(ctx context.Context, token string) {
	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if current != token {
		return
	}
	s.clear(ctx)
}

func (s *Store) persist(ctx context.Context, token string, user *rbac.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("auth: encode user: %w", err)
	}
	if err := s.storage.Set(ctx, storage.KeyToken, token); err != nil {
		return err
	}
	return s.storage.Set(ctx, storage.KeyUser, string(data))
}

func (s *Store) set(token string, user *rbac.User) {
	s.mu.Lock()
	s.token = token
	s.user = user.Clone()
	observers := append(([]func(*rbac.User))(nil), s.observers...)
	s.mu.Unlock()
	notify(observers, user)
}

func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	hadSession := s.user != nil || s.token != ""
	s.user = nil
	s.token = ""
	observers := append(([]func(*rbac.User))(nil), s.observers...)
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, storage.KeyToken, storage.KeyUser); err != nil {
		s.logger.Warn("clear session storage", slog.Any("error", err))
	}
	if hadSession {
		notify(observers, nil)
	}
}

func (s *Store) markVerified(token string) {
	s.mu.Lock()
	if s.token == token {
		s.verifiedAt = s.clock.Now()
	}
	s.mu.Unlock()
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func notify(observers []func(*rbac.User), user *rbac.User) {
	for _, fn := range observers {
		fn(user.Clone())
	}
}

// mergeUser overlays the server copy on the cached one. Authorization fields
// always come from the server; profile fields the server left empty keep the
// cached value, which is how a locally cached avatar survives a refresh.
func mergeUser(cached, fresh *rbac.User) *rbac.User {
	merged := fresh.Clone()
	if cached == nil {
		return merged
	}
	if merged.ID == 0 {
		merged.ID = cached.ID
	}
	if merged.Name == "" {
		merged.Name = cached.Name
	}
	if merged.Email == "" {
		merged.Email = cached.Email
	}
	if merged.Status == "" {
		merged.Status = cached.Status
	}
	if merged.Avatar == "" {
		merged.Avatar = cached.Avatar
	}
	return merged
}
