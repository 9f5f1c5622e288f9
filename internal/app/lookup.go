package app

import (
	"fmt"
	"net/http"

	"github.com/harmonia-web/portal/internal/auth"
	"github.com/harmonia-web/portal/internal/inactivity"
	"github.com/harmonia-web/portal/internal/navigation"
	"github.com/harmonia-web/portal/internal/platform/httpx"
	"github.com/harmonia-web/portal/internal/rbac"
	"github.com/harmonia-web/portal/internal/shared"
)

// Lookups resolve the per-browser engine behind a request for the handlers
// that need one.
type Lookups struct {
	Engines *shared.Registry
}

// Engine returns the engine of the request's browser session, creating and
// booting it on first use.
func (l Lookups) Engine(r *http.Request) (*shared.Engine, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || l.Engines == nil {
		return nil, shared.ErrNoEngine
	}
	return l.Engines.Get(r.Context(), sess.ID)
}

// Store implements auth.StoreLookup. Reads see the store while it boots;
// writes wait for boot so a login cannot interleave with the restore.
func (l Lookups) Store(r *http.Request) (*auth.Store, error) {
	engine, err := l.Engine(r)
	if err != nil {
		return nil, err
	}
	if !isSafeMethod(r.Method) {
		if err := awaitBoot(r, engine); err != nil {
			return nil, err
		}
	}
	return engine.Session, nil
}

// Monitor implements inactivity.MonitorLookup.
func (l Lookups) Monitor(r *http.Request) (*inactivity.Monitor, error) {
	engine, err := l.Engine(r)
	if err != nil {
		return nil, err
	}
	return engine.Monitor, nil
}

// Session implements navigation.SessionLookup.
func (l Lookups) Session(r *http.Request) (navigation.Session, error) {
	engine, err := l.Engine(r)
	if err != nil {
		return nil, err
	}
	return engine.Session, nil
}

// User implements rbac.UserLookup. Permission checks wait for verification
// instead of trusting the cached identity, and re-check it with the server
// once it is older than the revalidation interval. A failed re-check that is
// not a rejection keeps the session; the store logs it.
func (l Lookups) User(r *http.Request) (*rbac.User, error) {
	engine, err := l.Engine(r)
	if err != nil {
		return nil, err
	}
	if err := awaitBoot(r, engine); err != nil {
		return nil, err
	}
	_ = engine.Session.Revalidate(r.Context())
	return engine.Session.CurrentUser(), nil
}

func awaitBoot(r *http.Request, engine *shared.Engine) error {
	select {
	case <-engine.Ready():
		return nil
	case <-r.Context().Done():
		return fmt.Errorf("%w: session verification in progress", httpx.ErrUnavailable)
	}
}

var (
	_ auth.StoreLookup         = Lookups{}.Store
	_ inactivity.MonitorLookup = Lookups{}.Monitor
	_ navigation.SessionLookup = Lookups{}.Session
	_ rbac.UserLookup          = Lookups{}.User
)
