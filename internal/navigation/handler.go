package navigation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harmonia-web/portal/internal/platform/httpx"
	"github.com/harmonia-web/portal/internal/rbac"
)

// Session is the view of a session store the gate needs.
type Session interface {
	CurrentUser() *rbac.User
	IsLoading() bool
}

// SessionLookup resolves the session behind a request.
type SessionLookup func(r *http.Request) (Session, error)

// Handler serves the gated back-office navigation.
type Handler struct {
	logger  *slog.Logger
	lookup  SessionLookup
	entries []Entry
}

// NewHandler constructs a Handler over entries; nil entries use BackOffice.
func NewHandler(logger *slog.Logger, lookup SessionLookup, entries []Entry) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if entries == nil {
		entries = BackOffice()
	}
	return &Handler{logger: logger, lookup: lookup, entries: entries}
}

// MountRoutes registers the navigation route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/admin/navigation", h.handleNavigation)
}

type navigationResponse struct {
	Data []Entry `json:"data"`
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.resolve(r)
	switch {
	case errors.Is(err, ErrNoSessionContext):
		h.logger.Error("navigation rendered without session context")
		httpx.TypedProblem(w, http.StatusInternalServerError, "authentication_error",
			"Authentication Error", "authorization state is unavailable")
		return
	case errors.Is(err, httpx.ErrUnavailable):
		httpx.TypedProblem(w, http.StatusServiceUnavailable, "session_loading",
			"Session Loading", "session verification is in progress")
		return
	case err != nil:
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, navigationResponse{Data: entries})
}

// resolve never guesses: a missing session is an error and an unverified
// session is reported as unavailable.
func (h *Handler) resolve(r *http.Request) ([]Entry, error) {
	if h.lookup == nil {
		return nil, ErrNoSessionContext
	}
	sess, err := h.lookup(r)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSessionContext
	}
	if sess.IsLoading() {
		return nil, httpx.ErrUnavailable
	}
	return Visible(sess.CurrentUser(), h.entries), nil
}
