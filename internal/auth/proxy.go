package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harmonia-web/portal/internal/apiclient"
	"github.com/harmonia-web/portal/internal/platform/httpx"
)

const maxProxyBody = 32 << 20

// Forwarder performs an arbitrary call against the remote API.
type Forwarder interface {
	Do(ctx context.Context, req apiclient.Request) ([]byte, error)
}

// ProxyHandler forwards back-office calls to the remote API with the bearer
// token of the browser session. A 401 from a non-public endpoint clears the
// session before the answer is relayed.
type ProxyHandler struct {
	logger  *slog.Logger
	lookup  StoreLookup
	forward Forwarder
}

// NewProxyHandler constructs a ProxyHandler.
func NewProxyHandler(logger *slog.Logger, lookup StoreLookup, forward Forwarder) *ProxyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{logger: logger, lookup: lookup, forward: forward}
}

// MountRoutes registers the proxy under /api.
func (h *ProxyHandler) MountRoutes(r chi.Router) {
	r.Handle("/api/*", h)
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if hasDotSegment(path) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	store, err := h.lookup(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if store == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	req := apiclient.Request{
		Method:      r.Method,
		Path:        path,
		ContentType: r.Header.Get("Content-Type"),
	}
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		req.Body = http.MaxBytesReader(w, r.Body, maxProxyBody)
	}

	data, err := h.forward.Do(store.AuthorizedContext(r.Context()), req)
	if err != nil {
		h.relayError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ProxyHandler) relayError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		h.logger.Warn("proxy remote api", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "remote api unreachable")
		return
	}
	if apiErr.Status == http.StatusUnauthorized {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if len(apiErr.Body) == 0 {
		httpx.Problem(w, apiErr.Status, http.StatusText(apiErr.Status), apiErr.Message)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_, _ = w.Write(apiErr.Body)
}

func hasDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return true
		}
	}
	return false
}
