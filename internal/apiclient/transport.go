package apiclient

import (
	"log/slog"
	"net/http"
	"strings"
)

// DefaultPublicPaths lists path fragments of the unauthenticated read-only
// content endpoints. A 401 from one of them never clears the session.
var DefaultPublicPaths = []string{
	"/public/",
	"/login",
	"/menu-structure",
	"/sliders",
	"/news",
	"/services",
	"/gallery",
	"/band-members",
	"/guides",
	"/welcome-messages",
}

// authTransport injects the bearer token and routes non-public 401s to the
// handler carried by the request context.
type authTransport struct {
	base   http.RoundTripper
	public []string
	logger *slog.Logger
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if token := TokenFromContext(ctx); token != "" && r.Header.Get("Authorization") == "" {
		r = r.Clone(ctx)
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !t.isPublic(r.URL.Path) {
		if t.logger != nil {
			t.logger.WarnContext(ctx, "remote api rejected session", slog.String("path", r.URL.Path))
		}
		if fn := unauthorizedHandler(ctx); fn != nil {
			fn(ctx)
		}
	}
	return resp, nil
}

func (t *authTransport) isPublic(path string) bool {
	for _, fragment := range t.public {
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}
