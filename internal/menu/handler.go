package menu

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harmonia-web/portal/internal/platform/httpx"
)

// Handler serves the public navigation.
type Handler struct {
	logger      *slog.Logger
	resolver    *Resolver
	broadcaster Broadcaster
}

// NewHandler constructs a Handler. A nil broadcaster keeps refreshes local.
func NewHandler(logger *slog.Logger, resolver *Resolver, broadcaster Broadcaster) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Handler{logger: logger, resolver: resolver, broadcaster: broadcaster}
}

// MountRoutes registers navigation routes. refreshGuard protects the
// administrative refresh endpoint.
func (h *Handler) MountRoutes(r chi.Router, refreshGuard func(http.Handler) http.Handler) {
	r.Get("/navigation", h.handleNavigation)
	r.Group(func(r chi.Router) {
		if refreshGuard != nil {
			r.Use(refreshGuard)
		}
		r.Post("/navigation/refresh", h.handleRefresh)
	})
}

type navigationResponse struct {
	Data []NavigationItem `json:"data"`
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, navigationResponse{Data: h.resolver.GetMenuStructure(r.Context())})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	items := h.resolver.RefreshMenu(r.Context())
	if err := h.broadcaster.Publish(r.Context()); err != nil {
		h.logger.Warn("broadcast menu invalidation", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, navigationResponse{Data: items})
}
