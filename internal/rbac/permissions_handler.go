package rbac

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/harmonia-web/portal/internal/platform/httpx"
)

// PermissionsHandler reports what the signed-in user may do.
type PermissionsHandler struct {
	logger  *slog.Logger
	lookup  UserLookup
	catalog []string
}

// NewPermissionsHandler builds PermissionsHandler instance. catalog lists
// every permission the back office knows; it is echoed so clients can tell
// missing grants from unknown names.
func NewPermissionsHandler(logger *slog.Logger, lookup UserLookup, catalog []string) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	known := append([]string(nil), catalog...)
	sort.Strings(known)
	return &PermissionsHandler{logger: logger, lookup: lookup, catalog: known}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(Middleware{Lookup: h.lookup, Logger: h.logger}.RequireAny())
		r.Get("/auth/permissions", h.listPermissions)
	})
}

type permissionsResponse struct {
	SuperAdmin  bool     `json:"super_admin"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Known       []string `json:"known"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	user, err := h.lookup(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := permissionsResponse{
		SuperAdmin:  IsSuperAdmin(user),
		Roles:       roleNames(user),
		Permissions: EffectivePermissions(user),
		Known:       h.catalog,
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func roleNames(u *User) []string {
	names := make([]string, 0, len(u.Roles)+1)
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	if len(names) == 0 && u.Role != "" {
		names = append(names, string(u.Role))
	}
	return names
}
