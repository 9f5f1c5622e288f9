package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harmonia-web/portal/internal/platform/httpx"
	"github.com/harmonia-web/portal/internal/rbac"
)

// StoreLookup resolves the session store of the browser session behind a
// request.
type StoreLookup func(r *http.Request) (*Store, error)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	lookup    StoreLookup
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, lookup StoreLookup) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, lookup: lookup, validator: validator.New()}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
	r.Patch("/auth/me", h.handleUpdateMe)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileForm struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Avatar *string `json:"avatar" validate:"omitempty,max=2048"`
	Status *string `json:"status" validate:"omitempty,max=64"`
}

type loginResponse struct {
	LoginResult
	User   *rbac.User        `json:"user,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

type meResponse struct {
	User    *rbac.User `json:"user"`
	Loading bool       `json:"loading"`
}

var fieldOrder = []string{"email", "password", "name", "avatar", "status"}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.JSON(w, http.StatusUnprocessableEntity, loginResponse{
			LoginResult: LoginResult{Error: firstFieldError(errs)},
			Errors:      errs,
		})
		return
	}

	result := store.Login(r.Context(), form.Email, form.Password)
	if !result.Success {
		httpx.JSON(w, http.StatusUnprocessableEntity, loginResponse{LoginResult: result})
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{LoginResult: result, User: store.CurrentUser()})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	// A failed re-check that is not a rejection keeps the session.
	_ = store.Revalidate(r.Context())
	user := store.CurrentUser()
	loading := store.IsLoading()
	if user == nil && !loading {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: user, Loading: loading})
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var form profileForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", firstFieldError(errs))
		return
	}

	user, err := store.UpdateUser(r.Context(), ProfilePatch(form))
	switch {
	case errors.Is(err, ErrNoSession):
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	case err != nil:
		h.logger.Error("update profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: user})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	store, err := h.lookup(r)
	if err != nil {
		h.logger.Error("resolve session store", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	if store == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, false
	}
	return store, true
}

func (h *Handler) validate(form any) map[string]string {
	err := h.validator.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"general": err.Error()}
	}
	errs := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		errs[field] = fieldMessage(field, fe.Tag())
	}
	return errs
}

func firstFieldError(errs map[string]string) string {
	for _, field := range fieldOrder {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return DefaultLoginError
}

func fieldMessage(field, tag string) string {
	label := field
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	switch tag {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "min", "max":
		return label + " has an invalid length"
	}
	return label + " is invalid"
}
