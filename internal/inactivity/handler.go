package inactivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/harmonia-web/portal/internal/platform/httpx"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// MonitorLookup resolves the monitor of the browser session behind a request.
type MonitorLookup func(r *http.Request) (*Monitor, error)

// Handler exposes the monitor to the browser.
type Handler struct {
	logger   *slog.Logger
	lookup   MonitorLookup
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, lookup MonitorLookup) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger: logger,
		lookup: lookup,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// MountRoutes registers session endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/session/keepalive", h.handleKeepalive)
	r.Get("/session/status", h.handleStatus)
	r.Get("/session/events", h.handleEvents)
}

type statusResponse struct {
	State     State `json:"state"`
	Remaining int   `json:"remaining"`
}

func (h *Handler) handleKeepalive(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.activeMonitor(w, r)
	if !ok {
		return
	}
	monitor.StayLoggedIn()
	h.writeStatus(w, monitor)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	monitor, err := h.lookup(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeStatus(w, monitor)
}

type clientMessage struct {
	Type string `json:"type"`
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.activeMonitor(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(conn, monitor, cancel)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("websocket write", slog.Any("error", err))
				return
			}
			if ev.State == StateExpired || ev.State == StateDisabled {
				return
			}
		}
	}
}

// readPump turns browser activity signals into monitor calls.
func (h *Handler) readPump(conn *websocket.Conn, monitor *Monitor, cancel context.CancelFunc) {
	defer cancel()
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "activity":
			monitor.Activity()
		case "stay":
			monitor.StayLoggedIn()
		}
	}
}

func (h *Handler) activeMonitor(w http.ResponseWriter, r *http.Request) (*Monitor, bool) {
	monitor, err := h.lookup(r)
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	if monitor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, false
	}
	switch monitor.State() {
	case StateDisabled, StateExpired:
		httpx.RespondError(w, fmt.Errorf("%w: no active session", httpx.ErrUnauthorized))
		return nil, false
	}
	return monitor, true
}

func (h *Handler) writeStatus(w http.ResponseWriter, monitor *Monitor) {
	resp := statusResponse{State: StateDisabled}
	if monitor != nil {
		resp.State = monitor.State()
		resp.Remaining = int(monitor.Remaining() / time.Second)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
