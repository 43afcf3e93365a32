package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"empatia/internal/app"
	"empatia/internal/i18n"
)

// Handler handles WebSocket connections from kiosk screens
type Handler struct {
	kiosk    *app.Kiosk
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(kiosk *app.Kiosk, logger *slog.Logger) *Handler {
	return &Handler{
		kiosk: kiosk,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// kiosk screens are served from the local machine or a file:// page
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tag := h.kiosk.DefaultLanguage()
	if parsed, ok := i18n.ParseTag(r.URL.Query().Get("lang")); ok {
		tag = parsed
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.kiosk, clientID, tag, h.logger)
	h.kiosk.RegisterClient(client)

	h.logger.Info("websocket connected",
		"client_id", clientID,
		"language", tag.String(),
		"clients", h.kiosk.ClientCount(),
	)

	client.sendState(MsgConnected)

	// Start the client
	client.Run()
}
