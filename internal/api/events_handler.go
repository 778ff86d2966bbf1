package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// EventsHandler streams analysis progress events to clients over WebSocket.
type EventsHandler struct {
	upgrader    websocket.Upgrader
	broadcaster services.AnalysisBroadcaster
	logger      *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(broadcaster services.AnalysisBroadcaster, logger *slog.Logger) *EventsHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(_ *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &EventsHandler{
		upgrader:    upgrader,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RegisterRoutes registers event streaming routes.
func (h *EventsHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	events := router.Group("/events")
	{
		events.GET("/analyses", authMiddleware.RequireAuth(), h.StreamAnalyses)
	}
}

// StreamAnalyses upgrades the connection to a WebSocket and forwards the
// authenticated user's analysis events until either side closes.
func (h *EventsHandler) StreamAnalyses(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	// Subscribe before upgrading so limit errors still go out as plain HTTP.
	events, cancel, err := h.broadcaster.Subscribe(user.ID)
	if err != nil {
		ErrorResponse(c, domain.NewConflictError("SUBSCRIPTION_LIMIT", "Too many open event streams for this account"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.logger.Error("WebSocket upgrade failed",
			"user_id", user.ID,
			"error", err)
		return
	}

	go h.readUntilClosed(conn, user.ID, cancel)
	go h.writeEvents(conn, user.ID, events)

	h.logger.Info("analysis event stream opened", "user_id", user.ID)
}

// readUntilClosed drains the connection to detect the client going away.
// Clients do not send application messages on this stream.
func (h *EventsHandler) readUntilClosed(conn *websocket.Conn, userID string, cancel func()) {
	defer func() {
		cancel()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("analysis event stream read error",
					"user_id", userID,
					"error", err)
			}
			return
		}
	}
}

// writeEvents forwards subscription events to the peer and keeps the
// connection alive with periodic pings.
func (h *EventsHandler) writeEvents(conn *websocket.Conn, userID string, events <-chan *domain.AnalysisEvent) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal analysis event",
					"user_id", userID,
					"analysis_id", event.AnalysisID,
					"error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("analysis event stream write error",
					"user_id", userID,
					"error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
