package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lex-intake/internal/auth"
	"lex-intake/internal/services"
	"lex-intake/internal/transport/httpdto"
)

// Handler upgrades a session-scoped event stream. Clients connect with the
// portal token as a query parameter (browsers cannot set headers on
// WebSocket dials) and receive the session's progress and transcription
// events.
type Handler struct {
	verifier *auth.Verifier
	sessions *services.SessionService
	hub      *Hub
}

func NewHandler(verifier *auth.Verifier, sessions *services.SessionService, hub *Hub) *Handler {
	return &Handler{verifier: verifier, sessions: sessions, hub: hub}
}

// ClientCount reports the connected event-stream clients.
func (h *Handler) ClientCount() int {
	return h.hub.ClientCount()
}

func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	claims, err := h.verifier.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid session id", "INVALID_REQUEST"))
		return
	}
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("session not found", "NOT_FOUND"))
		return
	}
	// Sessions are private to their owner; a foreign session looks missing.
	if sess.UserID != claims.Subject {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("session not found", "NOT_FOUND"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, claims.Subject)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client, sess.Channel())
	go client.WriteLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	h.hub.Unregister(client)
}
