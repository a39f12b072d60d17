package handlers

import (
	"net/http"

	"clinic-console-server/pkg/logger"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is handled by the CORS middleware for the REST
	// surface; the websocket accepts the same origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DirectoryWSHandler pushes live conversation directory snapshots over a
// websocket instead of making the frontend poll
type DirectoryWSHandler struct {
	conversations ConversationServiceInterface
}

// NewDirectoryWSHandler creates a new directory websocket handler
func NewDirectoryWSHandler(conversations ConversationServiceInterface) *DirectoryWSHandler {
	return &DirectoryWSHandler{conversations: conversations}
}

// Stream handles GET /api/ws/conversations. It opens a live directory view
// for the actor, writes the current snapshot immediately, then one snapshot
// after every refresh until the client disconnects.
func (h *DirectoryWSHandler) Stream(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	view, err := h.conversations.OpenDirectory(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		view.Close()
		logger.Warn("Websocket upgrade failed",
			zap.String("actor_id", actor.ID),
			zap.Error(err),
		)
		return
	}

	defer func() {
		view.Close()
		_ = conn.Close()
	}()

	// Reader goroutine: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The open itself signals its initial load; the frame below already
	// carries that snapshot, so the signal must not produce a second one.
	select {
	case <-view.Updates():
	default:
	}

	if err := conn.WriteJSON(gin.H{"conversations": view.Snapshot()}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case _, ok := <-view.Updates():
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"conversations": view.Snapshot()}); err != nil {
				return
			}
		}
	}
}
