package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"yuva/server/internal/api/middleware"
	"yuva/server/internal/db"
	"yuva/server/internal/live"
	"yuva/server/internal/services"
	"yuva/server/internal/session"
)

// LiveHandler upgrades requests to WebSocket connections that stream a view.
// The view lives exactly as long as the connection.
type LiveHandler struct {
	store    db.DocumentStore
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewLiveHandler(store db.DocumentStore, allowedOrigins []string, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// Listings handles GET /v1/live/listings?q=
func (h *LiveHandler) Listings(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := live.NewConn(ws, h.logger)
	view := services.NewListingsView(h.store, h.logger)
	view.SetQuery(c.Query("q"))
	view.OnChange(func(state services.ListingsState) {
		conn.Send(live.OpListings, state)
	})
	conn.OnQuery(view.SetQuery)

	h.serve(c.Request.Context(), conn, view)
}

// Inbox handles GET /v1/live/inbox. Guests get a single empty, loaded frame.
func (h *LiveHandler) Inbox(c *gin.Context) {
	identity := session.FromContext(c.Request.Context())

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := live.NewConn(ws, h.logger)
	view := services.NewInboxView(h.store, identity, h.logger)
	view.OnChange(func(state services.InboxState) {
		conn.Send(live.OpInbox, state)
	})

	h.serve(c.Request.Context(), conn, view)
}

type activatable interface {
	Activate(ctx context.Context)
	Deactivate()
}

func (h *LiveHandler) serve(parent context.Context, conn *live.Conn, view activatable) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	view.Activate(ctx)
	conn.Run()
	view.Deactivate()
}
