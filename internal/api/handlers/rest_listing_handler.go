package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/services"
	"yuva/server/internal/session"
)

// snapshotTimeout bounds how long a REST read waits for the first snapshot.
const snapshotTimeout = 10 * time.Second

// RestListingHandler handles REST reads of listings and the inbox. Each
// request runs its own short-lived view and returns the first loaded state.
type RestListingHandler struct {
	store          db.DocumentStore
	listingService services.IListingService
	logger         *zap.Logger
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(store db.DocumentStore, listingService services.IListingService, logger *zap.Logger) *RestListingHandler {
	return &RestListingHandler{
		store:          store,
		listingService: listingService,
		logger:         logger,
	}
}

// SearchListings handles GET /v1/listing?q=
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	query := c.Query("q")

	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	view := services.NewListingsView(h.store, h.logger)
	view.SetQuery(query)
	view.Activate(ctx)
	defer view.Deactivate()

	state, err := view.WaitReady(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Listings are not available right now"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  state.Filtered,
		"query": state.Query,
	})
}

// GetListingByID handles GET /v1/listing/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listing, err := h.listingService.FindListingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.MsgListingNotFound})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listing"})
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

// GetInbox handles GET /v1/inbox. It runs behind middleware.RequireAuth.
func (h *RestListingHandler) GetInbox(c *gin.Context) {
	identity := session.FromContext(c.Request.Context())

	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	view := services.NewInboxView(h.store, identity, h.logger)
	view.Activate(ctx)
	defer view.Deactivate()

	state, err := view.WaitReady(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Inbox is not available right now"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state.Messages})
}
