package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/interfaces/http/middleware"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

// NotificationHandler serves the provider notification inbox.
type NotificationHandler struct {
	repo notification.Repository
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(repo notification.Repository) (*NotificationHandler, error) {
	if repo == nil {
		return nil, errors.InvalidParam("notification repository cannot be nil")
	}
	return &NotificationHandler{repo: repo}, nil
}

// List handles GET /api/v1/notifications: the authenticated provider's
// unread notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil || claims.ProviderID == "" {
		respondError(c, errors.Forbidden("only providers have a notification inbox"))
		return
	}
	p := parsePagination(c)
	if err := p.Validate(); err != nil {
		respondError(c, errors.InvalidParam(err.Error()))
		return
	}

	items, err := h.repo.ListUnreadByProvider(c.Request.Context(), claims.ProviderID, p.PageSize, p.Offset())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := common.NewPaginatedResponse(items, p)
	resp.RequestID = c.GetString("request_id")
	c.JSON(http.StatusOK, resp)
}

// MarkRead handles POST /api/v1/notifications/:id/read. Reading releases the
// dedup slot so the next escalation run may notify again.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	claims := middleware.ClaimsFrom(c)

	n, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// A provider can only read its own notifications.
	if claims != nil && claims.ProviderID != "" && n.ProviderID != claims.ProviderID {
		respondError(c, errors.NotFound("notification not found"))
		return
	}
	if err := h.repo.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}
