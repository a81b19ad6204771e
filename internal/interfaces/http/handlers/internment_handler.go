package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/application/internments"
	"github.com/saludplena/claims-engine/internal/interfaces/http/middleware"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

// InternmentHandler serves the internment lifecycle endpoints.
type InternmentHandler struct {
	service *internments.Service
}

// NewInternmentHandler builds an InternmentHandler.
func NewInternmentHandler(service *internments.Service) (*InternmentHandler, error) {
	if service == nil {
		return nil, errors.InvalidParam("internments service cannot be nil")
	}
	return &InternmentHandler{service: service}, nil
}

// Report handles POST /api/v1/internments.
func (h *InternmentHandler) Report(c *gin.Context) {
	var input internments.ReportInput
	if !bindJSON(c, &input) {
		return
	}
	// The reporting provider is always the authenticated one.
	if claims := middleware.ClaimsFrom(c); claims != nil && claims.ProviderID != "" {
		input.ProviderID = claims.ProviderID
	}

	in, err := h.service.Report(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, in)
}

// Get handles GET /api/v1/internments/:id.
func (h *InternmentHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

// List handles GET /api/v1/internments for the authenticated provider.
func (h *InternmentHandler) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	providerID := ""
	if claims != nil {
		providerID = claims.ProviderID
	}
	p := parsePagination(c)

	items, err := h.service.ListByProvider(c.Request.Context(), providerID, p)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := common.NewPaginatedResponse(items, p)
	resp.RequestID = c.GetString("request_id")
	c.JSON(http.StatusOK, resp)
}

// RequestExtension handles POST /api/v1/internments/:id/extensions.
func (h *InternmentHandler) RequestExtension(c *gin.Context) {
	var input internments.ExtensionInput
	if !bindJSON(c, &input) {
		return
	}
	in, err := h.service.RequestExtension(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, in)
}

// Finalize handles POST /api/v1/internments/:id/finalize.
func (h *InternmentHandler) Finalize(c *gin.Context) {
	var input internments.FinalizeInput
	if !bindJSON(c, &input) {
		return
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		input.ProviderID = claims.ProviderID
	}
	in, err := h.service.Finalize(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, in)
}

// SendToAudit handles POST /api/v1/internments/:id/audit.
func (h *InternmentHandler) SendToAudit(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &body) {
		return
	}
	userID := ""
	if claims := middleware.ClaimsFrom(c); claims != nil {
		userID = claims.UserID
	}
	in, err := h.service.SendToAudit(c.Request.Context(), c.Param("id"), userID, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, in)
}

// ResolveExtension handles POST /api/v1/internments/:id/extensions/:extID/resolve.
func (h *InternmentHandler) ResolveExtension(c *gin.Context) {
	var input internments.ResolveExtensionInput
	if !bindJSON(c, &input) {
		return
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		input.AuditorID = claims.UserID
	}
	in, err := h.service.ResolveExtension(c.Request.Context(), c.Param("id"), c.Param("extID"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, in)
}
