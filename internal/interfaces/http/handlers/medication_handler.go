package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/application/medications"
	"github.com/saludplena/claims-engine/internal/interfaces/http/middleware"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// MedicationHandler serves the high-cost medication request endpoints.
type MedicationHandler struct {
	service *medications.Service
}

// NewMedicationHandler builds a MedicationHandler.
func NewMedicationHandler(service *medications.Service) (*MedicationHandler, error) {
	if service == nil {
		return nil, errors.InvalidParam("medications service cannot be nil")
	}
	return &MedicationHandler{service: service}, nil
}

// Create handles POST /api/v1/medications.
func (h *MedicationHandler) Create(c *gin.Context) {
	var input medications.CreateInput
	if !bindJSON(c, &input) {
		return
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		input.RequestedBy = claims.UserID
	}
	req, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, req)
}

// Get handles GET /api/v1/medications/:id.
func (h *MedicationHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, req)
}

// SendToQuotation handles POST /api/v1/medications/:id/quotations.
func (h *MedicationHandler) SendToQuotation(c *gin.Context) {
	var input medications.SendToQuotationInput
	if !bindJSON(c, &input) {
		return
	}
	req, err := h.service.SendToQuotation(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, req)
}

// Authorize handles POST /api/v1/medications/:id/authorize.
func (h *MedicationHandler) Authorize(c *gin.Context) {
	var input medications.AuthorizeInput
	if !bindJSON(c, &input) {
		return
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		input.AuditorID = claims.UserID
	}
	req, err := h.service.Authorize(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, req)
}
