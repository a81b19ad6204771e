package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/application/medications"
	"github.com/saludplena/claims-engine/internal/domain/medication"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// PublicQuotationHandler serves the token-authenticated pharmacy endpoints.
// These routes carry no session; the single-use token in the URL is the only
// credential, so every failure mode is reported without leaking state.
type PublicQuotationHandler struct {
	service *medications.Service
}

// NewPublicQuotationHandler builds a PublicQuotationHandler.
func NewPublicQuotationHandler(service *medications.Service) (*PublicQuotationHandler, error) {
	if service == nil {
		return nil, errors.InvalidParam("medications service cannot be nil")
	}
	return &PublicQuotationHandler{service: service}, nil
}

// submissionBody is the pharmacy-facing submission payload.
type submissionBody struct {
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
	Availability string  `json:"availability"`
	Notes        string  `json:"notes"`
}

// Get handles GET /public/quotations/:token.
func (h *PublicQuotationHandler) Get(c *gin.Context) {
	view, err := h.service.GetPublicQuotation(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// Submit handles POST /public/quotations/:token.
func (h *PublicQuotationHandler) Submit(c *gin.Context) {
	var body submissionBody
	if !bindJSON(c, &body) {
		return
	}
	view, err := h.service.SubmitQuotation(c.Request.Context(), c.Param("token"), medication.QuotationSubmission{
		UnitPrice:    body.UnitPrice,
		TotalPrice:   body.TotalPrice,
		Availability: body.Availability,
		Notes:        body.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}
