package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/application/escalation"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// JobsHandler serves the externally triggered scheduled-job endpoints. The
// bodies are the bare run summaries so external schedulers can parse the
// counts directly.
type JobsHandler struct {
	service *escalation.Service
}

// NewJobsHandler builds a JobsHandler.
func NewJobsHandler(service *escalation.Service) (*JobsHandler, error) {
	if service == nil {
		return nil, errors.InvalidParam("escalation service cannot be nil")
	}
	return &JobsHandler{service: service}, nil
}

// InactivateInternments handles POST /jobs/internments/inactivate.
func (h *JobsHandler) InactivateInternments(c *gin.Context) {
	summary, err := h.service.InactivateStale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// FinalizeInternments handles POST /jobs/internments/finalize.
func (h *JobsHandler) FinalizeInternments(c *gin.Context) {
	summary, err := h.service.FinalizeExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExpireQuotations handles POST /jobs/medications/expire-quotations.
func (h *JobsHandler) ExpireQuotations(c *gin.Context) {
	summary, err := h.service.ExpireQuotations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
