// Package handlers contains the gin HTTP handlers for the claims API:
// internments, medication requests, notifications, public quotation access,
// scheduled-job triggers and health probes.
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

// respond writes a success envelope with the request ID stamped on it.
func respond(c *gin.Context, status int, data interface{}) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = c.GetString("request_id")
	c.JSON(status, resp)
}

// respondError maps an application error onto the HTTP status table and the
// standard error envelope. Unknown (non-AppError) failures are masked as 500.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := errors.DefaultMessageForCode(code)
	var detail string
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		detail = appErr.Detail
	} else if status >= http.StatusInternalServerError {
		message = "internal server error"
	}

	resp := common.NewErrorResponse(string(code), message)
	if detail != "" {
		resp.Error.Details = map[string]interface{}{"detail": detail}
	}
	resp.RequestID = c.GetString("request_id")
	c.JSON(status, resp)
}

// bindJSON decodes the request body, translating decode failures into the
// standard validation error.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").WithCause(err))
		return false
	}
	return true
}

// parsePagination reads page/page_size query parameters with defaults.
func parsePagination(c *gin.Context) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Page = n
		}
	}
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.PageSize = n
		}
	}
	return p
}
