package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"

	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

const problemMediaType = "application/problem+json"

type problemMapping struct {
	target  error
	status  int
	errType string
}

// problemMappings is checked in order; the first match wins
var problemMappings = []problemMapping{
	{domainwf.ErrNotFound, http.StatusNotFound, "not_found"},
	{domainwf.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{domainwf.ErrNotDesignatedApprover, http.StatusForbidden, "not_designated_approver"},
	{domainwf.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domainwf.ErrDuplicateVote, http.StatusConflict, "duplicate_vote"},
	{domainwf.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{domainwf.ErrDuplicateName, http.StatusConflict, "duplicate_name"},
	{domainwf.ErrDuplicateEdge, http.StatusConflict, "duplicate_edge"},
	{domainwf.ErrInvalidDefinition, http.StatusBadRequest, "validation_error"},
}

func writeProblem(c *gin.Context, status int, errType, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(errType).
		WithDetail(detail)

	c.Header("Content-Type", problemMediaType)
	c.JSON(status, problem)
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, "validation_error", detail)
}

// handleError maps workflow errors onto problem documents
func (h *Handlers) handleError(c *gin.Context, err error) {
	if domainwf.IsConflict(err) {
		h.logger.Info("Request conflicts with workflow state", "path", c.Request.URL.Path, "error", err.Error())
	}

	for _, m := range problemMappings {
		if errors.Is(err, m.target) {
			writeProblem(c, m.status, m.errType, err.Error())
			return
		}
	}

	h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)

	problem := problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(c.Request.URL.Path).
		WithType("internal_error")

	c.Header("Content-Type", problemMediaType)
	c.JSON(http.StatusInternalServerError, problem)
}
