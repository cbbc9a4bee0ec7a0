package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/internal/application/fragment"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// FragmentHandler serves the decomposition endpoints.
type FragmentHandler struct {
	service fragment.Service
}

// NewFragmentHandler creates a FragmentHandler.
func NewFragmentHandler(svc fragment.Service) *FragmentHandler {
	return &FragmentHandler{service: svc}
}

// Decompose handles POST /api/v1/fragments/decompose.  Per-molecule failures
// are part of a 200 response; only request-level problems are errors.
func (h *FragmentHandler) Decompose(c *gin.Context) {
	var req molecule.DecomposeRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Decompose(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Count handles POST /api/v1/fragments/count.
func (h *FragmentHandler) Count(c *gin.Context) {
	var req molecule.CountRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Count(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

//Personal.AI order the ending
