package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/internal/export"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// ResultReader reads stored decomposition results.
type ResultReader interface {
	Get(ctx context.Context, runID string) (*molecule.DecompositionResult, error)
	List(ctx context.Context) ([]string, error)
	PresignedURL(ctx context.Context, runID string, expiry time.Duration) (string, error)
}

// ResultHandler serves stored results.
type ResultHandler struct {
	store ResultReader
}

// NewResultHandler creates a ResultHandler.
func NewResultHandler(store ResultReader) *ResultHandler {
	return &ResultHandler{store: store}
}

// List handles GET /api/v1/results.
func (h *ResultHandler) List(c *gin.Context) {
	ids, err := h.store.List(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": ids})
}

// Get handles GET /api/v1/results/:runID.
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.store.Get(c.Request.Context(), c.Param("runID"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Matrix handles GET /api/v1/results/:runID/matrix and streams the
// molecule by fragment count matrix as CSV.
func (h *ResultHandler) Matrix(c *gin.Context) {
	result, err := h.store.Get(c.Request.Context(), c.Param("runID"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteMatrixCSV(c.Writer, result); err != nil {
		_ = c.Error(err)
	}
}

// Download handles GET /api/v1/results/:runID/download by redirecting to a
// presigned object URL.
func (h *ResultHandler) Download(c *gin.Context) {
	u, err := h.store.PresignedURL(c.Request.Context(), c.Param("runID"), 0)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}

//Personal.AI order the ending
