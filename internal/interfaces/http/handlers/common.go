// Package handlers implements the gin handlers of the autofragment HTTP API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/pkg/errors"
)

// RequestIDKey is the gin context key the request-id middleware stores under.
const RequestIDKey = "request_id"

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps err to an HTTP status through its error code.  Errors
// without a code are masked as internal errors.
func writeAppError(c *gin.Context, err error) {
	resp := ErrorResponse{RequestID: c.GetString(RequestIDKey)}

	var ae *errors.AppError
	if !errors.As(err, &ae) || ae.Code == errors.CodeUnknown {
		resp.Code = string(errors.ErrCodeInternal)
		resp.Message = "internal server error"
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		return
	}

	resp.Code = string(ae.Code)
	resp.Message = ae.Message
	resp.Detail = ae.Detail
	status := errors.HTTPStatusForCode(ae.Code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into v, answering 413 or 400 itself
// when it cannot.
func bindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:      string(errors.ErrCodeBadRequest),
			Message:   "request body too large",
			RequestID: c.GetString(RequestIDKey),
		})
		return false
	}
	writeAppError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body").WithDetail(err.Error()))
	return false
}

//Personal.AI order the ending
