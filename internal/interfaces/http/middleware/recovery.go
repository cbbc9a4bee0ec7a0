package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/pkg/errors"
)

// Recovery turns a handler panic into a JSON 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic while serving request",
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", c.GetString(requestIDKey)),
			logging.String("panic", fmt.Sprint(recovered)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Code:      string(errors.ErrCodeInternal),
			Message:   "internal server error",
			RequestID: c.GetString(requestIDKey),
		})
	})
}

// BodyLimit caps request bodies at limit bytes.  Reads past the limit fail
// with *http.MaxBytesError, which the handlers answer with 413.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

//Personal.AI order the ending
