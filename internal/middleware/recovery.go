package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/pkg/logger"
)

// Recovery turns panics into the generic failure envelope. Nothing
// from the panic value crosses the boundary.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(nil, "panic recovered", "panic", r, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, handler.Envelope{
					Code: http.StatusInternalServerError,
				})
			}
		}()
		c.Next()
	}
}
