package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness. No auth: it leaks nothing.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Data: gin.H{"status": "ok"}})
}
