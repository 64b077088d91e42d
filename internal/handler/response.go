package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

// Envelope is the single response shape of the boundary: {code, data}
// on success, {code, message} on failure. Callers branch on code
// before trusting data.
type Envelope struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Data: data})
}

// Fail translates an error kind into the wire code. Internal detail
// stays on the server side of the boundary.
func Fail(c *gin.Context, err error) {
	code := CodeFor(err)
	msg := ""
	if code != http.StatusInternalServerError {
		msg = err.Error()
	}
	c.JSON(code, Envelope{Code: code, Message: msg})
}

func CodeFor(err error) int {
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case pkgerrors.KindUnauthorized:
		return http.StatusForbidden
	case pkgerrors.KindValidation:
		return http.StatusBadRequest
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
