package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{pkgerrors.Unauthenticated(), http.StatusUnauthorized},
		{pkgerrors.Unauthorized("read", "patient"), http.StatusForbidden},
		{pkgerrors.Validation("bad payload", nil), http.StatusBadRequest},
		{pkgerrors.NotFound("patient"), http.StatusNotFound},
		{pkgerrors.Conflict("duplicate"), http.StatusConflict},
		{pkgerrors.Internal(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, CodeFor(tc.err), tc.err.Error())
	}
}

func TestFailHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, pkgerrors.Internal(errors.New("pq: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusInternalServerError, env.Code)
	assert.Empty(t, env.Message)
}

func TestFailExposesClientFaultMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, pkgerrors.NotFound("patient"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Message)
}

func TestOKEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, map[string]string{"firstName": "Jane"})

	assert.Equal(t, http.StatusOK, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Code)
	require.NotNil(t, env.Data)
}
