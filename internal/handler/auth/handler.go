package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	authsvc "github.com/medrec/clinic-api/internal/service/auth"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *authsvc.Service
}

func NewHandler(svc *authsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/logout", h.logout)
	rg.GET("/auth/me", h.me)
}

func (h *Handler) login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid login payload", err))
		return
	}
	result, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, result)
}

func (h *Handler) logout(c *gin.Context) {
	handler.OK(c, gin.H{"loggedOut": h.svc.Logout(c.Request.Context())})
}

func (h *Handler) me(c *gin.Context) {
	principal, err := h.svc.CurrentUser(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, principal)
}
