package privilege

import (
	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	privilegesvc "github.com/medrec/clinic-api/internal/service/privilege"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *privilegesvc.Service
}

func NewHandler(svc *privilegesvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/privileges", h.create)
	rg.GET("/privileges", h.list)
	rg.GET("/privileges/:id", h.get)
	rg.PUT("/privileges/:id", h.update)
	rg.DELETE("/privileges/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req model.CreatePrivilegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid privilege payload", err))
		return
	}
	doc, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) list(c *gin.Context) {
	var opts model.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid list options", err))
		return
	}
	docs, err := h.svc.List(c.Request.Context(), c.Query("role"), opts)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, docs)
}

func (h *Handler) update(c *gin.Context) {
	var payload model.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid update payload", err))
		return
	}
	doc, err := h.svc.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}
