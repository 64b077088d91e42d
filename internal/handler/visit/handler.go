package visit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	visitsvc "github.com/medrec/clinic-api/internal/service/visit"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *visitsvc.Service
}

func NewHandler(svc *visitsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/visits", h.create)
	rg.GET("/visits", h.list)
	rg.GET("/visits/:id", h.get)
	rg.PUT("/visits/:id", h.update)
	rg.DELETE("/visits/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid visit payload", err))
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

// list serves both patient-scoped listing and date-range queries:
// ?patientId=… [&from=unix&to=unix]
func (h *Handler) list(c *gin.Context) {
	var opts model.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid list options", err))
		return
	}
	patientID := c.Query("patientId")

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" || toStr != "" {
		from, err1 := strconv.ParseInt(fromStr, 10, 64)
		to, err2 := strconv.ParseInt(toStr, 10, 64)
		if err1 != nil || err2 != nil {
			handler.Fail(c, pkgerrors.Validation("from and to must be unix seconds", nil))
			return
		}
		docs, err := h.svc.ListByDateRange(c.Request.Context(), patientID, from, to, opts)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		handler.OK(c, docs)
		return
	}

	if patientID == "" {
		handler.Fail(c, pkgerrors.Validation("patientId is required", nil))
		return
	}
	docs, err := h.svc.ListByPatient(c.Request.Context(), patientID, opts)
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
