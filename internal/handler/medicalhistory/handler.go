package medicalhistory

import (
	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	historysvc "github.com/medrec/clinic-api/internal/service/medicalhistory"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *historysvc.Service
}

func NewHandler(svc *historysvc.Service) *Handler {
	return &Handler{svc: svc}
}

// Histories are keyed by their owning patient; there is exactly one
// per patient.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/histories", h.create)
	rg.GET("/histories/:patientId", h.get)
	rg.PUT("/histories/:patientId", h.update)
	rg.DELETE("/histories/:patientId", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req model.CreateMedicalHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid history payload", err))
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
	doc, err := h.svc.GetByPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) update(c *gin.Context) {
	var payload model.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid update payload", err))
		return
	}
	doc, err := h.svc.Update(c.Request.Context(), c.Param("patientId"), payload)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("patientId")); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}
