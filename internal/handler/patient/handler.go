package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	patientsvc "github.com/medrec/clinic-api/internal/service/patient"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *patientsvc.Service
}

func NewHandler(svc *patientsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/patients", h.create)
	rg.GET("/patients", h.list)
	rg.GET("/patients/count", h.count)
	rg.GET("/patients/:id", h.get)
	rg.PUT("/patients/:id", h.update)
	rg.DELETE("/patients/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid patient payload", err))
		return
	}
	doc, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

// get returns one patient; ?embed=visits joins the visit side, which
// additionally requires the visit read privilege.
func (h *Handler) get(c *gin.Context) {
	var (
		doc model.Document
		err error
	)
	if c.Query("embed") == "visits" {
		doc, err = h.svc.GetWithVisits(c.Request.Context(), c.Param("id"))
	} else {
		doc, err = h.svc.Get(c.Request.Context(), c.Param("id"))
	}
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

	var (
		docs []model.Document
		err  error
	)
	if c.Query("embed") == "visits" {
		docs, err = h.svc.ListWithVisits(c.Request.Context(), opts)
	} else {
		docs, err = h.svc.List(c.Request.Context(), opts)
	}
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, docs)
}

func (h *Handler) count(c *gin.Context) {
	n, err := h.svc.EstimatedCount(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{"count": n})
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
