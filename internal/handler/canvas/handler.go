package canvas

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	canvassvc "github.com/medrec/clinic-api/internal/service/canvas"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *canvassvc.Service
}

func NewHandler(svc *canvassvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/canvases", h.save)
	rg.GET("/canvases", h.list)
	rg.GET("/canvases/:id", h.meta)
	rg.GET("/canvases/:id/content", h.content)
	rg.DELETE("/canvases/:id", h.delete)
}

func (h *Handler) save(c *gin.Context) {
	fileHeader, err := c.FormFile("content")
	if err != nil {
		handler.Fail(c, pkgerrors.Validation("multipart field 'content' is required", err))
		return
	}
	width, _ := strconv.Atoi(c.PostForm("width"))
	height, _ := strconv.Atoi(c.PostForm("height"))
	req := model.SaveCanvasRequest{
		Name:       c.PostForm("name"),
		Width:      width,
		Height:     height,
		ColorSpace: c.PostForm("colorSpace"),
	}

	f, err := fileHeader.Open()
	if err != nil {
		handler.Fail(c, pkgerrors.Internal(err))
		return
	}
	defer f.Close()

	doc, err := h.svc.Save(c.Request.Context(), req, f)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, doc)
}

func (h *Handler) meta(c *gin.Context) {
	doc, err := h.svc.GetMeta(c.Request.Context(), c.Param("id"))
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
	docs, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, docs)
}

func (h *Handler) content(c *gin.Context) {
	r, err := h.svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	defer r.Close()
	c.Status(http.StatusOK)
	c.Header("Content-Type", "application/octet-stream")
	io.Copy(c.Writer, r)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}
