package file

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medrec/clinic-api/internal/handler"
	"github.com/medrec/clinic-api/internal/model"
	filesvc "github.com/medrec/clinic-api/internal/service/file"
	pkgerrors "github.com/medrec/clinic-api/pkg/errors"
)

type Handler struct {
	svc *filesvc.Service
}

func NewHandler(svc *filesvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/files", h.upload)
	rg.GET("/files", h.list)
	rg.GET("/files/:id", h.meta)
	rg.GET("/files/:id/content", h.content)
	rg.POST("/files/:id/download", h.download)
	rg.DELETE("/files/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		handler.Fail(c, pkgerrors.Validation("multipart field 'file' is required", err))
		return
	}
	req := model.UploadFileRequest{
		PatientID:   c.PostForm("patientId"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	f, err := fileHeader.Open()
	if err != nil {
		handler.Fail(c, pkgerrors.Internal(err))
		return
	}
	defer f.Close()

	doc, err := h.svc.Upload(c.Request.Context(), req, f)
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
	patientID := c.Query("patientId")
	if patientID == "" {
		handler.Fail(c, pkgerrors.Validation("patientId is required", nil))
		return
	}
	var opts model.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		handler.Fail(c, pkgerrors.Validation("invalid list options", err))
		return
	}
	docs, err := h.svc.ListByPatient(c.Request.Context(), patientID, opts)
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

func (h *Handler) download(c *gin.Context) {
	force := c.Query("force") == "true"
	path, err := h.svc.Download(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{"path": path})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, nil)
}
