package handler

import (
	"net/http"
	"strconv"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	docs *service.DocumentService
}

func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, err)
		return 0, false
	}
	return uint(id), true
}

// openUpload 从 multipart 里取 file 字段，Service 只认 Reader
func openUpload(c *gin.Context) (*service.FileUpload, func(), bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Message: "Document file is required",
			Success: false,
		})
		return nil, nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, err)
		return nil, nil, false
	}

	upload := &service.FileUpload{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      f,
	}
	return upload, func() { _ = f.Close() }, true
}

// Upload POST /api/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req dto.UploadDocumentReq
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err)
		return
	}

	upload, closeFn, ok := openUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	user := middleware.CurrentUser(c)
	doc, err := h.docs.Upload(c.Request.Context(), user, req, *upload)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "Document uploaded successfully", doc)
}

// List GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	var q dto.ListDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	docs, pagination, counts, err := h.docs.List(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Documents retrieved successfully", gin.H{
		"documents":     docs,
		"pagination":    pagination,
		"status_counts": counts,
	})
}

// Get GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	doc, err := h.docs.Get(c.Request.Context(), user, id)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Document retrieved successfully", doc)
}

// Versions GET /api/documents/:id/versions
func (h *DocumentHandler) Versions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	doc, err := h.docs.Versions(c.Request.Context(), user, id)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Document versions retrieved successfully", gin.H{
		"current_version": doc.CurrentVersion,
		"versions":        doc.Versions,
	})
}

// AddVersion POST /api/documents/:id/versions
func (h *DocumentHandler) AddVersion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.AddVersionReq
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err)
		return
	}

	upload, closeFn, ok := openUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	user := middleware.CurrentUser(c)
	doc, err := h.docs.AddVersion(c.Request.Context(), user, id, req.ChangeDescription, *upload)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "New version added successfully", doc)
}

// UpdateStatus PATCH /api/documents/:id/status （admin）
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateDocumentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	doc, err := h.docs.UpdateStatus(c.Request.Context(), user, id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Document status updated successfully", doc)
}

// Delete DELETE /api/documents/:id （软删除 = 归档）
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.docs.Archive(c.Request.Context(), user, id, c.Query("reason")); err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Document deleted successfully", nil)
}

// Shared GET /api/documents/shared （admin）
func (h *DocumentHandler) Shared(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docs, err := h.docs.SharedWithDepartment(c.Request.Context(), user)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Shared documents retrieved successfully", docs)
}
