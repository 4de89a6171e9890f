package handler

import (
	"net/http"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type KnowledgeHandler struct {
	svc *service.KnowledgeService
}

func NewKnowledgeHandler(svc *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// Index POST /api/knowledge-base/index
func (h *KnowledgeHandler) Index(c *gin.Context) {
	var req dto.IndexEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	entry, err := h.svc.Index(c.Request.Context(), user, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "Knowledge entry indexed successfully", entry)
}

// SemanticSearch GET /api/knowledge-base/search/semantic
// 向量服务不可用时显式报 503，由调用方自行改走全文检索
func (h *KnowledgeHandler) SemanticSearch(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	hits, err := h.svc.SemanticSearch(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}

	OK(c, http.StatusOK, "Search completed successfully", gin.H{
		"results": hits,
		"count":   len(hits),
	})
}

// TextSearch GET /api/knowledge-base/search/text
func (h *KnowledgeHandler) TextSearch(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	hits, err := h.svc.TextSearch(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Search completed successfully", gin.H{
		"results": hits,
		"count":   len(hits),
	})
}

// List GET /api/knowledge-base
func (h *KnowledgeHandler) List(c *gin.Context) {
	var q dto.ListEntriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	entries, pagination, categories, err := h.svc.List(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Knowledge entries retrieved successfully", gin.H{
		"entries":    entries,
		"pagination": pagination,
		"categories": categories,
	})
}

// Get GET /api/knowledge-base/:id
func (h *KnowledgeHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	entry, err := h.svc.Get(c.Request.Context(), user, id)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Knowledge entry retrieved successfully", entry)
}

// Update PUT /api/knowledge-base/:id
func (h *KnowledgeHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	entry, err := h.svc.Update(c.Request.Context(), user, id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Knowledge entry updated successfully", entry)
}

// Delete DELETE /api/knowledge-base/:id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.Delete(c.Request.Context(), user, id); err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Knowledge entry deleted successfully", nil)
}

// Stats GET /api/knowledge-base/stats
func (h *KnowledgeHandler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	stats, err := h.svc.Stats(c.Request.Context(), user)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Knowledge base statistics retrieved successfully", stats)
}
