package handler

import (
	"net/http"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type ComplianceHandler struct {
	svc *service.ComplianceService
}

func NewComplianceHandler(svc *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

// Create POST /api/compliance
func (h *ComplianceHandler) Create(c *gin.Context) {
	var req dto.CreateComplianceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.Create(c.Request.Context(), user, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "Compliance task created successfully", task)
}

// List GET /api/compliance
func (h *ComplianceHandler) List(c *gin.Context) {
	var q dto.ListComplianceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	tasks, pagination, counts, err := h.svc.List(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance tasks retrieved successfully", gin.H{
		"tasks":         tasks,
		"pagination":    pagination,
		"status_counts": counts,
	})
}

// Get GET /api/compliance/:id
func (h *ComplianceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.Get(c.Request.Context(), user, id)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance task retrieved successfully", task)
}

// UpdateStatus PATCH /api/compliance/:id/status
func (h *ComplianceHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateComplianceStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.UpdateStatus(c.Request.Context(), user, id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance status updated successfully", task)
}

// Update PUT /api/compliance/:id
func (h *ComplianceHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateComplianceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.Update(c.Request.Context(), user, id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance task updated successfully", task)
}

// Delete DELETE /api/compliance/:id
func (h *ComplianceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.Delete(c.Request.Context(), user, id); err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance task deleted successfully", nil)
}

// Overdue GET /api/compliance/overdue
func (h *ComplianceHandler) Overdue(c *gin.Context) {
	user := middleware.CurrentUser(c)
	tasks, err := h.svc.Overdue(c.Request.Context(), user)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Overdue compliance tasks retrieved successfully", tasks)
}

// DueSoon GET /api/compliance/due-soon
func (h *ComplianceHandler) DueSoon(c *gin.Context) {
	user := middleware.CurrentUser(c)
	tasks, err := h.svc.DueSoon(c.Request.Context(), user)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Due soon compliance tasks retrieved successfully", tasks)
}

// Stats GET /api/compliance/stats
func (h *ComplianceHandler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	overview, err := h.svc.Stats(c.Request.Context(), user)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Compliance statistics retrieved successfully", overview)
}
