package handler

import (
	"net/http"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Stats GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	var q dto.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	data, err := h.svc.Stats(c.Request.Context(), user, q)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Dashboard statistics retrieved successfully", data)
}

// DepartmentStats GET /api/dashboard/department/:department
func (h *DashboardHandler) DepartmentStats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	data, err := h.svc.DepartmentStats(c.Request.Context(), user, c.Param("department"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Department statistics retrieved successfully", data)
}
