package handler

import (
	"net/http"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type EmployeeHandler struct {
	svc *service.EmployeeService
}

func NewEmployeeHandler(svc *service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

// Invite POST /api/employees/invite （admin）
// 新员工吃随机初始密码，归属邀请人的部门
func (h *EmployeeHandler) Invite(c *gin.Context) {
	var req dto.InviteEmployeeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	employee, err := h.svc.Invite(c.Request.Context(), admin, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "Employee invited successfully", gin.H{
		"id":         employee.ID,
		"name":       employee.Name,
		"email":      employee.Email,
		"role":       employee.Role,
		"department": employee.Department,
	})
}

// DepartmentEmployees GET /api/employees/department-employees （admin）
func (h *EmployeeHandler) DepartmentEmployees(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	employees, err := h.svc.DepartmentEmployees(c.Request.Context(), admin)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Department employees retrieved successfully", employees)
}

// AssignUsers POST /api/employees/assign-document/:id （admin）
// 把同部门用户追加进文档的 allowedUsers 白名单
func (h *EmployeeHandler) AssignUsers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.AssignUsersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	doc, err := h.svc.AssignUsers(c.Request.Context(), admin, id, req.UserIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Users assigned to document successfully", doc)
}
