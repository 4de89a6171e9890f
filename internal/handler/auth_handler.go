package handler

import (
	"net/http"

	"DocTrack/internal/dto"
	"DocTrack/internal/middleware"
	"DocTrack/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register POST /api/auth/register
// 只开放 admin 自注册；每个部门第一个注册的人成为该部门 admin
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	resp, err := h.svc.Register(req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "Registration successful", resp)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	resp, err := h.svc.Login(req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Login successful", resp)
}

// Profile GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	resp, err := h.svc.GetProfile(user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Profile retrieved successfully", resp)
}

// UpdateProfile PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	resp, err := h.svc.UpdateProfile(user.ID, req)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Profile updated successfully", resp)
}

// ChangePassword PUT /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.ChangePassword(user.ID, req); err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "Password changed successfully", nil)
}

// Logout POST /api/auth/logout
// Token 是无状态的，注销由客户端丢弃 Token 完成，这里只做确认应答
func (h *AuthHandler) Logout(c *gin.Context) {
	OK(c, http.StatusOK, "Logged out successfully", nil)
}
