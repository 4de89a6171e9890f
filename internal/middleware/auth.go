package middleware

import (
	"net/http"
	"strings"

	"DocTrack/internal/model"
	"DocTrack/internal/repository"
	"DocTrack/internal/utils"

	"github.com/gin-gonic/gin"
)

const ContextUserKey = "current_user"

// Auth 解析 Bearer Token 并回查数据库拿最新用户态
// 不直接信 Token 里的快照：被停用 / 被改角色的用户要立刻失效
func Auth(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Authentication required",
				"success": false,
			})
			return
		}

		claims, err := utils.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
				"success": false,
			})
			return
		}

		user, err := users.GetByID(claims.UserID)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Account not found or deactivated",
				"success": false,
			})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireAdmin 仅 admin 可过，挂在 Auth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Admin access required",
				"success": false,
			})
			return
		}
		c.Next()
	}
}

// RequireDepartmentAccess 校验路径参数 :department
// department_user 只能访问自己部门的数据
func RequireDepartmentAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Authentication required",
				"success": false,
			})
			return
		}
		if !user.IsAdmin() && user.Department != c.Param(param) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Access denied: You can only view your department's statistics",
				"success": false,
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文取 Auth 中间件放进去的用户
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
