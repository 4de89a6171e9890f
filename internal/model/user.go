package model

import "time"

// 系统只有两种角色：
//   - admin: 部门管理员（部门级权限，不是全局超管），每个部门仅允许一个
//   - department_user: 普通部门成员
const (
	RoleAdmin          = "admin"
	RoleDepartmentUser = "department_user"
)

type User struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	Role string `gorm:"size:20;default:'department_user';index" json:"role"`

	// 所属部门，同时也是最粗粒度的访问控制边界
	Department string `gorm:"size:100;index" json:"department"`

	// 软禁用：false 时不能登录，已签发的 Token 下次请求即失效
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
