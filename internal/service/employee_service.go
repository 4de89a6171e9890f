package service

import (
	"context"
	"errors"
	"fmt"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"
	"DocTrack/internal/repository"
	"DocTrack/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmployeeService admin 对本部门成员的管理：邀请、列表、文档定向授权
type EmployeeService struct {
	db     *gorm.DB
	users  repository.UserRepository
	cfg    *conf.AuthConfig
	notify Notifier
	logger *zap.Logger
}

func NewEmployeeService(db *gorm.DB, users repository.UserRepository, cfg *conf.AuthConfig, notify Notifier, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		db:     db,
		users:  users,
		cfg:    cfg,
		notify: notify,
		logger: logger.With(zap.String("service", "employee")),
	}
}

// Invite 生成随机初始密码，建 department_user 账号并发送邀请
// 新员工归属 admin 的部门，请求里不收部门字段
func (s *EmployeeService) Invite(ctx context.Context, admin *model.User, req dto.InviteEmployeeReq) (*model.User, error) {
	if s.users.EmailExists(req.Email) {
		return nil, fmt.Errorf("user with this email already exists: %w", ErrConflict)
	}

	rawPassword, err := utils.RandomPassword(8)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(rawPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	employee := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleDepartmentUser,
		Department:   admin.Department,
		IsActive:     true,
	}
	if err := s.users.Create(employee); err != nil {
		return nil, err
	}

	// 邀请信里带初始密码，发送失败不回滚账号（admin 可以线下转达）
	if err := s.notify.Send(ctx, employee.Email, TplEmployeeInvite, map[string]string{
		"name":          employee.Name,
		"department":    employee.Department,
		"invited_by":    admin.Name,
		"temp_password": rawPassword,
	}); err != nil {
		s.logger.Warn("invite send failed", zap.String("email", employee.Email), zap.Error(err))
	}

	return employee, nil
}

// DepartmentEmployees admin 本部门的 department_user 列表
func (s *EmployeeService) DepartmentEmployees(ctx context.Context, admin *model.User) ([]model.User, error) {
	return s.users.ListByDepartment(admin.Department, model.RoleDepartmentUser)
}

// AssignUsers 给 self 级别文档加定向可见用户（追加语义，不覆盖已有授权）
// 文档和全部被授权人都必须在 admin 自己的部门
func (s *EmployeeService) AssignUsers(ctx context.Context, admin *model.User, documentID uint, userIDs []uint) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if doc.Department != admin.Department {
		return nil, fmt.Errorf("can only assign users within your own department's documents: %w", ErrForbidden)
	}

	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != len(userIDs) {
		return nil, fmt.Errorf("some users do not exist: %w", ErrNotFound)
	}
	for i := range users {
		if users[i].Department != admin.Department {
			return nil, fmt.Errorf("some users do not belong to your department: %w", ErrInvalidInput)
		}
	}

	// many2many 关联的 Append 自带去重（联合主键冲突即忽略）
	if err := s.db.WithContext(ctx).Model(&doc).
		Association("AllowedUsers").Append(users); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("AllowedUsers").
		Preload("UploadedBy").
		First(&doc, documentID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}
