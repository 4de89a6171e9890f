package service

import (
	"errors"
	"fmt"
	"time"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"
	"DocTrack/internal/repository"
	"DocTrack/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(req dto.RegisterReq) (*dto.LoginResp, error)
	Login(req dto.LoginReq) (*dto.LoginResp, error)
	GetProfile(userID uint) (*dto.UserResp, error)
	UpdateProfile(userID uint, req dto.UpdateProfileReq) (*dto.UserResp, error)
	ChangePassword(userID uint, req dto.ChangePasswordReq) error
}

type authService struct {
	repo   repository.UserRepository
	cfg    *conf.AuthConfig
	logger *zap.Logger
}

func NewAuthService(repo repository.UserRepository, cfg *conf.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		cfg:    cfg,
		logger: logger.With(zap.String("service", "auth")),
	}
}

// Register 注册部门管理员
// 部门的第一个注册者即该部门 admin，之后的成员只能由 admin 邀请进来
func (s *authService) Register(req dto.RegisterReq) (*dto.LoginResp, error) {
	// 1. 业务检查：邮箱是否已占用
	if s.repo.EmailExists(req.Email) {
		return nil, fmt.Errorf("user already exists, please login: %w", ErrConflict)
	}

	// 2. 每个部门最多一个 admin
	if s.repo.DepartmentAdminExists(req.Department) {
		return nil, fmt.Errorf("an admin already exists for the %s department: %w", req.Department, ErrConflict)
	}

	// 3. 密码加密
	hash, err := utils.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}

	// 4. 落库，role 强制为 admin（不读客户端输入）
	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Department:   req.Department,
		IsActive:     true,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	s.logger.Info("department admin registered",
		zap.String("email", user.Email),
		zap.String("department", user.Department))

	// 5. 签发 Token
	token, err := utils.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	return &dto.LoginResp{Token: token, User: toUserResp(user)}, nil
}

func (s *authService) Login(req dto.LoginReq) (*dto.LoginResp, error) {
	// 1. 查用户（查不到和密码错误返回同一个错误，避免枚举邮箱）
	user, err := s.repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
		}
		return nil, err
	}

	// 2. 停用账号不允许登录
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated, please contact administrator: %w", ErrUnauthorized)
	}

	// 3. 比对密码
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	}

	// 4. 更新登录时间；失败只记日志，不影响登录
	if err := s.repo.TouchLastLogin(user.ID); err != nil {
		s.logger.Warn("touch last_login failed", zap.Error(err))
	}
	now := time.Now()
	user.LastLogin = &now

	// 5. 签发 Token
	token, err := utils.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	return &dto.LoginResp{Token: token, User: toUserResp(user)}, nil
}

func (s *authService) GetProfile(userID uint) (*dto.UserResp, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, err
	}
	resp := toUserResp(user)
	return &resp, nil
}

func (s *authService) UpdateProfile(userID uint, req dto.UpdateProfileReq) (*dto.UserResp, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Department != "" {
		user.Department = req.Department
	}
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}

	resp := toUserResp(user)
	return &resp, nil
}

func (s *authService) ChangePassword(userID uint, req dto.ChangePasswordReq) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return err
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return fmt.Errorf("current password is incorrect: %w", ErrInvalidInput)
	}

	hash, err := utils.HashPassword(req.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hashing failed: %w", err)
	}
	user.PasswordHash = hash
	return s.repo.Save(user)
}

func toUserResp(u *model.User) dto.UserResp {
	return dto.UserResp{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}
