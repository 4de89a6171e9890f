package repository

import (
	"time"

	"DocTrack/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *model.User) error
	GetByID(id uint) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	EmailExists(email string) bool
	DepartmentAdminExists(department string) bool
	ListByDepartment(department, role string) ([]model.User, error)
	ActiveDepartments() ([]string, error)
	TouchLastLogin(id uint) error
	Save(user *model.User) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) EmailExists(email string) bool {
	var count int64
	r.db.Model(&model.User{}).Where("email = ?", email).Count(&count)
	return count > 0
}

// DepartmentAdminExists 系统不变量：每个部门最多一个 admin
func (r *userRepository) DepartmentAdminExists(department string) bool {
	var count int64
	r.db.Model(&model.User{}).
		Where("department = ? AND role = ?", department, model.RoleAdmin).
		Count(&count)
	return count > 0
}

func (r *userRepository) ListByDepartment(department, role string) ([]model.User, error) {
	var users []model.User
	q := r.db.Where("department = ? AND is_active = ?", department, true)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ActiveDepartments() ([]string, error) {
	var departments []string
	err := r.db.Model(&model.User{}).
		Where("is_active = ? AND department <> ''", true).
		Distinct().
		Pluck("department", &departments).Error
	return departments, err
}

func (r *userRepository) TouchLastLogin(id uint) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("last_login", time.Now()).Error
}

func (r *userRepository) Save(user *model.User) error {
	return r.db.Save(user).Error
}
