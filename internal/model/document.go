package model

import (
	"time"

	"gorm.io/datatypes"
)

// 文档状态机: Draft -> Pending Review -> Under Review -> Approved | Rejected
// 上传新版本会把 Approved/Rejected 拉回 Pending Review
const (
	DocStatusDraft         = "Draft"
	DocStatusPendingReview = "Pending Review"
	DocStatusUnderReview   = "Under Review"
	DocStatusApproved      = "Approved"
	DocStatusRejected      = "Rejected"
)

// 访问级别
//   - self: 仅上传者 + allowedUsers 显式授权
//   - department: 同部门全员可见
//   - cross-department: 仅 allowedDepartments 内的部门管理员可见
const (
	AccessSelf            = "self"
	AccessDepartment      = "department"
	AccessCrossDepartment = "cross-department"
)

const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical" // 仅合规任务使用
)

// DocumentVersion 文档版本，versionNumber 单调递增
type DocumentVersion struct {
	BaseModel
	DocumentID        uint      `gorm:"index;not null" json:"document_id"`
	FileURL           string    `gorm:"not null" json:"file_url"`
	StorageKey        string    `gorm:"not null" json:"-"` // MinIO 对象名，删除补偿时用
	UploadedByID      uint      `gorm:"index;not null" json:"uploaded_by_id"`
	UploadedBy        *User     `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	VersionNumber     int       `gorm:"not null" json:"version_number"`
	UploadedAt        time.Time `json:"uploaded_at"`
	ChangeDescription string    `gorm:"size:500" json:"change_description"`
}

type Document struct {
	BaseModel
	Title       string `gorm:"size:200;not null;index" json:"title"`
	Description string `gorm:"size:1000;not null" json:"description"`

	// 归属部门 = 上传者的部门，客户端不可指定（防止越权挂到别的部门）
	Department string `gorm:"size:100;not null;index" json:"department"`

	Status string `gorm:"size:30;default:'Pending Review';index" json:"status"`

	Category string `gorm:"size:100" json:"category"`
	Language string `gorm:"size:10" json:"language"`
	Priority string `gorm:"size:10;default:'Medium'" json:"priority"`

	Tags datatypes.JSONSlice[string] `json:"tags"`

	// 版本历史，CurrentVersion 始终等于最大的 versionNumber
	Versions       []DocumentVersion `gorm:"foreignKey:DocumentID" json:"versions"`
	CurrentVersion int               `gorm:"default:1" json:"current_version"`

	UploadedByID uint  `gorm:"index;not null" json:"uploaded_by_id"`
	UploadedBy   *User `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`

	// 评审记录，上传新版本时清空
	ReviewedByID   *uint      `json:"reviewed_by_id"`
	ReviewedBy     *User      `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
	ReviewComments string     `gorm:"size:1000" json:"review_comments"`

	// 访问控制
	Access       string `gorm:"size:20;default:'self';index" json:"access"`
	AllowedUsers []User `gorm:"many2many:document_allowed_users;" json:"allowed_users,omitempty"`
	// 部门名列表，仅 access=cross-department 时有意义
	AllowedDepartments datatypes.JSONSlice[string] `json:"allowed_departments"`

	// 软删除标记（归档），不做物理删除
	IsArchived    bool   `gorm:"default:false;index" json:"is_archived"`
	ArchiveReason string `gorm:"size:500" json:"archive_reason"`
}

// LatestVersion 返回最后一个版本，versions 为空时返回 nil
func (d *Document) LatestVersion() *DocumentVersion {
	if len(d.Versions) == 0 {
		return nil
	}
	return &d.Versions[len(d.Versions)-1]
}
