package model

import "time"

// 合规任务状态机: Pending -> On Track -> Overdue -> Resolved
// Overdue 由定时扫描（非用户操作）从 Pending/On Track 推进
const (
	ComplianceStatusPending  = "Pending"
	ComplianceStatusOnTrack  = "On Track"
	ComplianceStatusOverdue  = "Overdue"
	ComplianceStatusResolved = "Resolved"
)

type ComplianceTask struct {
	BaseModel
	DocumentID uint      `gorm:"index;not null" json:"document_id"`
	Document   *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`

	// 部门继承自所属文档，不从请求体读取
	Department string `gorm:"size:100;index" json:"department"`

	DueDate time.Time `gorm:"index;not null" json:"due_date"`
	Status  string    `gorm:"size:20;default:'Pending';index" json:"status"`

	ComplianceType string `gorm:"size:100;not null" json:"compliance_type"`
	Description    string `gorm:"size:1000;not null" json:"description"`
	Priority       string `gorm:"size:10;default:'Medium';index" json:"priority"`

	AssignedToID uint  `gorm:"index;not null" json:"assigned_to_id"`
	AssignedTo   *User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	// 提醒派发的记账字段
	Reminders        bool       `gorm:"default:true" json:"reminders"`
	ReminderSent     bool       `gorm:"default:false" json:"reminder_sent"`
	LastReminderSent *time.Time `json:"last_reminder_sent"`

	// 不变量: Status=Resolved 当且仅当 ResolvedAt/ResolvedBy 非空
	ResolutionNotes string     `gorm:"size:1000" json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolvedByID    *uint      `json:"resolved_by_id"`
	ResolvedBy      *User      `gorm:"foreignKey:ResolvedByID" json:"resolved_by,omitempty"`

	// 软删除标记
	IsActive bool `gorm:"default:true;index" json:"is_active"`
}

// IsOverdue 派生判定：过期且未解决（不依赖存储的 Status）
func (t *ComplianceTask) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != ComplianceStatusResolved
}
