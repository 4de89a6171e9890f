package dto

import "time"

type CreateComplianceReq struct {
	DocumentID     uint      `json:"document_id" binding:"required"`
	DueDate        time.Time `json:"due_date" binding:"required"`
	ComplianceType string    `json:"compliance_type" binding:"required,max=100"`
	Description    string    `json:"description" binding:"required,max=1000"`
	AssignedTo     uint      `json:"assigned_to" binding:"required"`
	Priority       string    `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	Reminders      *bool     `json:"reminders"`
}

type ListComplianceQuery struct {
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit      int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sort_by,default=due_date" binding:"omitempty,oneof=due_date created_at priority status"`
	SortOrder  string `form:"sort_order,default=asc" binding:"omitempty,oneof=asc desc"`
	Status     string `form:"status" binding:"omitempty,oneof=Pending 'On Track' Overdue Resolved"`
	Priority   string `form:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	Department string `form:"department"`
	AssignedTo uint   `form:"assigned_to"`
	DueSoon    bool   `form:"due_soon"`
	Overdue    bool   `form:"overdue"`
}

type UpdateComplianceStatusReq struct {
	Status          string `json:"status" binding:"required,oneof=Pending 'On Track' Overdue Resolved"`
	ResolutionNotes string `json:"resolution_notes" binding:"max=1000"`
}

// UpdateComplianceReq 全量更新（PUT），零值字段不动
type UpdateComplianceReq struct {
	DueDate        *time.Time `json:"due_date"`
	ComplianceType string     `json:"compliance_type" binding:"omitempty,max=100"`
	Description    string     `json:"description" binding:"omitempty,max=1000"`
	AssignedTo     uint       `json:"assigned_to"`
	Priority       string     `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	Reminders      *bool      `json:"reminders"`
}

// ComplianceOverview /compliance/stats 的汇总块
type ComplianceOverview struct {
	TotalTasks     int64 `json:"total_tasks"`
	PendingTasks   int64 `json:"pending_tasks"`
	OnTrackTasks   int64 `json:"on_track_tasks"`
	OverdueTasks   int64 `json:"overdue_tasks"`
	ResolvedTasks  int64 `json:"resolved_tasks"`
	CompletionRate int   `json:"completion_rate"`
}
