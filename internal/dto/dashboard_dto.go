package dto

import "time"

// DailyCount 按天聚合的计数点
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

type DashboardOverview struct {
	DocumentsUploadedToday   int64 `json:"documents_uploaded_today"`
	TotalDocuments           int64 `json:"total_documents"`
	PendingCompliance        int64 `json:"pending_compliance"`
	OverdueCompliance        int64 `json:"overdue_compliance"`
	ActiveDepartments        int   `json:"active_departments"`
	KnowledgeBaseItems       int64 `json:"knowledge_base_items"`
	ComplianceCompletionRate int   `json:"compliance_completion_rate"`
	DocumentApprovalRate     int   `json:"document_approval_rate"`
}

type DashboardTrends struct {
	WeeklyUploads []DailyCount `json:"weekly_uploads"`
	// 按状态分组的 30 天新建任务曲线
	ComplianceTrends map[string][]DailyCount `json:"compliance_trends"`
}

type RecentDocument struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UploadedBy string    `json:"uploaded_by"`
}

type UpcomingCompliance struct {
	ID             uint      `json:"id"`
	DocumentID     uint      `json:"document_id"`
	DocumentTitle  string    `json:"document_title"`
	DueDate        time.Time `json:"due_date"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	ComplianceType string    `json:"compliance_type"`
	AssignedTo     string    `json:"assigned_to"`
}

type DepartmentStat struct {
	Department string `json:"department"`
	Documents  int64  `json:"documents"`
	Compliance int64  `json:"compliance"`
	Users      int64  `json:"users"`
}

// DashboardData /dashboard/stats 的完整负载
type DashboardData struct {
	Overview DashboardOverview `json:"overview"`
	Trends   DashboardTrends   `json:"trends"`
	Recent   struct {
		RecentDocuments    []RecentDocument     `json:"recent_documents"`
		UpcomingCompliance []UpcomingCompliance `json:"upcoming_compliance"`
	} `json:"recent"`
	// 仅 admin 返回
	DepartmentStats []DepartmentStat `json:"department_stats,omitempty"`
}

type TopUploader struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	DocumentCount int64  `json:"document_count"`
}

// DepartmentStatsData /dashboard/department/:department 的负载
type DepartmentStatsData struct {
	Department         string        `json:"department"`
	TotalDocuments     int64         `json:"total_documents"`
	DocumentsByStatus  []StatusCount `json:"documents_by_status"`
	ComplianceByStatus []StatusCount `json:"compliance_by_status"`
	MonthlyTrends      []DailyCount  `json:"monthly_trends"` // Date 为 YYYY-MM
	TopUsers           []TopUploader `json:"top_users"`
}
