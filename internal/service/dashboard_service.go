package service

import (
	"context"
	"time"

	"DocTrack/internal/dto"
	"DocTrack/internal/model"
	"DocTrack/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DashboardService 首页看板的聚合查询
// 按天/按月的分桶在应用侧做（窗口内数据量小，省掉数据库方言差异）
type DashboardService struct {
	db     *gorm.DB
	users  repository.UserRepository
	logger *zap.Logger
}

func NewDashboardService(db *gorm.DB, users repository.UserRepository, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		db:     db,
		users:  users,
		logger: logger.With(zap.String("service", "dashboard")),
	}
}

// deptFilter department_user 锁定在自己部门；admin 可选任意部门
func dashboardDeptFilter(user *model.User, requested string) (string, bool) {
	if !user.IsAdmin() {
		return user.Department, true
	}
	if requested != "" {
		return requested, true
	}
	return "", false
}

func applyDept(db *gorm.DB, column string, dept string, ok bool) *gorm.DB {
	if ok {
		return db.Where(column+" = ?", dept)
	}
	return db
}

func (s *DashboardService) Stats(ctx context.Context, user *model.User, q dto.DashboardQuery) (*dto.DashboardData, error) {
	dept, scoped := dashboardDeptFilter(user, q.Department)

	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sevenDaysAgo := now.AddDate(0, 0, -7)
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	var data dto.DashboardData

	docs := func() *gorm.DB {
		return applyDept(s.db.WithContext(ctx).Model(&model.Document{}), "department", dept, scoped)
	}
	tasks := func() *gorm.DB {
		return applyDept(s.db.WithContext(ctx).Model(&model.ComplianceTask{}), "department", dept, scoped).
			Where("is_active = ?", true)
	}
	kb := func() *gorm.DB {
		return applyDept(s.db.WithContext(ctx).Model(&model.KnowledgeEntry{}), "department", dept, scoped).
			Where("is_active = ?", true)
	}

	// --- 总览数字 ---
	if err := docs().Where("created_at >= ?", startOfToday).
		Count(&data.Overview.DocumentsUploadedToday).Error; err != nil {
		return nil, err
	}
	if err := docs().Count(&data.Overview.TotalDocuments).Error; err != nil {
		return nil, err
	}
	if err := tasks().Where("status IN ?",
		[]string{model.ComplianceStatusPending, model.ComplianceStatusOnTrack}).
		Count(&data.Overview.PendingCompliance).Error; err != nil {
		return nil, err
	}
	if err := tasks().Where("due_date < ? AND status <> ?", now, model.ComplianceStatusResolved).
		Count(&data.Overview.OverdueCompliance).Error; err != nil {
		return nil, err
	}
	if err := kb().Count(&data.Overview.KnowledgeBaseItems).Error; err != nil {
		return nil, err
	}

	departments, err := s.users.ActiveDepartments()
	if err != nil {
		return nil, err
	}
	data.Overview.ActiveDepartments = len(departments)

	// 完成率 / 通过率
	var totalCompliance, resolvedCompliance, approvedDocs int64
	if err := tasks().Count(&totalCompliance).Error; err != nil {
		return nil, err
	}
	if err := tasks().Where("status = ?", model.ComplianceStatusResolved).
		Count(&resolvedCompliance).Error; err != nil {
		return nil, err
	}
	if totalCompliance > 0 {
		data.Overview.ComplianceCompletionRate = int(resolvedCompliance * 100 / totalCompliance)
	}
	if err := docs().Where("status = ?", model.DocStatusApproved).
		Count(&approvedDocs).Error; err != nil {
		return nil, err
	}
	if data.Overview.TotalDocuments > 0 {
		data.Overview.DocumentApprovalRate = int(approvedDocs * 100 / data.Overview.TotalDocuments)
	}

	// --- 趋势 ---
	var weeklyTimes []time.Time
	if err := docs().Where("created_at >= ?", sevenDaysAgo).
		Pluck("created_at", &weeklyTimes).Error; err != nil {
		return nil, err
	}
	data.Trends.WeeklyUploads = bucketDaily(weeklyTimes, now, 7)

	type statusTime struct {
		Status    string
		CreatedAt time.Time
	}
	var trendRows []statusTime
	if err := tasks().Where("created_at >= ?", thirtyDaysAgo).
		Select("status", "created_at").
		Scan(&trendRows).Error; err != nil {
		return nil, err
	}
	trends := map[string][]dto.DailyCount{
		model.ComplianceStatusPending:  {},
		model.ComplianceStatusOnTrack:  {},
		model.ComplianceStatusOverdue:  {},
		model.ComplianceStatusResolved: {},
	}
	byStatusDay := map[string]map[string]int64{}
	for _, row := range trendRows {
		day := row.CreatedAt.Format("2006-01-02")
		if byStatusDay[row.Status] == nil {
			byStatusDay[row.Status] = map[string]int64{}
		}
		byStatusDay[row.Status][day]++
	}
	for status, days := range byStatusDay {
		if _, known := trends[status]; !known {
			continue
		}
		for i := 29; i >= 0; i-- {
			day := now.AddDate(0, 0, -i).Format("2006-01-02")
			if c, ok := days[day]; ok {
				trends[status] = append(trends[status], dto.DailyCount{Date: day, Count: c})
			}
		}
	}
	data.Trends.ComplianceTrends = trends

	// --- 最近动态 ---
	var recentDocs []model.Document
	if err := docs().Preload("UploadedBy").
		Order("created_at DESC").Limit(10).
		Find(&recentDocs).Error; err != nil {
		return nil, err
	}
	data.Recent.RecentDocuments = make([]dto.RecentDocument, 0, len(recentDocs))
	for i := range recentDocs {
		d := &recentDocs[i]
		rd := dto.RecentDocument{
			ID:         d.ID,
			Title:      d.Title,
			Status:     d.Status,
			Department: d.Department,
			CreatedAt:  d.CreatedAt,
		}
		if d.UploadedBy != nil {
			rd.UploadedBy = d.UploadedBy.Name
		}
		data.Recent.RecentDocuments = append(data.Recent.RecentDocuments, rd)
	}

	var upcoming []model.ComplianceTask
	if err := tasks().
		Preload("Document").
		Preload("AssignedTo").
		Where("due_date BETWEEN ? AND ?", now, now.AddDate(0, 0, 7)).
		Where("status <> ?", model.ComplianceStatusResolved).
		Order("due_date ASC").Limit(10).
		Find(&upcoming).Error; err != nil {
		return nil, err
	}
	data.Recent.UpcomingCompliance = make([]dto.UpcomingCompliance, 0, len(upcoming))
	for i := range upcoming {
		t := &upcoming[i]
		uc := dto.UpcomingCompliance{
			ID:             t.ID,
			DocumentID:     t.DocumentID,
			DueDate:        t.DueDate,
			Status:         t.Status,
			Priority:       t.Priority,
			ComplianceType: t.ComplianceType,
		}
		if t.Document != nil {
			uc.DocumentTitle = t.Document.Title
		}
		if t.AssignedTo != nil {
			uc.AssignedTo = t.AssignedTo.Name
		}
		data.Recent.UpcomingCompliance = append(data.Recent.UpcomingCompliance, uc)
	}

	// --- 分部门统计（仅 admin） ---
	if user.IsAdmin() {
		data.DepartmentStats = make([]dto.DepartmentStat, 0, len(departments))
		for _, d := range departments {
			stat := dto.DepartmentStat{Department: d}
			if err := s.db.WithContext(ctx).Model(&model.Document{}).
				Where("department = ?", d).Count(&stat.Documents).Error; err != nil {
				return nil, err
			}
			if err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
				Where("department = ? AND is_active = ?", d, true).
				Count(&stat.Compliance).Error; err != nil {
				return nil, err
			}
			if err := s.db.WithContext(ctx).Model(&model.User{}).
				Where("department = ? AND is_active = ?", d, true).
				Count(&stat.Users).Error; err != nil {
				return nil, err
			}
			data.DepartmentStats = append(data.DepartmentStats, stat)
		}
	}

	return &data, nil
}

// DepartmentStats 单部门的细分统计
// department_user 只能查自己的部门
func (s *DashboardService) DepartmentStats(ctx context.Context, user *model.User, department string) (*dto.DepartmentStatsData, error) {
	if err := CheckDepartmentAccess(user, department); err != nil {
		return nil, err
	}

	data := &dto.DepartmentStatsData{Department: department}

	docs := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.Document{}).Where("department = ?", department)
	}

	if err := docs().Count(&data.TotalDocuments).Error; err != nil {
		return nil, err
	}
	if err := docs().
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&data.DocumentsByStatus).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("department = ? AND is_active = ?", department, true).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&data.ComplianceByStatus).Error; err != nil {
		return nil, err
	}

	// 近 12 个月的上传量，按月分桶
	var monthlyTimes []time.Time
	if err := docs().Where("created_at >= ?", time.Now().AddDate(0, -12, 0)).
		Pluck("created_at", &monthlyTimes).Error; err != nil {
		return nil, err
	}
	byMonth := map[string]int64{}
	for _, t := range monthlyTimes {
		byMonth[t.Format("2006-01")]++
	}
	now := time.Now()
	for i := 11; i >= 0; i-- {
		month := now.AddDate(0, -i, 0).Format("2006-01")
		if c, ok := byMonth[month]; ok {
			data.MonthlyTrends = append(data.MonthlyTrends, dto.DailyCount{Date: month, Count: c})
		}
	}

	// 上传量 Top 10 用户
	if err := docs().
		Joins("JOIN users ON users.id = documents.uploaded_by_id").
		Select("users.name AS name, users.email AS email, COUNT(*) AS document_count").
		Group("users.id, users.name, users.email").
		Order("document_count DESC").
		Limit(10).
		Scan(&data.TopUsers).Error; err != nil {
		return nil, err
	}

	return data, nil
}

// bucketDaily 把时间点按天分桶，补齐窗口内没有数据的日期
func bucketDaily(times []time.Time, now time.Time, days int) []dto.DailyCount {
	byDay := map[string]int64{}
	for _, t := range times {
		byDay[t.Format("2006-01-02")]++
	}
	out := make([]dto.DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, dto.DailyCount{Date: day, Count: byDay[day]})
	}
	return out
}
