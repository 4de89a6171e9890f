package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ComplianceService struct {
	db     *gorm.DB
	cfg    *conf.ComplianceConfig
	logger *zap.Logger
}

func NewComplianceService(db *gorm.DB, cfg *conf.ComplianceConfig, logger *zap.Logger) *ComplianceService {
	return &ComplianceService{
		db:     db,
		cfg:    cfg,
		logger: logger.With(zap.String("service", "compliance")),
	}
}

// Create 给文档挂合规任务
// 任务部门继承自文档，请求里不收部门字段
func (s *ComplianceService) Create(ctx context.Context, user *model.User, req dto.CreateComplianceReq) (*model.ComplianceTask, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, req.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, doc.Department); err != nil {
		return nil, err
	}

	// 指派对象必须真实存在
	var assignee model.User
	if err := s.db.WithContext(ctx).First(&assignee, req.AssignedTo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assignee not found: %w", ErrNotFound)
		}
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	reminders := true
	if req.Reminders != nil {
		reminders = *req.Reminders
	}

	task := &model.ComplianceTask{
		DocumentID:     req.DocumentID,
		Department:     doc.Department,
		DueDate:        req.DueDate,
		Status:         model.ComplianceStatusPending,
		ComplianceType: req.ComplianceType,
		Description:    req.Description,
		Priority:       priority,
		AssignedToID:   req.AssignedTo,
		Reminders:      reminders,
		IsActive:       true,
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, user, task.ID)
}

// listQuery 每次新建查询链，Count / Find / 统计互不串味
func (s *ComplianceService) listQuery(ctx context.Context, user *model.User, q dto.ListComplianceQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("compliance_tasks.is_active = ?", true)

	// 非 admin 只看本部门任务；admin 可带 department 过滤
	if !user.IsAdmin() {
		db = db.Where("compliance_tasks.department = ?", user.Department)
	} else if q.Department != "" {
		db = db.Where("compliance_tasks.department = ?", q.Department)
	}

	if q.Status != "" {
		db = db.Where("compliance_tasks.status = ?", q.Status)
	}
	if q.Priority != "" {
		db = db.Where("compliance_tasks.priority = ?", q.Priority)
	}
	if q.AssignedTo != 0 {
		db = db.Where("compliance_tasks.assigned_to_id = ?", q.AssignedTo)
	}
	now := time.Now()
	if q.Overdue {
		db = db.Where("compliance_tasks.due_date < ? AND compliance_tasks.status <> ?",
			now, model.ComplianceStatusResolved)
	}
	if q.DueSoon {
		db = db.Where("compliance_tasks.due_date BETWEEN ? AND ?", now, now.Add(s.cfg.DueSoonWindow)).
			Where("compliance_tasks.status <> ?", model.ComplianceStatusResolved)
	}
	return db
}

func (s *ComplianceService) List(ctx context.Context, user *model.User, q dto.ListComplianceQuery) ([]model.ComplianceTask, dto.Pagination, []dto.StatusCount, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.SortBy == "" {
		q.SortBy = "due_date"
	}
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}

	var total int64
	if err := s.listQuery(ctx, user, q).Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	var tasks []model.ComplianceTask
	err := s.listQuery(ctx, user, q).
		Preload("Document").
		Preload("AssignedTo").
		Preload("ResolvedBy").
		Order(fmt.Sprintf("compliance_tasks.%s %s", q.SortBy, q.SortOrder)).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&tasks).Error
	if err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	var counts []dto.StatusCount
	if err := s.listQuery(ctx, user, q).
		Select("compliance_tasks.status AS key, COUNT(*) AS count").
		Group("compliance_tasks.status").
		Scan(&counts).Error; err != nil {
		return nil, dto.Pagination{}, nil, err
	}

	return tasks, dto.NewPagination(q.Page, q.Limit, total), counts, nil
}

func (s *ComplianceService) Get(ctx context.Context, user *model.User, id uint) (*model.ComplianceTask, error) {
	var task model.ComplianceTask
	err := s.db.WithContext(ctx).
		Preload("Document").
		Preload("AssignedTo").
		Preload("ResolvedBy").
		First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("compliance task not found: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := CheckDepartmentAccess(user, task.Department); err != nil {
		return nil, err
	}
	return &task, nil
}

// canTransition 状态机约束
// 默认宽松：任意回拨放行（历史数据修正需要），Resolved 也能重开
// 严格模式（COMPLIANCE_STRICT_TRANSITIONS=true）下只允许前向推进
func (s *ComplianceService) canTransition(from, to string) bool {
	if from == to {
		return true
	}
	if !s.cfg.StrictTransitions {
		return true
	}
	forward := map[string][]string{
		model.ComplianceStatusPending:  {model.ComplianceStatusOnTrack, model.ComplianceStatusOverdue, model.ComplianceStatusResolved},
		model.ComplianceStatusOnTrack:  {model.ComplianceStatusOverdue, model.ComplianceStatusResolved},
		model.ComplianceStatusOverdue:  {model.ComplianceStatusResolved},
		model.ComplianceStatusResolved: {},
	}
	for _, allowed := range forward[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus 推进任务状态
// 标记 Resolved 时盖上解决三件套（时间/人/备注），并把关联文档置为 Approved
func (s *ComplianceService) UpdateStatus(ctx context.Context, user *model.User, id uint, req dto.UpdateComplianceStatusReq) (*model.ComplianceTask, error) {
	task, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if !s.canTransition(task.Status, req.Status) {
		return nil, fmt.Errorf("cannot move task from %s to %s: %w", task.Status, req.Status, ErrInvalidInput)
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == model.ComplianceStatusResolved {
		updates["resolved_at"] = time.Now()
		updates["resolved_by_id"] = user.ID
		updates["resolution_notes"] = req.ResolutionNotes
	}

	if err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	// 任务解决意味着文档通过了这项合规检查
	if req.Status == model.ComplianceStatusResolved {
		if err := s.db.WithContext(ctx).Model(&model.Document{}).
			Where("id = ?", task.DocumentID).
			Update("status", model.DocStatusApproved).Error; err != nil {
			s.logger.Error("document approve on resolve failed",
				zap.Uint("task_id", id), zap.Uint("document_id", task.DocumentID), zap.Error(err))
		}
	}

	return s.Get(ctx, user, id)
}

// Update 字段级修改（PUT），零值字段不动
func (s *ComplianceService) Update(ctx context.Context, user *model.User, id uint, req dto.UpdateComplianceReq) (*model.ComplianceTask, error) {
	if _, err := s.Get(ctx, user, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.ComplianceType != "" {
		updates["compliance_type"] = req.ComplianceType
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Priority != "" {
		updates["priority"] = req.Priority
	}
	if req.AssignedTo != 0 {
		var assignee model.User
		if err := s.db.WithContext(ctx).First(&assignee, req.AssignedTo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("assignee not found: %w", ErrNotFound)
			}
			return nil, err
		}
		updates["assigned_to_id"] = req.AssignedTo
	}
	if req.Reminders != nil {
		updates["reminders"] = *req.Reminders
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
			Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, user, id)
}

// Delete 软删除：停用而非物理删除，历史留痕
func (s *ComplianceService) Delete(ctx context.Context, user *model.User, id uint) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("id = ?", id).Update("is_active", false).Error
}

// Overdue 已逾期且未解决的活跃任务
func (s *ComplianceService) Overdue(ctx context.Context, user *model.User) ([]model.ComplianceTask, error) {
	var tasks []model.ComplianceTask
	err := s.listQuery(ctx, user, dto.ListComplianceQuery{Overdue: true}).
		Preload("Document").
		Preload("AssignedTo").
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

// DueSoon 临期窗口（默认 7 天）内到期的活跃任务
func (s *ComplianceService) DueSoon(ctx context.Context, user *model.User) ([]model.ComplianceTask, error) {
	var tasks []model.ComplianceTask
	err := s.listQuery(ctx, user, dto.ListComplianceQuery{DueSoon: true}).
		Preload("Document").
		Preload("AssignedTo").
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

// Stats 合规面板汇总
func (s *ComplianceService) Stats(ctx context.Context, user *model.User) (*dto.ComplianceOverview, error) {
	base := func() *gorm.DB {
		return s.listQuery(ctx, user, dto.ListComplianceQuery{})
	}
	now := time.Now()

	var overview dto.ComplianceOverview
	if err := base().Count(&overview.TotalTasks).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ComplianceStatusPending).
		Count(&overview.PendingTasks).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ComplianceStatusOnTrack).
		Count(&overview.OnTrackTasks).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ComplianceStatusResolved).
		Count(&overview.ResolvedTasks).Error; err != nil {
		return nil, err
	}
	if err := base().Where("due_date < ? AND status <> ?", now, model.ComplianceStatusResolved).
		Count(&overview.OverdueTasks).Error; err != nil {
		return nil, err
	}
	if overview.TotalTasks > 0 {
		overview.CompletionRate = int(overview.ResolvedTasks * 100 / overview.TotalTasks)
	}
	return &overview, nil
}
