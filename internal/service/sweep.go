package service

import (
	"context"
	"fmt"
	"time"

	"DocTrack/internal/conf"
	"DocTrack/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepService 定时任务的执行体：逾期扫描 + 提醒派发
// 扫描本身只做前向推进（Pending / On Track -> Overdue），重复跑无副作用
type SweepService struct {
	db     *gorm.DB
	rdb    *redis.Client
	cfg    *conf.ComplianceConfig
	notify Notifier
	logger *zap.Logger
}

func NewSweepService(db *gorm.DB, rdb *redis.Client, cfg *conf.ComplianceConfig, notify Notifier, logger *zap.Logger) *SweepService {
	return &SweepService{
		db:     db,
		rdb:    rdb,
		cfg:    cfg,
		notify: notify,
		logger: logger.With(zap.String("service", "sweep")),
	}
}

// Sweep 把已过期且仍处于 Pending / On Track 的活跃任务推进到 Overdue
// 单条条件 UPDATE，天然幂等；Resolved 的任务不回头
func (s *SweepService) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("is_active = ?", true).
		Where("due_date < ?", time.Now()).
		Where("status IN ?", []string{model.ComplianceStatusPending, model.ComplianceStatusOnTrack}).
		Update("status", model.ComplianceStatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Info("tasks marked overdue", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// SendReminders 两类提醒：
//  1. 临期提醒：DueSoonWindow 内到期，冷却 ReminderCooldown
//  2. 逾期通知：已过期未解决，冷却 OverdueCooldown
//
// 只有发送成功才盖 LastReminderSent 章——发送失败的下一轮重试
func (s *SweepService) SendReminders(ctx context.Context) (int, error) {
	now := time.Now()
	sent := 0

	// --- 1. 临期提醒 ---
	var dueSoon []model.ComplianceTask
	err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Preload("AssignedTo").
		Preload("Document").
		Where("is_active = ? AND reminders = ?", true, true).
		Where("status <> ?", model.ComplianceStatusResolved).
		Where("due_date BETWEEN ? AND ?", now, now.Add(s.cfg.DueSoonWindow)).
		Where("last_reminder_sent IS NULL OR last_reminder_sent < ?", now.Add(-s.cfg.ReminderCooldown)).
		Find(&dueSoon).Error
	if err != nil {
		return sent, err
	}
	for i := range dueSoon {
		if s.dispatch(ctx, &dueSoon[i], TplComplianceReminder, now) {
			sent++
		}
	}

	// --- 2. 逾期通知 ---
	var overdue []model.ComplianceTask
	err = s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Preload("AssignedTo").
		Preload("Document").
		Where("is_active = ? AND reminders = ?", true, true).
		Where("status <> ?", model.ComplianceStatusResolved).
		Where("due_date < ?", now).
		Where("last_reminder_sent IS NULL OR last_reminder_sent < ?", now.Add(-s.cfg.OverdueCooldown)).
		Find(&overdue).Error
	if err != nil {
		return sent, err
	}
	for i := range overdue {
		if s.dispatch(ctx, &overdue[i], TplComplianceOverdue, now) {
			sent++
		}
	}

	if sent > 0 {
		s.logger.Info("reminders dispatched", zap.Int("count", sent))
	}
	return sent, nil
}

func (s *SweepService) dispatch(ctx context.Context, task *model.ComplianceTask, tpl string, now time.Time) bool {
	if task.AssignedTo == nil {
		return false
	}
	title := ""
	if task.Document != nil {
		title = task.Document.Title
	}
	err := s.notify.Send(ctx, task.AssignedTo.Email, tpl, map[string]string{
		"assignee":        task.AssignedTo.Name,
		"document_title":  title,
		"compliance_type": task.ComplianceType,
		"due_date":        task.DueDate.Format("2006-01-02"),
	})
	if err != nil {
		s.logger.Warn("reminder send failed", zap.Uint("task_id", task.ID), zap.Error(err))
		return false
	}

	// 记账字段只在发送成功后更新
	if err := s.db.WithContext(ctx).Model(&model.ComplianceTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"reminder_sent":      true,
			"last_reminder_sent": now,
		}).Error; err != nil {
		s.logger.Error("reminder bookkeeping failed", zap.Uint("task_id", task.ID), zap.Error(err))
	}
	return true
}

// RunLocked 用 Redis SETNX 做分布式互斥，防止多实例同时跑扫描
// 没配 Redis（rdb = nil，多见于单机/测试）时直接执行
func (s *SweepService) RunLocked(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if s.rdb == nil {
		return fn(ctx)
	}

	ok, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		s.logger.Debug("lock held elsewhere, skipping", zap.String("key", key))
		return nil
	}
	defer func() {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}

// RunCycle 定时器的一轮：先扫描推进，再派发提醒
func (s *SweepService) RunCycle(ctx context.Context) error {
	return s.RunLocked(ctx, "doctrack:sweep:lock", 5*time.Minute, func(ctx context.Context) error {
		if _, err := s.Sweep(ctx); err != nil {
			return err
		}
		_, err := s.SendReminders(ctx)
		return err
	})
}
