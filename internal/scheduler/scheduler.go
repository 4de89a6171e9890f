package scheduler

import (
	"context"

	"DocTrack/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 定时任务编排：按 cron 表达式跑逾期扫描和提醒派发
type Scheduler struct {
	cron   *cron.Cron
	sweep  *service.SweepService
	spec   string
	logger *zap.Logger
}

func New(sweep *service.SweepService, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		sweep:  sweep,
		spec:   spec,
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.sweep.RunCycle(context.Background()); err != nil {
			s.logger.Error("sweep cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("cron", s.spec))
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
