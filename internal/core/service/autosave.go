package service

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/zwconsole/internal/core/port"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const autosaveJobKey = "write-configs"

// AutosaveService periodically asks the driver to persist its network
// configuration.
type AutosaveService struct {
	ops       port.NetworkOperations
	interval  time.Duration
	scheduler quartz.Scheduler
	logger    *zap.Logger
}

func NewAutosaveService(ops port.NetworkOperations, interval time.Duration, logger *zap.Logger) *AutosaveService {
	return &AutosaveService{
		ops:      ops,
		interval: interval,
		logger:   logger.With(zap.String("component", "autosave")),
	}
}

// Start schedules the job. A zero interval disables the service.
func (s *AutosaveService) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Debug("autosave disabled")
		return nil
	}
	if s.scheduler != nil {
		return errors.New("autosave already started")
	}

	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	saveJob := job.NewFunctionJob(func(ctx context.Context) (int, error) {
		if err := s.ops.WriteConfigs(ctx); err != nil {
			s.logger.Warn("autosave failed", zap.Error(err))
			return 0, err
		}
		s.logger.Debug("configuration saved")
		return 1, nil
	})
	detail := quartz.NewJobDetail(saveJob, quartz.NewJobKey(autosaveJobKey))
	if err := sched.ScheduleJob(detail, quartz.NewSimpleTrigger(s.interval)); err != nil {
		sched.Stop()
		return err
	}

	s.scheduler = sched
	s.logger.Info("autosave scheduled", zap.Duration("interval", s.interval))
	return nil
}

func (s *AutosaveService) Stop(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Stop()
	s.scheduler.Wait(ctx)
	s.scheduler = nil
}
