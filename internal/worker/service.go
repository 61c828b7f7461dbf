package worker

import (
	"context"
	"errors"
	"time"

	"github.com/serialguard/internal/config"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/queue"
	"github.com/serialguard/internal/service"

	"github.com/hibiken/asynq"
)

// Sweeper 过期清理能力
type Sweeper interface {
	SweepNow(ctx context.Context) (service.SweepResult, error)
}

// Service 异步队列服务
// 同时运行任务消费与过期清理的定时调度。
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	consumer  *Consumer
	cronSpec  string
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	cronSpec := queue.SweepCronSpec(cfg)
	if _, err := scheduler.Register(cronSpec, queue.NewSweepExpiredTask(), asynq.Queue(queue.DefaultQueue), asynq.MaxRetry(0)); err != nil {
		return nil, err
	}
	return &Service{
		name:      "worker",
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		consumer:  consumer,
		cronSpec:  cronSpec,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
		logger.Infow("worker_sweep_scheduled", "cron", s.cronSpec)
	}
	if err := enqueueStartupSweep(s.consumer.queueClient()); err != nil {
		logger.Warnw("worker_startup_sweep_enqueue_failed", "error", err)
	}
	return s.server.Run(s.mux)
}

// enqueueStartupSweep 启动时立即清理一次，不等待首个调度周期
func enqueueStartupSweep(client *queue.Client) error {
	if !client.Enabled() {
		return nil
	}
	return client.EnqueueSweepExpired(asynq.Unique(time.Minute))
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()
	return nil
}

// SweepLoop 队列未启用时的过期清理循环
type SweepLoop struct {
	sweeper  Sweeper
	interval time.Duration
}

// NewSweepLoop 创建过期清理循环
func NewSweepLoop(sweeper Sweeper, interval time.Duration) *SweepLoop {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepLoop{sweeper: sweeper, interval: interval}
}

// Name 服务名称
func (l *SweepLoop) Name() string {
	return "sweeper"
}

// Start 立即执行一次，之后按间隔执行，直到 ctx 结束
func (l *SweepLoop) Start(ctx context.Context) error {
	if l == nil || l.sweeper == nil {
		return errors.New("sweeper not initialized")
	}
	_ = sweepOnce(ctx, l.sweeper)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = sweepOnce(ctx, l.sweeper)
		}
	}
}

// Stop 由 Start 的 ctx 取消驱动退出
func (l *SweepLoop) Stop(_ context.Context) error {
	return nil
}

func sweepOnce(ctx context.Context, sweeper Sweeper) error {
	result, err := sweeper.SweepNow(ctx)
	if err != nil {
		logger.Warnw("worker_sweep_expired_failed", "error", err)
		return err
	}
	if result.Sessions > 0 || result.Codes > 0 {
		logger.Infow("worker_sweep_expired_done",
			"sessions", result.Sessions,
			"codes", result.Codes,
		)
	}
	return nil
}
