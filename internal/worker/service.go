package worker

import (
	"context"
	"errors"

	"github.com/paysub/internal/config"
	"github.com/paysub/internal/logger"
	"github.com/paysub/internal/queue"

	"github.com/hibiken/asynq"
)

// taskServer asynq.Server 中 Service 用到的部分
type taskServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// Service 消费支付事件（订单已支付、支付异常告警）的 asynq 服务
type Service struct {
	server      taskServer
	handler     asynq.Handler
	concurrency int
	queues      map[string]int
}

// NewService 创建异步队列服务，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return newService(asynq.NewServer(opt, serverCfg), mux, serverCfg), nil
}

func newService(server taskServer, handler asynq.Handler, serverCfg asynq.Config) *Service {
	return &Service{
		server:      server,
		handler:     handler,
		concurrency: serverCfg.Concurrency,
		queues:      serverCfg.Queues,
	}
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束，信号由上层 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.handler == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.handler); err != nil {
		logger.Errorw("worker_service_start_failed", "error", err)
		return err
	}
	logger.Infow("worker_service_started", "concurrency", s.concurrency, "queues", s.queues)
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务完成后退出
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	logger.Infow("worker_service_stopped")
	return nil
}
