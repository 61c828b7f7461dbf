package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/provider"
	"github.com/serialguard/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

func (c *Consumer) queueClient() *queue.Client {
	if c == nil || c.Container == nil {
		return nil
	}
	return c.QueueClient
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSweepExpired, c.handleSweepExpired)
	mux.HandleFunc(queue.TaskDirectMessage, c.handleDirectMessage)
}

func (c *Consumer) handleSweepExpired(ctx context.Context, _ *asynq.Task) error {
	if c == nil || c.Container == nil || c.VerificationService == nil {
		logger.Warnw("worker_sweep_expired_skip_service_nil")
		return nil
	}
	return sweepOnce(ctx, c.VerificationService)
}

// handleDirectMessage 投递私信；失败只记录日志，不重试
func (c *Consumer) handleDirectMessage(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_direct_message_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseDirectMessagePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_direct_message_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.UserID) == "" || strings.TrimSpace(payload.Content) == "" {
		logger.Debugw("worker_direct_message_skip_invalid_payload", "user_id", payload.UserID, "reason", payload.Reason)
		return nil
	}
	if c.Container == nil || c.Gateway == nil {
		logger.Warnw("worker_direct_message_skip_gateway_nil", "user_id", payload.UserID, "reason", payload.Reason)
		return nil
	}
	if err := c.Gateway.DirectMessage(ctx, payload.UserID, payload.Content); err != nil {
		logger.Warnw("worker_direct_message_send_failed",
			"user_id", payload.UserID,
			"reason", payload.Reason,
			"error", err,
		)
	}
	return nil
}
