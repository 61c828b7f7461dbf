package service

import (
	"context"
	"time"

	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/queue"
)

const directMessageTimeout = 5 * time.Second

// Notifier 聊天平台出站通知
type Notifier interface {
	SendReviewRequest(ctx context.Context, app *models.Application) error
	DirectMessage(ctx context.Context, userID, content string) error
	PostJoinNotice(ctx context.Context, notice JoinNotice) error
}

// Kicker 游戏服务器控制接口
type Kicker interface {
	Kick(ctx context.Context, serial string) error
}

// directMessenger 私信投递：启用队列时入队，否则直接发送；失败只记录日志
type directMessenger struct {
	notifier    Notifier
	queueClient *queue.Client
}

func (m directMessenger) send(ctx context.Context, userID, content, reason string) {
	if userID == "" || content == "" {
		return
	}
	runEffect(ctx, func(ctx context.Context) { m.deliver(ctx, userID, content, reason) })
}

func (m directMessenger) deliver(ctx context.Context, userID, content, reason string) {
	if m.queueClient.Enabled() {
		if err := m.queueClient.EnqueueDirectMessage(queue.DirectMessagePayload{
			UserID:  userID,
			Content: content,
			Reason:  reason,
		}); err != nil {
			logger.Warnw("direct_message_enqueue_failed",
				"user_id", userID,
				"reason", reason,
				"error", err,
			)
		}
		return
	}
	if m.notifier == nil {
		return
	}
	dmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directMessageTimeout)
	defer cancel()
	if err := m.notifier.DirectMessage(dmCtx, userID, content); err != nil {
		logger.Warnw("direct_message_send_failed",
			"user_id", userID,
			"reason", reason,
			"error", err,
		)
	}
}
