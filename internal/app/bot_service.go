package app

import (
	"context"
	"errors"
)

// botRunner 机器人生命周期
type botRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// BotService Discord 机器人服务封装
// 网关连接在后台运行，Start 阻塞到 ctx 结束。
type BotService struct {
	name string
	bot  botRunner
}

// NewBotService 创建机器人服务
func NewBotService(bot botRunner) *BotService {
	return &BotService{name: "bot", bot: bot}
}

// Name 服务名称
func (s *BotService) Name() string {
	if s == nil || s.name == "" {
		return "bot"
	}
	return s.name
}

// Start 启动服务
func (s *BotService) Start(ctx context.Context) error {
	if s == nil || s.bot == nil {
		return errors.New("bot not initialized")
	}
	if err := s.bot.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *BotService) Stop(ctx context.Context) error {
	if s == nil || s.bot == nil {
		return nil
	}
	return s.bot.Stop(ctx)
}
