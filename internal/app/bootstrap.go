package app

import (
	"errors"

	"github.com/serialguard/internal/bot"
	"github.com/serialguard/internal/config"
	"github.com/serialguard/internal/provider"
	"github.com/serialguard/internal/router"
	"github.com/serialguard/internal/worker"

	"gorm.io/gorm"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, db *gorm.DB, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		return nil, err
	}

	var services []Service

	// 初始化 HTTP 服务（游戏服务器回调）
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Discord 机器人
	if mode == ModeAll || mode == ModeBot {
		discordBot := bot.New(container.DiscordSession, container.Dispatcher, cfg.Discord.ApplicationID, cfg.Discord.GuildID)
		services = append(services, NewBotService(discordBot))
	}

	// 初始化 Worker 服务；队列未启用时由清理循环兜底
	if mode == ModeAll || mode == ModeWorker || mode == ModeBot {
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue.enabled")
		} else {
			services = append(services, worker.NewSweepLoop(container.VerificationService, cfg.Verification.SweepInterval()))
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.onClose = container.Close
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if opts.DB == nil {
		return errors.New("database is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.DB, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
