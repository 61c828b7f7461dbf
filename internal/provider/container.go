package provider

import (
	"errors"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/bot"
	"github.com/serialguard/internal/cache"
	"github.com/serialguard/internal/config"
	"github.com/serialguard/internal/gameserver"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/queue"
	"github.com/serialguard/internal/repository"
	"github.com/serialguard/internal/service"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Clock       repository.Clock

	// Repositories
	WhitelistRepo        repository.WhitelistRepository
	ApplicationRepo      repository.ApplicationRepository
	VerificationCodeRepo repository.VerificationCodeRepository
	SessionRepo          repository.SessionRepository
	VerifiedPlayerRepo   repository.VerifiedPlayerRepository

	// Chat platform
	DiscordSession *discordgo.Session
	Gateway        bot.Gateway
	Notifications  *bot.Notifications
	Dispatcher     *bot.Dispatcher

	// Services
	AuthzService        *authz.Service
	GameServerClient    *gameserver.Client
	WhitelistService    *service.WhitelistService
	VerificationService *service.VerificationService
	ApplicationService  *service.ApplicationService
	JoinService         *service.JoinService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("database is nil")
	}

	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Clock:       repository.NewStoreClock(db),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化聊天平台出站能力
	if err := c.initGateway(); err != nil {
		return nil, err
	}

	// 3. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.WhitelistRepo = repository.NewWhitelistRepository(c.DB)
	c.ApplicationRepo = repository.NewApplicationRepository(c.DB)
	c.VerificationCodeRepo = repository.NewVerificationCodeRepository(c.DB)
	c.SessionRepo = repository.NewSessionRepository(c.DB)
	c.VerifiedPlayerRepo = repository.NewVerifiedPlayerRepository(c.DB)
}

func (c *Container) initGateway() error {
	session, err := bot.NewSession(c.Config.Discord.Token)
	if err != nil {
		logger.Errorw("provider_init_discord_session_failed", "error", err)
		return err
	}
	c.DiscordSession = session
	c.Gateway = bot.NewDiscordGateway(session)
	c.Notifications = bot.NewNotifications(c.Gateway, c.Config.Discord.SubmissionChannelID, c.Config.Discord.LogChannelID)
	return nil
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.Bootstrap(c.Config.Discord.AdminRoleID); err != nil {
		logger.Errorw("provider_bootstrap_authz_failed", "error", err)
		return err
	}

	c.GameServerClient = gameserver.NewClient(c.Config.GameServer)
	if !c.GameServerClient.Enabled() {
		logger.Warnw("provider_game_server_control_disabled", "reason", "control_url_empty")
	}

	c.WhitelistService = service.NewWhitelistService(c.WhitelistRepo, c.SessionRepo, c.VerifiedPlayerRepo, c.Clock, c.GameServerClient, c.Config.GameServer.Timeout())
	c.VerificationService = service.NewVerificationService(c.VerificationCodeRepo, c.SessionRepo, c.VerifiedPlayerRepo, c.WhitelistRepo, c.Clock, c.Config.Verification.SessionTTL())
	c.ApplicationService = service.NewApplicationService(c.ApplicationRepo, c.WhitelistRepo, c.Clock, c.Notifications, c.QueueClient, c.Config.Application.MaxReapply)
	c.JoinService = service.NewJoinService(c.WhitelistRepo, c.VerifiedPlayerRepo, c.Notifications)

	c.Dispatcher = bot.NewDispatcher(bot.DispatcherDeps{
		Policy:       c.AuthzService,
		Whitelist:    c.WhitelistService,
		Verification: c.VerificationService,
		Applications: c.ApplicationService,
		Gateway:      c.Gateway,
	})
	return nil
}

// Close 释放容器持有的外部连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.QueueClient.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
