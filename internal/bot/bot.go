package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/serialguard/internal/logger"

	"github.com/bwmarrin/discordgo"
)

const interactionTimeout = 10 * time.Second

// NewSession 创建 Discord 会话
func NewSession(token string) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session failed: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages
	return session, nil
}

// Bot Discord 网关连接与交互入口
type Bot struct {
	session       *discordgo.Session
	dispatcher    *Dispatcher
	applicationID string
	guildID       string
	removers      []func()
}

// New 创建机器人
func New(session *discordgo.Session, dispatcher *Dispatcher, applicationID, guildID string) *Bot {
	return &Bot{
		session:       session,
		dispatcher:    dispatcher,
		applicationID: strings.TrimSpace(applicationID),
		guildID:       strings.TrimSpace(guildID),
	}
}

// Start 注册事件处理并连接网关
func (b *Bot) Start(ctx context.Context) error {
	b.removers = append(b.removers,
		b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			b.onReady(ctx, s, r)
		}),
		b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			b.onInteraction(ctx, s, i)
		}),
	)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session failed: %w", err)
	}
	return nil
}

// Stop 断开网关连接
func (b *Bot) Stop(_ context.Context) error {
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil
	return b.session.Close()
}

func (b *Bot) onReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready) {
	appID := b.applicationID
	username := ""
	if r.User != nil {
		username = r.User.Username
		if appID == "" {
			appID = r.User.ID
		}
	}
	logger.Infow("bot_ready", "user", username, "guild_id", b.guildID)
	commands, err := s.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		logger.Errorw("bot_register_commands_failed", "guild_id", b.guildID, "error", err)
		return
	}
	logger.Infow("bot_commands_registered", "count", len(commands), "guild_id", b.guildID)
}

func (b *Bot) onInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	in, ok := ToInteraction(i)
	if !ok {
		return
	}
	handleCtx, cancel := context.WithTimeout(ctx, interactionTimeout)
	defer cancel()
	b.dispatcher.Handle(handleCtx, in, NewInteractionResponder(s, i.Interaction))
}
