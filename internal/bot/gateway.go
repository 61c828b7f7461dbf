package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/models"
	"github.com/serialguard/internal/service"
)

// Gateway 聊天平台出站能力
type Gateway interface {
	SendMessage(ctx context.Context, channelID string, reply Reply) error
	DirectMessage(ctx context.Context, userID, content string) error
}

// ErrChannelNotConfigured 目标频道未配置
var ErrChannelNotConfigured = errors.New("channel not configured")

// Notifications 基于 Gateway 的出站通知，实现 service.Notifier
type Notifications struct {
	gateway             Gateway
	submissionChannelID string
	logChannelID        string
}

// NewNotifications 创建出站通知
func NewNotifications(gateway Gateway, submissionChannelID, logChannelID string) *Notifications {
	return &Notifications{
		gateway:             gateway,
		submissionChannelID: submissionChannelID,
		logChannelID:        logChannelID,
	}
}

var _ service.Notifier = (*Notifications)(nil)

// SendReviewRequest 向审核频道发送申请及通过/拒绝按钮
func (n *Notifications) SendReviewRequest(ctx context.Context, app *models.Application) error {
	if n.submissionChannelID == "" {
		return ErrChannelNotConfigured
	}
	return n.gateway.SendMessage(ctx, n.submissionChannelID, reviewRequestReply(app))
}

// DirectMessage 私信用户
func (n *Notifications) DirectMessage(ctx context.Context, userID, content string) error {
	return n.gateway.DirectMessage(ctx, userID, content)
}

// PostJoinNotice 向日志频道发送入服通知
func (n *Notifications) PostJoinNotice(ctx context.Context, notice service.JoinNotice) error {
	if n.logChannelID == "" {
		return ErrChannelNotConfigured
	}
	return n.gateway.SendMessage(ctx, n.logChannelID, joinNoticeReply(notice))
}

func reviewRequestReply(app *models.Application) Reply {
	title := "📝 New Whitelist Application"
	if app.ReapplyCount > 0 {
		title = "📝 Whitelist Reapplication"
	}
	return Reply{
		Embeds: []Embed{{
			Title: title,
			Color: colorInfo,
			Fields: []EmbedField{
				{Name: "Applicant", Value: mentionUser(app.OwnerID), Inline: true},
				{Name: "Name", Value: app.Name, Inline: true},
				{Name: "Age", Value: app.Age, Inline: true},
				{Name: "In-game Name", Value: app.IngameName, Inline: true},
				{Name: "In-game Age", Value: app.IngameAge, Inline: true},
				{Name: "Serial", Value: codeSpan(app.Serial)},
			},
			Footer: fmt.Sprintf("Reapplications used: %d", app.ReapplyCount),
		}},
		Buttons: []Button{
			{CustomID: constants.CustomIDAcceptPrefix + app.OwnerID, Label: "Accept", Style: ButtonSuccess},
			{CustomID: constants.CustomIDRejectPrefix + app.OwnerID, Label: "Reject", Style: ButtonDanger},
		},
	}
}

func joinNoticeReply(notice service.JoinNotice) Reply {
	owner := "⚠️ not linked"
	color := colorWarn
	if notice.Linked {
		owner = mentionUser(notice.OwnerID)
		color = colorOK
	}
	return Reply{
		Embeds: []Embed{{
			Title: "🎮 Player Joined",
			Color: color,
			Fields: []EmbedField{
				{Name: "Nickname", Value: notice.Nickname, Inline: true},
				{Name: "IP", Value: notice.IP, Inline: true},
				{Name: "Discord", Value: owner, Inline: true},
				{Name: "Serial", Value: codeSpan(notice.Serial)},
			},
		}},
	}
}
