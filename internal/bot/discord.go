package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/constants"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway 基于 discordgo 的 Gateway 实现
type DiscordGateway struct {
	session *discordgo.Session
}

// NewDiscordGateway 创建 Discord 出站网关
func NewDiscordGateway(session *discordgo.Session) *DiscordGateway {
	return &DiscordGateway{session: session}
}

// SendMessage 向频道发送消息
func (g *DiscordGateway) SendMessage(ctx context.Context, channelID string, reply Reply) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    reply.Content,
		Embeds:     toDiscordEmbeds(reply.Embeds),
		Components: toDiscordComponents(reply.Buttons),
	}, discordgo.WithContext(ctx))
	return err
}

// DirectMessage 私信用户
func (g *DiscordGateway) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = g.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}

// interactionResponder 单次交互的回复通道
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewInteractionResponder 创建交互回复通道
func NewInteractionResponder(session *discordgo.Session, interaction *discordgo.Interaction) Responder {
	return &interactionResponder{session: session, interaction: interaction}
}

func (r *interactionResponder) Defer(ctx context.Context, ephemeral bool) error {
	return r.session.InteractionRespond(r.interaction, toDeferredResponse(ephemeral), discordgo.WithContext(ctx))
}

func (r *interactionResponder) Reply(ctx context.Context, reply Reply) error {
	return r.session.InteractionRespond(r.interaction, toInteractionResponse(reply), discordgo.WithContext(ctx))
}

func (r *interactionResponder) FollowUp(ctx context.Context, reply Reply) error {
	params := &discordgo.WebhookParams{
		Content:    reply.Content,
		Embeds:     toDiscordEmbeds(reply.Embeds),
		Components: toDiscordComponents(reply.Buttons),
	}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.session.FollowupMessageCreate(r.interaction, true, params, discordgo.WithContext(ctx))
	return err
}

// toDeferredResponse 构造“处理中”确认，可见性在此时确定
func toDeferredResponse(ephemeral bool) *discordgo.InteractionResponse {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return resp
}

// ToInteraction 将 discordgo 交互转换为本包的交互事件
// 不支持的交互类型返回 false。
func ToInteraction(i *discordgo.InteractionCreate) (Interaction, bool) {
	if i == nil || i.Interaction == nil {
		return Interaction{}, false
	}
	in := Interaction{
		ID:        i.ID,
		ChannelID: i.ChannelID,
		Caller:    callerOf(i.Interaction),
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		args := make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			args[opt.Name] = optionValue(opt)
		}
		in.Event = Command{Name: data.Name, Args: args}
	case discordgo.InteractionMessageComponent:
		in.Event = ButtonPress{ActionID: i.MessageComponentData().CustomID}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Event = FormSubmit{FormID: data.CustomID, Fields: modalFields(data.Components)}
	default:
		return Interaction{}, false
	}
	return in, true
}

func callerOf(i *discordgo.Interaction) authz.Caller {
	if i.Member != nil {
		caller := authz.Caller{RoleIDs: append([]string(nil), i.Member.Roles...)}
		if i.Member.User != nil {
			caller.UserID = i.Member.User.ID
		}
		return caller
	}
	if i.User != nil {
		return authz.Caller{UserID: i.User.ID}
	}
	return authz.Caller{}
}

func optionValue(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionString:
		return opt.StringValue()
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(opt.IntValue(), 10)
	default:
		if opt.Value == nil {
			return ""
		}
		return fmt.Sprint(opt.Value)
	}
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, component := range components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

func toInteractionResponse(reply Reply) *discordgo.InteractionResponse {
	if reply.Form != nil {
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID:   reply.Form.ID,
				Title:      reply.Form.Title,
				Components: toDiscordTextInputs(reply.Form.Inputs),
			},
		}
	}
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Embeds:     toDiscordEmbeds(reply.Embeds),
		Components: toDiscordComponents(reply.Buttons),
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func toDiscordEmbeds(embeds []Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	result := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, embed := range embeds {
		item := &discordgo.MessageEmbed{
			Title:       embed.Title,
			Description: embed.Description,
			Color:       embed.Color,
		}
		for _, field := range embed.Fields {
			item.Fields = append(item.Fields, &discordgo.MessageEmbedField{
				Name:   field.Name,
				Value:  field.Value,
				Inline: field.Inline,
			})
		}
		if embed.Footer != "" {
			item.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
		}
		result = append(result, item)
	}
	return result
}

func toDiscordComponents(buttons []Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, button := range buttons {
		row.Components = append(row.Components, discordgo.Button{
			CustomID: button.CustomID,
			Label:    button.Label,
			Style:    toDiscordButtonStyle(button.Style),
		})
	}
	return []discordgo.MessageComponent{row}
}

func toDiscordButtonStyle(style ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case ButtonSuccess:
		return discordgo.SuccessButton
	case ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// toDiscordTextInputs 每个输入框独占一行
func toDiscordTextInputs(inputs []TextInput) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, input := range inputs {
		style := discordgo.TextInputShort
		if input.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  input.ID,
					Label:     input.Label,
					Style:     style,
					Required:  input.Required,
					MinLength: input.MinLength,
					MaxLength: input.MaxLength,
				},
			},
		})
	}
	return rows
}

// Commands 斜杠命令定义
func Commands() []*discordgo.ApplicationCommand {
	minPage := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:        constants.CommandWhitelist,
			Description: "Whitelist a player",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "serial", Description: "MTA Serial", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "discord_id", Description: "Discord ID", Required: true},
			},
		},
		{
			Name:        constants.CommandUnwhitelist,
			Description: "Remove player from whitelist",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "serial", Description: "MTA Serial", Required: true},
			},
		},
		{
			Name:        constants.CommandRemoveVerification,
			Description: "Remove verification",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "discord_id", Description: "Discord ID", Required: true},
			},
		},
		{
			Name:        constants.CommandVerifyCode,
			Description: "Link in-game code to your Discord account",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "code", Description: "Verification Code", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "discord_id", Description: "Discord ID (admins only)", Required: false},
			},
		},
		{
			Name:        constants.CommandWhitelistInfo,
			Description: "View whitelist list",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "page", Description: "Page number", Required: false, MinValue: &minPage},
			},
		},
		{
			Name:        constants.CommandVerifyPanel,
			Description: "Send verify button",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Target channel", Required: false},
			},
		},
		{
			Name:        constants.CommandApplyPanel,
			Description: "Send whitelist application button",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Target channel", Required: false},
			},
		},
	}
}
