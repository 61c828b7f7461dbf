package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/service"

	"go.uber.org/zap"
)

// Authorizer 权限判定
type Authorizer interface {
	IsAuthorized(caller authz.Caller, action string) bool
}

// DispatcherDeps 分发器依赖
type DispatcherDeps struct {
	Policy       Authorizer
	Whitelist    *service.WhitelistService
	Verification *service.VerificationService
	Applications *service.ApplicationService
	Gateway      Gateway
}

// Dispatcher 交互分发器
// 每个入站交互恰好送达一次结果，处理过程中的 panic 也会回复通用失败文案。
type Dispatcher struct {
	policy       Authorizer
	whitelist    *service.WhitelistService
	verification *service.VerificationService
	applications *service.ApplicationService
	gateway      Gateway
}

// NewDispatcher 创建交互分发器
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{
		policy:       deps.Policy,
		whitelist:    deps.Whitelist,
		verification: deps.Verification,
		applications: deps.Applications,
		gateway:      deps.Gateway,
	}
}

// Handle 处理一次交互并回复，返回最终回复状态
// 除打开申请表单外，先发送延迟确认再执行业务；踢人、私信等外部副作用在结果送达后执行。
func (d *Dispatcher) Handle(ctx context.Context, in Interaction, r Responder) (state ResponseState) {
	ctx, flush := service.WithDeferredEffects(ctx)
	tracked := &trackedResponder{Responder: r}
	log := logger.SW("interaction_id", in.ID, "user_id", in.Caller.UserID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("bot_interaction_panic", "panic", fmt.Sprint(rec))
			if !tracked.delivered {
				d.respond(ctx, log, tracked, failureReply())
			}
		}
		state = tracked.state
		flush()
	}()

	if !opensForm(in.Event) {
		if _, err := Acknowledge(ctx, tracked, tracked.state, ephemeralOutcome(in.Event)); err != nil {
			log.Warnw("bot_interaction_defer_failed", "error", err)
		}
	}
	reply := d.route(ctx, in)
	d.respond(ctx, log, tracked, reply)
	return tracked.state
}

func (d *Dispatcher) respond(ctx context.Context, log *zap.SugaredLogger, r *trackedResponder, reply Reply) {
	state := r.state
	if _, err := Respond(ctx, r, state, reply); err != nil {
		log.Warnw("bot_interaction_reply_failed",
			"state", state.String(),
			"error", err,
		)
	}
}

// trackedResponder 调用前先记录状态，发送失败时回退
// 发送途中 panic 时按已送达处理，避免重复的首次回复。
type trackedResponder struct {
	Responder
	state     ResponseState
	delivered bool
}

func (t *trackedResponder) Defer(ctx context.Context, ephemeral bool) error {
	prev := t.state
	t.state = Responded
	if err := t.Responder.Defer(ctx, ephemeral); err != nil {
		t.state = prev
		return err
	}
	return nil
}

func (t *trackedResponder) Reply(ctx context.Context, reply Reply) error {
	prev, prevDelivered := t.state, t.delivered
	t.state, t.delivered = Responded, true
	if err := t.Responder.Reply(ctx, reply); err != nil {
		t.state, t.delivered = prev, prevDelivered
		return err
	}
	return nil
}

func (t *trackedResponder) FollowUp(ctx context.Context, reply Reply) error {
	prevDelivered := t.delivered
	t.delivered = true
	if err := t.Responder.FollowUp(ctx, reply); err != nil {
		t.delivered = prevDelivered
		return err
	}
	return nil
}

// opensForm 打开申请表单必须直接以表单作为首次回复
func opensForm(ev Event) bool {
	press, ok := ev.(ButtonPress)
	return ok && press.ActionID == constants.CustomIDOpenApplicationForm
}

// ephemeralOutcome 审核结果公开在审核频道，其余回复仅调用者可见
func ephemeralOutcome(ev Event) bool {
	press, ok := ev.(ButtonPress)
	if !ok {
		return true
	}
	return !strings.HasPrefix(press.ActionID, constants.CustomIDAcceptPrefix) &&
		!strings.HasPrefix(press.ActionID, constants.CustomIDRejectPrefix)
}

func (d *Dispatcher) route(ctx context.Context, in Interaction) Reply {
	switch ev := in.Event.(type) {
	case Command:
		return d.handleCommand(ctx, in, ev)
	case ButtonPress:
		return d.handleButton(ctx, in, ev)
	case FormSubmit:
		return d.handleForm(ctx, in, ev)
	default:
		return failureReply()
	}
}

func (d *Dispatcher) allowed(in Interaction, action string) bool {
	return d.policy != nil && d.policy.IsAuthorized(in.Caller, action)
}

// fail 渲染业务错误；未分类错误记录完整上下文
func (d *Dispatcher) fail(in Interaction, event string, err error) Reply {
	kind := service.Kind(err)
	if kind == service.KindStore || kind == service.KindUnknown {
		logger.Errorw(event,
			"interaction_id", in.ID,
			"user_id", in.Caller.UserID,
			"error", err,
		)
	}
	return textReply(errorMessage(err))
}

func (d *Dispatcher) handleCommand(ctx context.Context, in Interaction, cmd Command) Reply {
	switch cmd.Name {
	case constants.CommandWhitelist:
		return d.commandWhitelist(ctx, in, cmd)
	case constants.CommandUnwhitelist:
		return d.commandUnwhitelist(ctx, in, cmd)
	case constants.CommandRemoveVerification:
		return d.commandRemoveVerification(ctx, in, cmd)
	case constants.CommandVerifyCode:
		return d.commandVerifyCode(ctx, in, cmd)
	case constants.CommandWhitelistInfo:
		return d.commandWhitelistInfo(ctx, in, cmd)
	case constants.CommandVerifyPanel:
		return d.commandPanel(ctx, in, cmd, verifyPanelReply(), "verification")
	case constants.CommandApplyPanel:
		return d.commandPanel(ctx, in, cmd, applyPanelReply(), "application")
	default:
		return textReply(msgUnknownCommand)
	}
}

func (d *Dispatcher) commandWhitelist(ctx context.Context, in Interaction, cmd Command) Reply {
	if !d.allowed(in, constants.ActionWhitelistGrant) {
		return textReply(msgNoPermission)
	}
	entry, err := d.whitelist.Grant(ctx, cmd.Arg("serial"), cmd.Arg("discord_id"), in.Caller.UserID)
	if err != nil {
		return d.fail(in, "bot_whitelist_grant_failed", err)
	}
	logger.Infow("bot_whitelist_granted",
		"serial", entry.Serial,
		"owner_id", entry.OwnerID,
		"granted_by", entry.GrantedBy,
	)
	return Reply{
		Content: "✅ Whitelisted",
		Embeds: []Embed{{
			Color: colorOK,
			Fields: []EmbedField{
				{Name: "Serial", Value: entry.Serial, Inline: true},
				{Name: "Discord", Value: mentionUser(entry.OwnerID), Inline: true},
			},
		}},
		Ephemeral: true,
	}
}

func (d *Dispatcher) commandUnwhitelist(ctx context.Context, in Interaction, cmd Command) Reply {
	if !d.allowed(in, constants.ActionWhitelistRevoke) {
		return textReply(msgNoPermission)
	}
	entry, err := d.whitelist.Revoke(ctx, cmd.Arg("serial"))
	if err != nil {
		return d.fail(in, "bot_whitelist_revoke_failed", err)
	}
	logger.Infow("bot_whitelist_revoked",
		"serial", entry.Serial,
		"owner_id", entry.OwnerID,
		"revoked_by", in.Caller.UserID,
	)
	return textReply(fmt.Sprintf("✅ Removed serial %s from whitelist.", codeSpan(entry.Serial)))
}

func (d *Dispatcher) commandRemoveVerification(ctx context.Context, in Interaction, cmd Command) Reply {
	if !d.allowed(in, constants.ActionVerificationRemove) {
		return textReply(msgNoPermission)
	}
	ownerID := strings.TrimSpace(cmd.Arg("discord_id"))
	if _, err := d.verification.RemoveSessions(ctx, ownerID); err != nil {
		return d.fail(in, "bot_remove_verification_failed", err)
	}
	return textReply(fmt.Sprintf("✅ Removed verification for %s", mentionUser(ownerID)))
}

// commandVerifyCode 兑换验证码；指定他人 discord_id 时需要管理员权限
func (d *Dispatcher) commandVerifyCode(ctx context.Context, in Interaction, cmd Command) Reply {
	if !d.allowed(in, constants.ActionRedeemCode) {
		return textReply(msgNoPermission)
	}
	ownerID := in.Caller.UserID
	if target := strings.TrimSpace(cmd.Arg("discord_id")); target != "" && target != ownerID {
		if !d.allowed(in, constants.ActionWhitelistGrant) {
			return textReply(msgNoPermission)
		}
		ownerID = target
	}
	player, err := d.verification.RedeemCode(ctx, cmd.Arg("code"), ownerID)
	if err != nil {
		return d.fail(in, "bot_redeem_code_failed", err)
	}
	return textReply(fmt.Sprintf("✅ Code verified and data linked to %s.\n🕵️ Now click the **Verify** button to temporarily verify.", codeSpan(player.Serial)))
}

func (d *Dispatcher) commandWhitelistInfo(ctx context.Context, in Interaction, cmd Command) Reply {
	if !d.allowed(in, constants.ActionWhitelistList) {
		return textReply(msgNoPermission)
	}
	page := 1
	if raw := strings.TrimSpace(cmd.Arg("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return textReply("❌ Page must be a positive number.")
		}
		page = parsed
	}
	result, err := d.whitelist.List(ctx, page)
	if err != nil {
		return d.fail(in, "bot_whitelist_list_failed", err)
	}
	return whitelistInfoReply(result)
}

func (d *Dispatcher) commandPanel(ctx context.Context, in Interaction, cmd Command, panel Reply, kind string) Reply {
	if !d.allowed(in, constants.ActionPanelSend) {
		return textReply(msgNoPermission)
	}
	channelID := strings.TrimSpace(cmd.Arg("channel"))
	if channelID == "" {
		channelID = in.ChannelID
	}
	if channelID == "" || d.gateway == nil {
		return failureReply()
	}
	if err := d.gateway.SendMessage(ctx, channelID, panel); err != nil {
		logger.Warnw("bot_panel_send_failed",
			"kind", kind,
			"channel_id", channelID,
			"error", err,
		)
		return failureReply()
	}
	return textReply(fmt.Sprintf("✅ Sent %s panel to %s", kind, mentionChannel(channelID)))
}

func (d *Dispatcher) handleButton(ctx context.Context, in Interaction, press ButtonPress) Reply {
	switch {
	case press.ActionID == constants.CustomIDVerify:
		return d.buttonVerify(ctx, in)
	case press.ActionID == constants.CustomIDOpenApplicationForm:
		if !d.allowed(in, constants.ActionApply) {
			return textReply(msgNoPermission)
		}
		return Reply{Form: applicationForm()}
	case strings.HasPrefix(press.ActionID, constants.CustomIDAcceptPrefix):
		return d.buttonAccept(ctx, in, strings.TrimPrefix(press.ActionID, constants.CustomIDAcceptPrefix))
	case strings.HasPrefix(press.ActionID, constants.CustomIDRejectPrefix):
		return d.buttonReject(ctx, in, strings.TrimPrefix(press.ActionID, constants.CustomIDRejectPrefix))
	default:
		return textReply(msgUnknownAction)
	}
}

func (d *Dispatcher) buttonVerify(ctx context.Context, in Interaction) Reply {
	if !d.allowed(in, constants.ActionVerify) {
		return textReply(msgNoPermission)
	}
	session, err := d.verification.BeginSession(ctx, in.Caller.UserID)
	if err != nil {
		return d.fail(in, "bot_begin_session_failed", err)
	}
	return textReply(sessionStartedMessage(session.ExpiresAt.Sub(session.VerifiedAt)))
}

func (d *Dispatcher) buttonAccept(ctx context.Context, in Interaction, ownerID string) Reply {
	if !d.allowed(in, constants.ActionApplicationReview) {
		return textReply(msgNoPermission)
	}
	entry, err := d.applications.Accept(ctx, ownerID, in.Caller.UserID)
	if err != nil {
		return d.fail(in, "bot_application_accept_failed", err)
	}
	logger.Infow("bot_application_accepted",
		"owner_id", entry.OwnerID,
		"serial", entry.Serial,
		"approver", in.Caller.UserID,
	)
	return Reply{Content: fmt.Sprintf("✅ Application from %s accepted by %s.", mentionUser(entry.OwnerID), mentionUser(in.Caller.UserID))}
}

func (d *Dispatcher) buttonReject(ctx context.Context, in Interaction, ownerID string) Reply {
	if !d.allowed(in, constants.ActionApplicationReview) {
		return textReply(msgNoPermission)
	}
	app, err := d.applications.Reject(ctx, ownerID)
	if err != nil {
		return d.fail(in, "bot_application_reject_failed", err)
	}
	logger.Infow("bot_application_rejected",
		"owner_id", app.OwnerID,
		"reapply_count", app.ReapplyCount,
		"reviewer", in.Caller.UserID,
	)
	return Reply{Content: fmt.Sprintf("❌ Application from %s rejected by %s.", mentionUser(app.OwnerID), mentionUser(in.Caller.UserID))}
}

func (d *Dispatcher) handleForm(ctx context.Context, in Interaction, form FormSubmit) Reply {
	if form.FormID != constants.FormIDApplication {
		return textReply(msgUnknownAction)
	}
	if !d.allowed(in, constants.ActionApply) {
		return textReply(msgNoPermission)
	}
	fields := service.ApplicationFields{
		Name:       form.Field(constants.FormFieldName),
		Age:        form.Field(constants.FormFieldAge),
		IngameName: form.Field(constants.FormFieldIngameName),
		IngameAge:  form.Field(constants.FormFieldIngameAge),
		Serial:     form.Field(constants.FormFieldSerial),
	}
	if _, err := d.applications.Submit(ctx, in.Caller.UserID, fields); err != nil {
		return d.fail(in, "bot_application_submit_failed", err)
	}
	return textReply(msgApplicationSent)
}
