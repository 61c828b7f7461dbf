package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/serialguard/internal/authz"
	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/models"
)

func TestAdminCommandsRequireRole(t *testing.T) {
	f := newBotFixture(t)
	cases := []Command{
		command(constants.CommandWhitelist, "serial", testSerial, "discord_id", "123"),
		command(constants.CommandUnwhitelist, "serial", testSerial),
		command(constants.CommandRemoveVerification, "discord_id", "123"),
		command(constants.CommandWhitelistInfo),
		command(constants.CommandVerifyPanel),
		command(constants.CommandApplyPanel),
	}
	for _, cmd := range cases {
		reply := f.handle(t, playerCaller, cmd)
		if reply.Content != msgNoPermission {
			t.Fatalf("command %s: expected no permission, got %q", cmd.Name, reply.Content)
		}
	}
	var n int64
	f.db.Model(&models.WhitelistEntry{}).Count(&n)
	if n != 0 {
		t.Fatalf("unauthorized commands must not write, got %d entries", n)
	}
}

func TestWhitelistAndUnwhitelistCommands(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handle(t, adminCaller, command(constants.CommandWhitelist, "serial", strings.ToLower(testSerial), "discord_id", "123"))
	if reply.Content != "✅ Whitelisted" || len(reply.Embeds) != 1 {
		t.Fatalf("unexpected whitelist reply: %+v", reply)
	}
	if got := reply.Embeds[0].Fields[0].Value; got != testSerial {
		t.Fatalf("expected normalized serial in reply, got %q", got)
	}

	reply = f.handle(t, adminCaller, command(constants.CommandWhitelist, "serial", "short", "discord_id", "123"))
	if reply.Content != msgInvalidSerial {
		t.Fatalf("expected invalid serial reply, got %q", reply.Content)
	}

	reply = f.handle(t, adminCaller, command(constants.CommandUnwhitelist, "serial", testSerial))
	if !strings.Contains(reply.Content, "Removed serial") {
		t.Fatalf("unexpected unwhitelist reply: %q", reply.Content)
	}
	if len(f.kicker.serials) != 1 {
		t.Fatalf("expected kick on revoke")
	}
	reply = f.handle(t, adminCaller, command(constants.CommandUnwhitelist, "serial", testSerial))
	if reply.Content != msgEntryNotFound {
		t.Fatalf("expected not found on second revoke, got %q", reply.Content)
	}
}

func TestVerifyButtonFlow(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handle(t, playerCaller, ButtonPress{ActionID: constants.CustomIDVerify})
	if reply.Content != msgNotWhitelisted {
		t.Fatalf("expected not whitelisted, got %q", reply.Content)
	}

	f.handle(t, adminCaller, command(constants.CommandWhitelist, "serial", testSerial, "discord_id", playerCaller.UserID))
	reply = f.handle(t, playerCaller, ButtonPress{ActionID: constants.CustomIDVerify})
	if reply.Content != "✅ Verified for 5 minutes. Join the server now." || !reply.Ephemeral {
		t.Fatalf("unexpected verify reply: %+v", reply)
	}

	reply = f.handle(t, adminCaller, command(constants.CommandRemoveVerification, "discord_id", playerCaller.UserID))
	if !strings.Contains(reply.Content, "Removed verification") {
		t.Fatalf("unexpected remove verification reply: %q", reply.Content)
	}
	var n int64
	f.db.Model(&models.Session{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected sessions removed, got %d", n)
	}
}

func TestVerifyCodeCommand(t *testing.T) {
	f := newBotFixture(t)
	if err := f.db.Create(&models.VerificationCode{Code: "XY12", Serial: testSerial, IP: "1.2.3.4", Nickname: "Bob", ExpiresAt: f.now.Add(time.Minute)}).Error; err != nil {
		t.Fatalf("seed code failed: %v", err)
	}

	reply := f.handle(t, playerCaller, command(constants.CommandVerifyCode, "code", "xy12", "discord_id", "someone-else"))
	if reply.Content != msgNoPermission {
		t.Fatalf("expected players unable to link codes for others, got %q", reply.Content)
	}
	reply = f.handle(t, playerCaller, command(constants.CommandVerifyCode, "code", "xy12"))
	if !strings.Contains(reply.Content, testSerial) {
		t.Fatalf("expected linked serial in reply, got %q", reply.Content)
	}
	reply = f.handle(t, playerCaller, command(constants.CommandVerifyCode, "code", "xy12"))
	if reply.Content != msgInvalidCode {
		t.Fatalf("expected code to be single use, got %q", reply.Content)
	}
}

func TestWhitelistInfoPagination(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handle(t, adminCaller, command(constants.CommandWhitelistInfo))
	if reply.Content != msgNoEntries {
		t.Fatalf("expected empty list reply, got %q", reply.Content)
	}

	f.handle(t, adminCaller, command(constants.CommandWhitelist, "serial", testSerial, "discord_id", "123"))
	reply = f.handle(t, adminCaller, command(constants.CommandWhitelistInfo, "page", "1"))
	if len(reply.Embeds) != 1 || len(reply.Embeds[0].Fields) != 1 {
		t.Fatalf("unexpected list reply: %+v", reply)
	}
	field := reply.Embeds[0].Fields[0]
	if field.Name != "Serial: AAAAAA..." || !strings.Contains(field.Value, "<@123>") || !strings.Contains(field.Value, "none") {
		t.Fatalf("unexpected list field: %+v", field)
	}
	if reply.Embeds[0].Footer != "Page 1/1 · 1 entries" {
		t.Fatalf("unexpected footer: %q", reply.Embeds[0].Footer)
	}

	reply = f.handle(t, adminCaller, command(constants.CommandWhitelistInfo, "page", "zero"))
	if !strings.Contains(reply.Content, "positive number") {
		t.Fatalf("expected page validation, got %q", reply.Content)
	}
}

func TestPanelCommandsSendToChannel(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handle(t, adminCaller, command(constants.CommandVerifyPanel, "channel", "C1"))
	if reply.Content != "✅ Sent verification panel to <#C1>" {
		t.Fatalf("unexpected panel reply: %q", reply.Content)
	}
	reply = f.handle(t, adminCaller, command(constants.CommandApplyPanel))
	if reply.Content != "✅ Sent application panel to <#here>" {
		t.Fatalf("unexpected apply panel reply: %q", reply.Content)
	}
	if len(f.gateway.messages) != 2 {
		t.Fatalf("expected two panels sent, got %d", len(f.gateway.messages))
	}
	verify := f.gateway.messages[0]
	if verify.channelID != "C1" || len(verify.reply.Buttons) != 1 || verify.reply.Buttons[0].CustomID != constants.CustomIDVerify {
		t.Fatalf("unexpected verify panel: %+v", verify)
	}
	apply := f.gateway.messages[1]
	if apply.reply.Buttons[0].CustomID != constants.CustomIDOpenApplicationForm {
		t.Fatalf("unexpected apply panel: %+v", apply)
	}

	f.gateway.err = errGatewayDown
	reply = f.handle(t, adminCaller, command(constants.CommandVerifyPanel))
	if reply.Content != msgGenericFailure {
		t.Fatalf("expected failure reply when gateway is down, got %q", reply.Content)
	}
}

func TestApplicationFormFlow(t *testing.T) {
	f := newBotFixture(t)
	reply := f.handle(t, playerCaller, ButtonPress{ActionID: constants.CustomIDOpenApplicationForm})
	if reply.Form == nil || reply.Form.ID != constants.FormIDApplication || len(reply.Form.Inputs) != 5 {
		t.Fatalf("expected application form, got %+v", reply)
	}
	serialInput := reply.Form.Inputs[4]
	if serialInput.MinLength != 32 || serialInput.MaxLength != 32 || !serialInput.Required {
		t.Fatalf("unexpected serial input: %+v", serialInput)
	}

	submit := FormSubmit{FormID: constants.FormIDApplication, Fields: map[string]string{
		constants.FormFieldName:       "Bob",
		constants.FormFieldAge:        "21",
		constants.FormFieldIngameName: "Bobby",
		constants.FormFieldIngameAge:  "30",
		constants.FormFieldSerial:     testSerial,
	}}
	reply = f.handle(t, playerCaller, submit)
	if reply.Content != msgApplicationSent {
		t.Fatalf("unexpected submit reply: %q", reply.Content)
	}
	if len(f.gateway.messages) != 1 || f.gateway.messages[0].channelID != "submissions" {
		t.Fatalf("expected review request in submission channel, got %+v", f.gateway.messages)
	}
	review := f.gateway.messages[0].reply
	if len(review.Buttons) != 2 || review.Buttons[0].CustomID != "accept_123" || review.Buttons[1].CustomID != "reject_123" {
		t.Fatalf("unexpected review buttons: %+v", review.Buttons)
	}

	reply = f.handle(t, playerCaller, ButtonPress{ActionID: "accept_123"})
	if reply.Content != msgNoPermission {
		t.Fatalf("expected players unable to review, got %q", reply.Content)
	}
	reply = f.handle(t, adminCaller, ButtonPress{ActionID: "reject_123"})
	if !strings.Contains(reply.Content, "rejected") {
		t.Fatalf("unexpected reject reply: %q", reply.Content)
	}
	if len(f.gateway.dms["123"]) != 1 {
		t.Fatalf("expected rejection dm, got %v", f.gateway.dms)
	}
	reply = f.handle(t, adminCaller, ButtonPress{ActionID: "reject_123"})
	if reply.Content != msgAppReviewed {
		t.Fatalf("expected second reject refused, got %q", reply.Content)
	}
	if len(f.gateway.dms["123"]) != 1 {
		t.Fatalf("expected no extra dm on repeated reject, got %v", f.gateway.dms)
	}

	reply = f.handle(t, playerCaller, submit)
	if reply.Content != msgApplicationSent {
		t.Fatalf("expected one resubmission allowed, got %q", reply.Content)
	}
	reply = f.handle(t, playerCaller, submit)
	if reply.Content != msgLimitReached {
		t.Fatalf("expected limit reached, got %q", reply.Content)
	}

	reply = f.handle(t, adminCaller, ButtonPress{ActionID: "accept_123"})
	if !strings.Contains(reply.Content, "accepted") {
		t.Fatalf("unexpected accept reply: %q", reply.Content)
	}
	reply = f.handle(t, adminCaller, ButtonPress{ActionID: "accept_123"})
	if reply.Content != msgAppNotFound {
		t.Fatalf("expected application gone after accept, got %q", reply.Content)
	}
}

func TestUnknownEventsStillReply(t *testing.T) {
	f := newBotFixture(t)
	if reply := f.handle(t, adminCaller, command("nope")); reply.Content != msgUnknownCommand {
		t.Fatalf("unexpected reply %q", reply.Content)
	}
	if reply := f.handle(t, adminCaller, ButtonPress{ActionID: "mystery"}); reply.Content != msgUnknownAction {
		t.Fatalf("unexpected reply %q", reply.Content)
	}
	if reply := f.handle(t, adminCaller, FormSubmit{FormID: "other"}); reply.Content != msgUnknownAction {
		t.Fatalf("unexpected reply %q", reply.Content)
	}
	if reply := f.handle(t, adminCaller, nil); reply.Content != msgGenericFailure {
		t.Fatalf("unexpected reply for nil event %q", reply.Content)
	}
}

type panickingPolicy struct{}

func (panickingPolicy) IsAuthorized(authz.Caller, string) bool {
	panic("policy exploded")
}

func TestPanicStillRepliesOnce(t *testing.T) {
	d := NewDispatcher(DispatcherDeps{Policy: panickingPolicy{}})
	r := &fakeResponder{}
	state := d.Handle(context.Background(), Interaction{ID: "p", Caller: playerCaller, Event: ButtonPress{ActionID: constants.CustomIDVerify}}, r)
	if state != Responded || r.total() != 1 || r.last().Content != msgGenericFailure {
		t.Fatalf("expected single generic failure reply, state=%s replies=%d", state, r.total())
	}
}

func TestReviewOutcomeIsPublic(t *testing.T) {
	cases := []struct {
		event     Event
		ephemeral bool
	}{
		{event: command(constants.CommandWhitelistInfo), ephemeral: true},
		{event: ButtonPress{ActionID: constants.CustomIDVerify}, ephemeral: true},
		{event: FormSubmit{FormID: constants.FormIDApplication}, ephemeral: true},
		{event: ButtonPress{ActionID: constants.CustomIDAcceptPrefix + "1"}, ephemeral: false},
		{event: ButtonPress{ActionID: constants.CustomIDRejectPrefix + "1"}, ephemeral: false},
	}
	f := newBotFixture(t)
	for _, tc := range cases {
		r := &fakeResponder{}
		f.dispatcher.Handle(context.Background(), Interaction{ID: "v", Caller: adminCaller, Event: tc.event}, r)
		if len(r.defers) != 1 || r.defers[0] != tc.ephemeral {
			t.Fatalf("unexpected deferred visibility for %#v: %v", tc.event, r.defers)
		}
	}
}

type blockingKicker struct {
	responder    *fakeResponder
	ackedBefore  bool
	outcomeFirst bool
	finishedAt   time.Time
}

func (k *blockingKicker) Kick(ctx context.Context, _ string) error {
	k.ackedBefore = k.responder.deferCount() == 1
	k.outcomeFirst = k.responder.followUpCount() == 1
	<-ctx.Done()
	k.finishedAt = time.Now()
	return ctx.Err()
}

func TestUnwhitelistAnswersBeforeSlowKick(t *testing.T) {
	r := &fakeResponder{}
	kicker := &blockingKicker{responder: r}
	f := newBotFixtureWithKicker(t, kicker, 200*time.Millisecond)
	f.handle(t, adminCaller, command(constants.CommandWhitelist, "serial", testSerial, "discord_id", "123"))

	start := time.Now()
	state := f.dispatcher.Handle(context.Background(), Interaction{ID: "u", Caller: adminCaller, Event: command(constants.CommandUnwhitelist, "serial", testSerial)}, r)
	if state != Responded {
		t.Fatalf("expected responded, got %s", state)
	}
	if kicker.finishedAt.IsZero() {
		t.Fatalf("expected kick to run")
	}
	if !kicker.ackedBefore || !kicker.outcomeFirst {
		t.Fatalf("expected ack and outcome before kick, acked=%v outcome=%v", kicker.ackedBefore, kicker.outcomeFirst)
	}
	if !r.firstAt.Before(kicker.finishedAt) {
		t.Fatalf("first response at %v not before kick finished at %v", r.firstAt, kicker.finishedAt)
	}
	if wait := r.firstAt.Sub(start); wait > 100*time.Millisecond {
		t.Fatalf("first response took %v", wait)
	}
	if len(r.followUps) != 1 || !strings.Contains(r.followUps[0].Content, "Removed serial") {
		t.Fatalf("unexpected outcome: %+v", r.followUps)
	}
}

func TestPanicAfterReplyDoesNotReplyTwice(t *testing.T) {
	d := NewDispatcher(DispatcherDeps{})
	r := &fakeResponder{panicAfterSend: true}
	state := d.Handle(context.Background(), Interaction{ID: "m", Caller: playerCaller, Event: ButtonPress{ActionID: constants.CustomIDOpenApplicationForm}}, r)
	if state != Responded {
		t.Fatalf("expected responded after successful reply, got %s", state)
	}
	if len(r.replies) != 1 || len(r.followUps) != 0 {
		t.Fatalf("expected the form reply only, replies=%d follow ups=%d", len(r.replies), len(r.followUps))
	}
}

func TestPanicAfterDeferFollowsUp(t *testing.T) {
	d := NewDispatcher(DispatcherDeps{})
	r := &fakeResponder{panicAfterSend: true}
	state := d.Handle(context.Background(), Interaction{ID: "d", Caller: playerCaller, Event: command("nope")}, r)
	if state != Responded {
		t.Fatalf("expected responded, got %s", state)
	}
	if len(r.defers) != 1 || len(r.replies) != 0 || len(r.followUps) != 1 {
		t.Fatalf("expected failure delivered as follow up, defers=%d replies=%d follow ups=%d", len(r.defers), len(r.replies), len(r.followUps))
	}
	if r.followUps[0].Content != msgGenericFailure {
		t.Fatalf("unexpected follow up %q", r.followUps[0].Content)
	}
}

func TestReplyFailureKeepsState(t *testing.T) {
	d := NewDispatcher(DispatcherDeps{})
	r := &fakeResponder{replyErr: errGatewayDown}
	state := d.Handle(context.Background(), Interaction{ID: "x", Event: command("nope")}, r)
	if state != NotResponded {
		t.Fatalf("expected not responded after failed reply, got %s", state)
	}
}
