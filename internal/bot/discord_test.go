package bot

import (
	"testing"

	"github.com/serialguard/internal/constants"

	"github.com/bwmarrin/discordgo"
)

func TestToInteractionCommand(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "i1",
		ChannelID: "c1",
		Type:      discordgo.InteractionApplicationCommand,
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}, Roles: []string{"r1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: constants.CommandWhitelistInfo,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "page", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
				{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "c9"},
			},
		},
	}}
	in, ok := ToInteraction(i)
	if !ok {
		t.Fatalf("expected command interaction to convert")
	}
	cmd, ok := in.Event.(Command)
	if !ok || cmd.Name != constants.CommandWhitelistInfo {
		t.Fatalf("unexpected event: %#v", in.Event)
	}
	if cmd.Arg("page") != "3" || cmd.Arg("channel") != "c9" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
	if in.Caller.UserID != "u1" || len(in.Caller.RoleIDs) != 1 || in.ChannelID != "c1" {
		t.Fatalf("unexpected caller: %+v", in)
	}
}

func TestToInteractionComponentAndModal(t *testing.T) {
	press := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		User: &discordgo.User{ID: "dm-user"},
		Data: discordgo.MessageComponentInteractionData{CustomID: "accept_5"},
	}}
	in, ok := ToInteraction(press)
	if !ok || in.Event != (ButtonPress{ActionID: "accept_5"}) || in.Caller.UserID != "dm-user" {
		t.Fatalf("unexpected button interaction: %+v", in)
	}

	modal := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionModalSubmit,
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: constants.FormIDApplication,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: constants.FormFieldSerial, Value: "abc"},
				}},
			},
		},
	}}
	in, ok = ToInteraction(modal)
	if !ok {
		t.Fatalf("expected modal interaction to convert")
	}
	form, ok := in.Event.(FormSubmit)
	if !ok || form.FormID != constants.FormIDApplication || form.Field(constants.FormFieldSerial) != "abc" {
		t.Fatalf("unexpected form event: %#v", in.Event)
	}

	if _, ok := ToInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: discordgo.InteractionPing}}); ok {
		t.Fatalf("expected ping to be ignored")
	}
	if _, ok := ToInteraction(nil); ok {
		t.Fatalf("expected nil interaction to be ignored")
	}
}

func TestToInteractionResponse(t *testing.T) {
	resp := toInteractionResponse(Reply{Form: applicationForm()})
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != constants.FormIDApplication {
		t.Fatalf("unexpected modal response: %+v", resp)
	}
	if len(resp.Data.Components) != 5 {
		t.Fatalf("expected one row per input, got %d", len(resp.Data.Components))
	}

	resp = toInteractionResponse(verifyPanelReply())
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource || resp.Data.Flags != 0 {
		t.Fatalf("unexpected panel response: %+v", resp)
	}
	if len(resp.Data.Components) != 1 || len(resp.Data.Embeds) != 1 {
		t.Fatalf("expected embed and button row in panel")
	}

	resp = toInteractionResponse(textReply("hi"))
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected ephemeral flag")
	}
}

func TestToDeferredResponse(t *testing.T) {
	resp := toDeferredResponse(true)
	if resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("unexpected deferred type: %v", resp.Type)
	}
	if resp.Data == nil || resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected ephemeral deferred response")
	}
	if resp := toDeferredResponse(false); resp.Data != nil {
		t.Fatalf("expected public deferred response without data, got %+v", resp.Data)
	}
}

func TestCommandsCoverHandledNames(t *testing.T) {
	want := map[string]bool{
		constants.CommandWhitelist:          false,
		constants.CommandUnwhitelist:        false,
		constants.CommandRemoveVerification: false,
		constants.CommandVerifyCode:         false,
		constants.CommandWhitelistInfo:      false,
		constants.CommandVerifyPanel:        false,
		constants.CommandApplyPanel:         false,
	}
	for _, cmd := range Commands() {
		if _, ok := want[cmd.Name]; !ok {
			t.Fatalf("unexpected command %s", cmd.Name)
		}
		want[cmd.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("command %s not registered", name)
		}
	}
}
