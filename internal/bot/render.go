package bot

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/serialguard/internal/constants"
	"github.com/serialguard/internal/service"
)

const (
	colorOK   = 0x00ff00
	colorInfo = 0x0099ff
	colorWarn = 0xffa500
)

const (
	msgNoPermission    = "❌ No permission."
	msgGenericFailure  = "❌ An error occurred."
	msgUnknownCommand  = "❌ Unknown command."
	msgUnknownAction   = "❌ Unknown action."
	msgInvalidSerial   = "❌ Invalid serial. It must be exactly 32 hexadecimal characters."
	msgMissingField    = "❌ Missing required field."
	msgAppNotFound     = "❌ Application not found."
	msgAppReviewed     = "❌ Application has already been reviewed."
	msgEntryNotFound   = "❌ Serial is not on the whitelist."
	msgNotWhitelisted  = "❌ You must be whitelisted first."
	msgInvalidCode     = "❌ Invalid or expired code."
	msgLimitReached    = "❌ You have already used your reapplication. Further applications are not accepted."
	msgNoEntries       = "No entries."
	msgApplicationSent = "✅ Your application has been submitted for review."
)

func mentionUser(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

func mentionChannel(id string) string {
	return fmt.Sprintf("<#%s>", id)
}

func codeSpan(s string) string {
	return "`" + s + "`"
}

func textReply(content string) Reply {
	return Reply{Content: content, Ephemeral: true}
}

func failureReply() Reply {
	return textReply(msgGenericFailure)
}

// errorMessage 将业务错误映射为用户可见文案，未分类错误统一为通用失败
func errorMessage(err error) string {
	switch service.Kind(err) {
	case service.KindValidation:
		if errors.Is(err, service.ErrInvalidSerial) {
			return msgInvalidSerial
		}
		return msgMissingField
	case service.KindNotFound:
		if errors.Is(err, service.ErrApplicationReviewed) {
			return msgAppReviewed
		}
		if errors.Is(err, service.ErrApplicationNotFound) {
			return msgAppNotFound
		}
		return msgEntryNotFound
	case service.KindNotWhitelisted:
		return msgNotWhitelisted
	case service.KindInvalidOrExpired:
		return msgInvalidCode
	case service.KindRetryLimitExceeded:
		return msgLimitReached
	case service.KindUnauthorized:
		return msgNoPermission
	default:
		return msgGenericFailure
	}
}

func verifyPanelReply() Reply {
	return Reply{
		Embeds: []Embed{{
			Title:       "🔗 MTA:SA Verification",
			Color:       colorOK,
			Description: "**Step 1:** Get a code in-game.\n**Step 2:** Use /verifycode <code>.\n**Step 3:** Press button below to temporarily verify.",
		}},
		Buttons: []Button{{CustomID: constants.CustomIDVerify, Label: "✅ Verify", Style: ButtonSuccess}},
	}
}

func applyPanelReply() Reply {
	return Reply{
		Embeds: []Embed{{
			Title:       "📝 Whitelist Application",
			Color:       colorInfo,
			Description: "Press the button below and fill in the form to apply for the whitelist.\nYour serial can be found by typing `serial` in the MTA:SA console (F8).",
		}},
		Buttons: []Button{{CustomID: constants.CustomIDOpenApplicationForm, Label: "Apply", Style: ButtonPrimary}},
	}
}

func applicationForm() *Form {
	return &Form{
		ID:    constants.FormIDApplication,
		Title: "Whitelist Application",
		Inputs: []TextInput{
			{ID: constants.FormFieldName, Label: "Name", Required: true, MaxLength: 100},
			{ID: constants.FormFieldAge, Label: "Age", Required: true, MaxLength: 3},
			{ID: constants.FormFieldIngameName, Label: "In-game Name", Required: true, MaxLength: 100},
			{ID: constants.FormFieldIngameAge, Label: "In-game Age", Required: true, MaxLength: 3},
			{
				ID:        constants.FormFieldSerial,
				Label:     "MTA Serial",
				Required:  true,
				MinLength: constants.SerialLength,
				MaxLength: constants.SerialLength,
			},
		},
	}
}

func sessionStartedMessage(ttl time.Duration) string {
	minutes := int(math.Round(ttl.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("✅ Verified for %d minutes. Join the server now.", minutes)
}

func whitelistInfoReply(page *service.EntryPage) Reply {
	if page == nil || page.Total == 0 {
		return textReply(msgNoEntries)
	}
	embed := Embed{
		Title:  "📋 Whitelist Info",
		Color:  colorInfo,
		Footer: fmt.Sprintf("Page %d/%d · %d entries", page.Page, page.TotalPages, page.Total),
	}
	if len(page.Items) == 0 {
		embed.Description = "No entries on this page."
	}
	for _, item := range page.Items {
		session := "⚪ none"
		if item.HasSession {
			session = "🟢 active"
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:   fmt.Sprintf("Serial: %s...", shortSerial(item.Entry.Serial)),
			Value:  fmt.Sprintf("User: %s\nBy: %s\nSession: %s", mentionUser(item.Entry.OwnerID), mentionUser(item.Entry.GrantedBy), session),
			Inline: true,
		})
	}
	return Reply{Embeds: []Embed{embed}, Ephemeral: true}
}

func shortSerial(serial string) string {
	if len(serial) <= 6 {
		return serial
	}
	return serial[:6]
}
