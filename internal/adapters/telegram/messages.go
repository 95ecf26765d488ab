package telegram

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// headlines maps event kinds to the first line of a notification.
var headlines = map[domain.Kind]string{
	domain.KindUserRegistered:       "New user registered",
	domain.KindVerificationApproved: "Verification approved",
	domain.KindVerificationRejected: "Verification rejected",
}

// Builder helps construct SendMessageParams.
type Builder struct {
	params ports.SendMessageParams
}

// NewBuilder creates a new message builder.
func NewBuilder(chatID int64) *Builder {
	return &Builder{
		params: ports.SendMessageParams{
			ChatID:    chatID,
			ParseMode: tgbotapi.ModeMarkdownV2,
		},
	}
}

// WithText sets the message text verbatim.
func (b *Builder) WithText(text string) *Builder {
	b.params.Text = text
	return b
}

// WithParseMode overrides the default parse mode.
func (b *Builder) WithParseMode(mode string) *Builder {
	b.params.ParseMode = mode
	return b
}

// ForEvent renders evt as the message text, escaping every value for the
// current parse mode.
func (b *Builder) ForEvent(evt domain.Event) *Builder {
	esc := func(s string) string {
		if b.params.ParseMode == "" {
			return s
		}
		return tgbotapi.EscapeText(b.params.ParseMode, s)
	}

	headline, ok := headlines[evt.Kind]
	if !ok {
		headline = fmt.Sprintf("Event %s", evt.Kind)
	}

	var sb strings.Builder
	sb.WriteString(bold(b.params.ParseMode, esc(headline)))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Subject: %s\n", esc(evt.Subject))
	if evt.Payload != "" {
		fmt.Fprintf(&sb, "Details: %s\n", esc(evt.Payload))
	}
	fmt.Fprintf(&sb, "At: %s\n", esc(evt.OccurredAt.UTC().Format(time.RFC3339)))
	fmt.Fprintf(&sb, "ID: %s", esc(evt.ID.String()))

	b.params.Text = sb.String()
	return b
}

// Build returns the final SendMessageParams struct.
func (b *Builder) Build() ports.SendMessageParams {
	return b.params
}

func bold(mode, s string) string {
	switch mode {
	case tgbotapi.ModeMarkdownV2, tgbotapi.ModeMarkdown:
		return "*" + s + "*"
	case tgbotapi.ModeHTML:
		return "<b>" + s + "</b>"
	}
	return s
}
