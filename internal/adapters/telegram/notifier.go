package telegram

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ Sender = (*tgbotapi.BotAPI)(nil)

// notifier implements ports.NotifierPort by posting to one chat.
type notifier struct {
	api    Sender
	chatID int64
	log    zerolog.Logger
}

var _ ports.NotifierPort = (*notifier)(nil)

// NewNotifier creates a notifier posting to chatID.
func NewNotifier(api Sender, chatID int64, baseLogger *zerolog.Logger) ports.NotifierPort {
	log := baseLogger.With().Str("component", "tg_notifier").Int64("chat_id", chatID).Logger()
	return &notifier{api: api, chatID: chatID, log: log}
}

// NewBotNotifier connects to the Bot API with token and returns a notifier.
func NewBotNotifier(token string, chatID int64, debug bool, baseLogger *zerolog.Logger) (ports.NotifierPort, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Bot API: %w", err)
	}
	api.Debug = debug
	baseLogger.Info().Str("username", api.Self.UserName).Msg("Bot API connected")
	return NewNotifier(api, chatID, baseLogger), nil
}

// Notify renders evt and sends it. The context is accepted for interface
// symmetry; the Bot API client has no per-call cancellation.
func (n *notifier) Notify(ctx context.Context, evt domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := NewBuilder(n.chatID).ForEvent(evt).Build()

	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode

	if _, err := n.api.Send(msg); err != nil {
		n.log.Error().Err(err).Str("event_id", evt.ID.String()).Msg("Failed to send notification")
		return fmt.Errorf("could not notify event %s: %w", evt.ID, err)
	}

	n.log.Debug().Str("event_id", evt.ID.String()).Str("kind", evt.Kind.String()).Msg("Notification sent")
	return nil
}
