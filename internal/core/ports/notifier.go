package ports

import (
	"EventRelay/internal/core/domain"
	"context"
)

// SendMessageParams holds the options for one outbound chat message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "MarkdownV2" or "HTML"
}

// NotifierPort posts delivered events to humans.
type NotifierPort interface {
	Notify(ctx context.Context, event domain.Event) error
}
