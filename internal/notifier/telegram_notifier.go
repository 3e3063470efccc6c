package notifier

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"
)

// telegramMaxMessageLength is the Bot API limit for a message text, in characters.
const telegramMaxMessageLength = 4096

// MessageSender is the part of *telego.Bot used to deliver text.
type MessageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramNotifier delivers slot notifications and command replies as plain text.
type TelegramNotifier struct {
	sender    MessageSender
	formatter *Formatter
	logger    zerolog.Logger
}

// NewTelegramNotifier creates a notifier sending through sender.
func NewTelegramNotifier(sender MessageSender, formatter *Formatter, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:    sender,
		formatter: formatter,
		logger:    logger.With().Str("module", "TelegramNotifier").Logger(),
	}
}

// Notify sends the new-slots message for n to its owner.
func (tn *TelegramNotifier) Notify(ctx context.Context, n models.SlotNotification) error {
	text := tn.formatter.NewSlotsMessage(n.Label, n.URL, n.Slots)
	if text == "" {
		return nil
	}
	if err := tn.Send(ctx, n.OwnerID, text); err != nil {
		return err
	}
	tn.logger.Info().
		Int64("owner_id", n.OwnerID).
		Int64("resource_id", n.ResourceID).
		Int("slots", len(n.Slots)).
		Bool("retry", n.Retry).
		Msg("Slot notification sent")
	return nil
}

// Send delivers text to a chat, truncated to the message size limit.
func (tn *TelegramNotifier) Send(ctx context.Context, chatID int64, text string) error {
	if tn.sender == nil {
		return &NotificationError{OwnerID: chatID, Err: errors.New("no telegram sender configured")}
	}
	_, err := tn.sender.SendMessage(ctx, tu.Message(tu.ID(chatID), truncate(text, telegramMaxMessageLength)))
	if err != nil {
		tn.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send telegram message")
		return &NotificationError{OwnerID: chatID, Err: err}
	}
	return nil
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-3]) + "..."
}
