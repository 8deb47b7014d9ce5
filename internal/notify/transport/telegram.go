package transport

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kitmatch/internal/notify/models"
)

// BotSender is the part of *tgbotapi.BotAPI the transport needs.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts the match summary to the operators' chat so the post can
// prepare the kit.
type Telegram struct {
	bot    BotSender
	chatID int64
}

func NewTelegram(bot BotSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return NewTelegram(api, chatID), nil
}

func (t *Telegram) Name() string { return NameTelegram }

func (t *Telegram) Send(ctx context.Context, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewMessage(t.chatID, msg.Summary)
	out.DisableWebPagePreview = true
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
