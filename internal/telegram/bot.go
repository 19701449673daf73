// Package telegram adapts the Telegram Bot API to the messaging.Messenger
// abstraction and routes inbound updates to the lottery services.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nightcrane/lotterybot/internal/messaging"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure Bot implements messaging.Messenger
var _ messaging.Messenger = (*Bot)(nil)

// Bot wraps the Telegram Bot API client
type Bot struct {
	api *tgbotapi.BotAPI
}

// NewBot authorizes against the Telegram Bot API
func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	api.Debug = false
	slog.Info("bot authorized", "username", api.Self.UserName, "id", api.Self.ID)
	return &Bot{api: api}, nil
}

// BotID returns the bot's own user id
func (b *Bot) BotID() int64 {
	return b.api.Self.ID
}

// BotName returns the bot's public username
func (b *Bot) BotName() string {
	return b.api.Self.UserName
}

// Send posts a plain message and returns its message id
func (b *Bot) Send(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Reply answers within a conversation, rendering choices as a one-tap reply
// keyboard
func (b *Bot) Reply(ctx context.Context, chatID int64, reply messaging.Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Choices) > 0 {
		buttons := make([]tgbotapi.KeyboardButton, len(reply.Choices))
		for i, choice := range reply.Choices {
			buttons[i] = tgbotapi.NewKeyboardButton(choice)
		}
		keyboard := tgbotapi.NewReplyKeyboard(buttons)
		keyboard.ResizeKeyboard = true
		msg.ReplyMarkup = keyboard
	} else if reply.RemoveChoices {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	_, err := b.api.Send(msg)
	return err
}

// AttachJoinButton edits an announcement to carry the inline join control
func (b *Bot) AttachJoinButton(ctx context.Context, chatID int64, messageID int, lotteryID string) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Join the lottery", encodeJoinCallback(lotteryID)),
		),
	)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	_, err := b.api.Request(edit)
	return err
}

// GetMembership looks up a user's status in a chat
func (b *Bot) GetMembership(ctx context.Context, chatID, userID int64) (messaging.MemberStatus, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", err
	}
	switch member.Status {
	case "creator":
		return messaging.StatusOwner, nil
	case "administrator":
		return messaging.StatusAdmin, nil
	case "member":
		return messaging.StatusMember, nil
	case "kicked":
		return messaging.StatusBanned, nil
	default:
		return messaging.StatusLeft, nil
	}
}
