// Package channel implements user-facing I/O channels (Telegram, CLI).
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ayaka/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram implements domain.Channel for the Telegram Bot API.
type Telegram struct {
	token     string
	parseMode string
	botName   string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	ParseMode string
	BotName   string // spoken name that summons the bot in groups
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.BotName == "" {
		cfg.BotName = "Ayaka"
	}
	return &Telegram{
		token:     cfg.Token,
		parseMode: cfg.ParseMode,
		botName:   cfg.BotName,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	t.registerCommands()

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		t.sendMessage(msg.ChatID, msg.Content)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled, and
// calling StopReceivingUpdates twice panics.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) Send(ctx context.Context, chatID int64, content string) error {
	t.sendMessage(chatID, content)
	return nil
}

// registerCommands publishes the command menu shown in the Telegram client.
func (t *Telegram) registerCommands() {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help information"},
		tgbotapi.BotCommand{Command: "learn", Description: "Browse learning modules"},
		tgbotapi.BotCommand{Command: "crypto", Description: "Learn about cryptocurrency"},
		tgbotapi.BotCommand{Command: "stocks", Description: "Learn about stock trading"},
		tgbotapi.BotCommand{Command: "progress", Description: "Check your progress"},
		tgbotapi.BotCommand{Command: "quiz", Description: "Take a knowledge quiz"},
		tgbotapi.BotCommand{Command: "reset", Description: "Reset your progress"},
	)
	if _, err := t.bot.Request(commands); err != nil {
		t.logger.Warn("set bot commands failed", "error", err)
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}
	msg := update.Message

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	kind := chatKind(msg.Chat)

	// In groups, only react when mentioned, replied to, or called by name.
	if kind.IsGroup() && !msg.IsCommand() && !t.addressed(msg, text) {
		return
	}

	inbound := domain.InboundMessage{
		Channel:   "telegram",
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Handle:    msg.From.UserName,
		FirstName: msg.From.FirstName,
		ChatKind:  kind,
		Text:      text,
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.IsCommand() {
		inbound.Command = msg.Command()
		inbound.Text = strings.TrimSpace(msg.CommandArguments())
	}

	t.logger.Info("telegram message received",
		"user_id", inbound.UserID,
		"chat_id", inbound.ChatID,
		"command", inbound.Command,
		"text_len", len(inbound.Text),
	)

	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	_, _ = t.bot.Request(typing)

	t.bus.Publish(inbound)
}

// addressed reports whether a group message summons the bot: an @mention,
// a reply to one of the bot's messages, or the bot's name in the text.
func (t *Telegram) addressed(msg *tgbotapi.Message, text string) bool {
	if t.bot.Self.UserName != "" && strings.Contains(text, "@"+t.bot.Self.UserName) {
		return true
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.IsBot {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(t.botName))
}

func chatKind(chat *tgbotapi.Chat) domain.ChatKind {
	switch {
	case chat.IsGroup():
		return domain.KindGroup
	case chat.IsSuperGroup():
		return domain.KindSupergroup
	default:
		return domain.KindPrivate
	}
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram caps messages at 4096 chars; split on line breaks.
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit handling.
// Strategy: try the configured parse mode first, on parse error fall back to
// plain text, then retry with backoff.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram parse error, retrying as plain text", "err", err)
			plainMsg := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", maxRetries+1)
	}
}
