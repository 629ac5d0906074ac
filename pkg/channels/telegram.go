package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/witong42/OpenSpore/pkg/bus"
	"github.com/witong42/OpenSpore/pkg/config"
	"github.com/witong42/OpenSpore/pkg/logger"
	"github.com/witong42/OpenSpore/pkg/utils"
)

// telegramMessageLimit is Telegram's hard cap per message.
const telegramMessageLimit = 4096

type TelegramChannel struct {
	*BaseChannel
	bot           *telego.Bot
	config        config.TelegramConfig
	cancelPolling context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", b, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	botInfo, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	logger.InfoCF("telegram", "bot connected", map[string]interface{}{"username": botInfo.Username})

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancelPolling = cancel

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}
	c.setRunning(true)

	go func() {
		for update := range updates {
			if update.Message != nil {
				c.handleUpdate(ctx, update)
			}
		}
		logger.InfoC("telegram", "updates channel closed")
	}()

	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.cancelPolling != nil {
		c.cancelPolling()
		c.cancelPolling = nil
	}
	return nil
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}

	var chatID int64
	if _, err := fmt.Sscanf(msg.ChatID, "%d", &chatID); err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}

	for _, chunk := range splitMessage(msg.Content, telegramMessageLimit) {
		params := tu.Message(tu.ID(chatID), chunk)
		if err := c.sendWithRetry(func() error {
			_, e := c.bot.SendMessage(ctx, params)
			return e
		}); err != nil {
			return err
		}
	}
	return nil
}

// sendWithRetry honors Telegram's retry_after hint on rate limits.
func (c *TelegramChannel) sendWithRetry(fn func() error) error {
	const maxRetries = 3
	for i := 0; i <= maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		var tgErr *telegoapi.Error
		if errors.As(err, &tgErr) && tgErr.Parameters != nil && tgErr.Parameters.RetryAfter > 0 {
			wait := time.Duration(tgErr.Parameters.RetryAfter) * time.Second
			logger.WarnCF("telegram", "rate limited", map[string]interface{}{"retry_after": wait.String()})
			time.Sleep(wait)
			continue
		}
		return err
	}
	return fmt.Errorf("telegram rate limit: max retries exceeded")
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, update telego.Update) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	senderID := fmt.Sprintf("%d", message.From.ID)
	chatID := fmt.Sprintf("%d", message.Chat.ID)

	content := message.Text
	if message.Caption != "" {
		if content != "" {
			content += "\n"
		}
		content += message.Caption
	}
	if content == "" {
		content = "[empty message]"
	}

	logger.InfoCF("telegram", "message received", map[string]interface{}{
		"sender":  senderID,
		"preview": utils.Truncate(content, 50),
	})

	if !c.IsAllowed(senderID) {
		logger.WarnCF("telegram", "sender not in allow list, ignoring", map[string]interface{}{"sender": senderID})
		return
	}

	// Acknowledge while the brain works.
	c.sendWithRetry(func() error {
		return c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(message.Chat.ID), telego.ChatActionTyping))
	})

	c.HandleMessage(senderID, chatID, content, map[string]string{
		"message_id": fmt.Sprintf("%d", message.MessageID),
		"username":   message.From.Username,
	})
}

// splitMessage breaks long answers on line boundaries where possible.
func splitMessage(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}
	var chunks []string
	for len(s) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if s[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
