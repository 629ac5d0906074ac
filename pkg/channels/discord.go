package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/witong42/OpenSpore/pkg/bus"
	"github.com/witong42/OpenSpore/pkg/config"
	"github.com/witong42/OpenSpore/pkg/logger"
	"github.com/witong42/OpenSpore/pkg/utils"
)

// discordMessageLimit is Discord's per-message cap.
const discordMessageLimit = 2000

type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
}

func NewDiscordChannel(cfg config.DiscordConfig, b *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", b, cfg.AllowFrom),
		session:     session,
		config:      cfg,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.onMessageCreate)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	c.setRunning(true)
	logger.InfoCF("discord", "bot connected", map[string]interface{}{"user": c.session.State.User.Username})
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	return c.session.Close()
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	for _, chunk := range splitMessage(msg.Content, discordMessageLimit) {
		if _, err := c.session.ChannelMessageSend(msg.ChatID, chunk); err != nil {
			return fmt.Errorf("discord send: %w", err)
		}
	}
	return nil
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	content := m.Content
	if content == "" {
		content = "[empty message]"
	}

	logger.InfoCF("discord", "message received", map[string]interface{}{
		"sender":  m.Author.ID,
		"preview": utils.Truncate(content, 50),
	})

	if !c.IsAllowed(m.Author.ID) && !c.IsAllowed(m.Author.Username) {
		logger.WarnCF("discord", "sender not in allow list, ignoring", map[string]interface{}{"sender": m.Author.ID})
		return
	}

	c.HandleMessage(m.Author.ID, m.ChannelID, content, map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
	})
}
