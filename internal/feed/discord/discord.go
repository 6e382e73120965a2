// Package discord implements the feed Adapter for Discord.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/taskboard/internal/feed"
)

// Embed sidebar colors, Discord wants them as integers.
const (
	colorSuccess = 0x36a64f
	colorInfo    = 0x2196f3
	colorWarning = 0xff9800
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Adapter implements feed.Adapter for Discord. Outbound only; the session
// never opens the Gateway WebSocket.
type Adapter struct {
	sess      session
	channelID string
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // Discord bot token
	ChannelID string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}

	a := &Adapter{channelID: opts.ChannelID}
	if opts.Session != nil {
		a.sess = opts.Session
	} else {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		a.sess = dg
	}
	return a, nil
}

// Send posts one event to the configured channel as an embed.
func (a *Adapter) Send(ctx context.Context, e feed.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       feed.Title(e),
		Description: e.Details,
		Color:       actionColor(e.Action),
		Fields:      embedFields(e),
	}
	if e.Actor != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "by " + e.Actor}
	}
	if !e.When.IsZero() {
		embed.Timestamp = e.When.Format("2006-01-02T15:04:05Z07:00")
	}

	_, err := a.sess.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Close releases the underlying session.
func (a *Adapter) Close() error {
	if err := a.sess.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	return nil
}

func actionColor(action string) int {
	switch action {
	case "task_completed", "subtask_completed":
		return colorSuccess
	case "task_deleted", "project_deleted":
		return colorWarning
	default:
		return colorInfo
	}
}

func embedFields(e feed.Event) []*discordgo.MessageEmbedField {
	var fields []*discordgo.MessageEmbedField
	if from, ok := e.Metadata["from"]; ok {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "From", Value: from, Inline: true})
	}
	if to, ok := e.Metadata["to"]; ok {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "To", Value: to, Inline: true})
	}
	return fields
}
