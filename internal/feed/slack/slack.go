// Package slack implements the feed Adapter for Slack using the Web API.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/taskboard/internal/feed"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements feed.Adapter for Slack. Outbound only, no Socket Mode.
type Adapter struct {
	client  slackClient
	channel string
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken string // xoxb-... Slack bot token
	Channel  string // channel to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}

	a := &Adapter{channel: opts.Channel}
	if opts.Client != nil {
		a.client = opts.Client
	} else {
		a.client = slackapi.New(opts.BotToken)
	}
	return a, nil
}

// Send posts one event to the configured channel as a colored attachment.
func (a *Adapter) Send(ctx context.Context, e feed.Event) error {
	attachment := slackapi.Attachment{
		Color:  feed.ActionColor(e.Action),
		Title:  feed.Title(e),
		Text:   e.Details,
		Footer: footer(e),
		Ts:     json.Number(strconv.FormatInt(e.When.Unix(), 10)),
	}
	for _, f := range attachmentFields(e) {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.title,
			Value: f.value,
			Short: true,
		})
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channel, slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Web API client holds no connection.
func (a *Adapter) Close() error { return nil }

type field struct {
	title, value string
}

func footer(e feed.Event) string {
	if e.Actor == "" {
		return ""
	}
	return "by " + e.Actor
}

// attachmentFields surfaces the column transition on moves.
func attachmentFields(e feed.Event) []field {
	var fields []field
	if from, ok := e.Metadata["from"]; ok {
		fields = append(fields, field{"From", from})
	}
	if to, ok := e.Metadata["to"]; ok {
		fields = append(fields, field{"To", to})
	}
	return fields
}
