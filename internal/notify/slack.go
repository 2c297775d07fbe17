package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackAdapter posts notifications to one Slack channel.
type SlackAdapter struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for NewSlackAdapter.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
}

// NewSlackAdapter creates a SlackAdapter.
func NewSlackAdapter(opts SlackOpts) (*SlackAdapter, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("notify: slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack: channel ID is required")
	}
	return &SlackAdapter{
		client:    slackapi.New(opts.BotToken),
		channelID: opts.ChannelID,
	}, nil
}

// Name implements Adapter.
func (a *SlackAdapter) Name() string { return "slack" }

// Send implements Adapter.
func (a *SlackAdapter) Send(ctx context.Context, text string) error {
	_, _, err := a.client.PostMessageContext(ctx, a.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", a.channelID, err)
	}
	return nil
}
