package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAdapter posts notifications to one Discord channel.
type DiscordAdapter struct {
	session   discordSession
	channelID string
}

// DiscordOpts holds parameters for NewDiscordAdapter.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
}

// NewDiscordAdapter creates a DiscordAdapter.
func NewDiscordAdapter(opts DiscordOpts) (*DiscordAdapter, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("notify: discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: discord: channel ID is required")
	}
	dg, err := discordgo.New("Bot " + opts.BotToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord: create session: %w", err)
	}
	return &DiscordAdapter{session: dg, channelID: opts.ChannelID}, nil
}

// Name implements Adapter.
func (a *DiscordAdapter) Name() string { return "discord" }

// Send implements Adapter. discordgo's REST calls don't accept a
// context, so the dispatcher timeout only bounds our wait, not the
// underlying request.
func (a *DiscordAdapter) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: discord: %w", err)
	}
	if _, err := a.session.ChannelMessageSend(a.channelID, text); err != nil {
		return fmt.Errorf("notify: discord post to %s: %w", a.channelID, err)
	}
	return nil
}
