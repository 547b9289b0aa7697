package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tenf/portal/internal/config"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/models/dtos"
)

const discordPageSize = 1000

// DiscordProvider talks to the Discord REST API with the bot token.
type DiscordProvider struct {
	BaseURL  string
	BotToken string
	GuildID  string
	Client   *http.Client
}

func NewDiscordProvider(cfg config.DiscordConfig) *DiscordProvider {
	return &DiscordProvider{
		BaseURL:  cfg.APIBaseURL,
		BotToken: cfg.BotToken,
		GuildID:  cfg.GuildID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *DiscordProvider) GetProviderType() string {
	return "discord"
}

func (p *DiscordProvider) get(ctx context.Context, endpoint string, result interface{}) (int, error) {
	if p.BotToken == "" || p.GuildID == "" {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNotConfigured,
			Message: "DISCORD_BOT_TOKEN and DISCORD_GUILD_ID must be set",
		}
	}
	return doGET(ctx, p.Client, p.BaseURL+endpoint, func(r *http.Request) {
		r.Header.Set("Authorization", "Bot "+p.BotToken)
	}, result)
}

// GetGuildMembers pages through the whole guild roster.
func (p *DiscordProvider) GetGuildMembers(ctx context.Context) ([]dtos.DiscordGuildMember, error) {
	var (
		all   []dtos.DiscordGuildMember
		after string
	)
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(discordPageSize))
		if after != "" {
			q.Set("after", after)
		}

		var batch []dtos.DiscordGuildMember
		endpoint := fmt.Sprintf("/guilds/%s/members?%s", p.GuildID, q.Encode())
		if _, err := p.get(ctx, endpoint, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < discordPageSize {
			return all, nil
		}
		after = batch[len(batch)-1].User.ID
	}
}

// GetGuildMember returns (nil, nil) when the user is not in the guild.
func (p *DiscordProvider) GetGuildMember(ctx context.Context, userID string) (*dtos.DiscordGuildMember, error) {
	if userID == "" {
		return nil, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Discord user ID cannot be empty",
		}
	}

	var member dtos.DiscordGuildMember
	status, err := p.get(ctx, fmt.Sprintf("/guilds/%s/members/%s", p.GuildID, userID), &member)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetChannelMessages returns up to limit messages newer than after, oldest first.
func (p *DiscordProvider) GetChannelMessages(ctx context.Context, channelID, after string, limit int) ([]dtos.DiscordMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if after != "" {
		q.Set("after", after)
	}

	var msgs []dtos.DiscordMessage
	if _, err := p.get(ctx, fmt.Sprintf("/channels/%s/messages?%s", channelID, q.Encode()), &msgs); err != nil {
		return nil, err
	}

	// Discord returns newest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
