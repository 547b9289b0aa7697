package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tenf/portal/internal/config"
	"tenf/portal/internal/models/dtos"

	"golang.org/x/oauth2"
)

var (
	DiscordEndpoint = oauth2.Endpoint{
		AuthURL:   "https://discord.com/oauth2/authorize",
		TokenURL:  "https://discord.com/api/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	TwitchEndpoint = oauth2.Endpoint{
		AuthURL:   "https://id.twitch.tv/oauth2/authorize",
		TokenURL:  "https://id.twitch.tv/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
)

func NewDiscordOAuthConfig(cfg config.DiscordConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"identify", "guilds.members.read"},
		Endpoint:     DiscordEndpoint,
	}
}

func NewTwitchOAuthConfig(cfg config.TwitchConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"user:read:follows"},
		Endpoint:     TwitchEndpoint,
	}
}

// IdentityProvider resolves the account behind a user token obtained
// through one of the authorization-code flows.
type IdentityProvider struct {
	DiscordBaseURL string
	HelixBaseURL   string
	TwitchClientID string
	// HTTPClient is used for the token exchange and identity calls; nil
	// means http.DefaultClient.
	HTTPClient *http.Client
}

func (p *IdentityProvider) withClient(ctx context.Context) context.Context {
	if p.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}
	return ctx
}

// Exchange trades an authorization code for a token.
func (p *IdentityProvider) Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := conf.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange failed: %w", err)
	}
	return tok, nil
}

func (p *IdentityProvider) DiscordUser(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*dtos.DiscordUser, error) {
	client := conf.Client(p.withClient(ctx), tok)
	var user dtos.DiscordUser
	if _, err := doGET(ctx, client, strings.TrimRight(p.DiscordBaseURL, "/")+"/users/@me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *IdentityProvider) TwitchUser(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*dtos.TwitchUser, error) {
	client := conf.Client(p.withClient(ctx), tok)
	var resp dtos.HelixResponse[dtos.TwitchUser]
	_, err := doGET(ctx, client, strings.TrimRight(p.HelixBaseURL, "/")+"/users", func(r *http.Request) {
		r.Header.Set("Client-Id", p.TwitchClientID)
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("twitch returned no user for token")
	}
	return &resp.Data[0], nil
}
