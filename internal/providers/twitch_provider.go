package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tenf/portal/internal/config"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/models/dtos"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

const (
	twitchTokenURL     = "https://id.twitch.tv/oauth2/token"
	helixMaxPerRequest = 100
	helixConcurrency   = 4
)

// TwitchProvider calls the Helix API with an app access token.
type TwitchProvider struct {
	BaseURL  string
	ClientID string
	Client   *http.Client
}

// clientIDTransport adds the Client-Id header Helix requires on every call.
type clientIDTransport struct {
	clientID string
	base     http.RoundTripper
}

func (t *clientIDTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.Header.Set("Client-Id", t.clientID)
	return t.base.RoundTrip(r2)
}

// NewTwitchProvider builds a provider whose client fetches and refreshes the
// app token through the client-credentials grant.
func NewTwitchProvider(ctx context.Context, cfg config.TwitchConfig) *TwitchProvider {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     twitchTokenURL,
	}
	oauthClient := cc.Client(ctx)

	return &TwitchProvider{
		BaseURL:  cfg.HelixBaseURL,
		ClientID: cfg.ClientID,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &clientIDTransport{clientID: cfg.ClientID, base: oauthClient.Transport},
		},
	}
}

func (p *TwitchProvider) GetProviderType() string {
	return "twitch_helix"
}

func (p *TwitchProvider) get(ctx context.Context, endpoint string, result interface{}) error {
	if p.ClientID == "" {
		return &ProviderError{
			Code:    constants.ErrCodeNotConfigured,
			Message: "TWITCH_CLIENT_ID must be set",
		}
	}
	_, err := doGET(ctx, p.Client, p.BaseURL+endpoint, nil, result)
	return err
}

// batched splits values into Helix-sized chunks and runs fetch on each
// concurrently, concatenating the results in chunk order.
func batched[T any](ctx context.Context, values []string, fetch func(ctx context.Context, chunk []string) ([]T, error)) ([]T, error) {
	var chunks [][]string
	for start := 0; start < len(values); start += helixMaxPerRequest {
		end := start + helixMaxPerRequest
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}

	results := make([][]T, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(helixConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			data, err := fetch(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (p *TwitchProvider) GetUsers(ctx context.Context, logins []string) ([]dtos.TwitchUser, error) {
	return batched(ctx, logins, func(ctx context.Context, chunk []string) ([]dtos.TwitchUser, error) {
		q := url.Values{}
		for _, l := range chunk {
			q.Add("login", l)
		}
		var resp dtos.HelixResponse[dtos.TwitchUser]
		if err := p.get(ctx, "/users?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		return resp.Data, nil
	})
}

// GetStreams returns the live streams among logins.
func (p *TwitchProvider) GetStreams(ctx context.Context, logins []string) ([]dtos.TwitchStream, error) {
	return batched(ctx, logins, func(ctx context.Context, chunk []string) ([]dtos.TwitchStream, error) {
		q := url.Values{}
		q.Set("first", strconv.Itoa(helixMaxPerRequest))
		for _, l := range chunk {
			q.Add("user_login", l)
		}
		var resp dtos.HelixResponse[dtos.TwitchStream]
		if err := p.get(ctx, "/streams?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		return resp.Data, nil
	})
}

func (p *TwitchProvider) GetClips(ctx context.Context, broadcasterID string, first int) ([]dtos.TwitchClip, error) {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", strconv.Itoa(clampFirst(first)))
	var resp dtos.HelixResponse[dtos.TwitchClip]
	if err := p.get(ctx, "/clips?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *TwitchProvider) GetVideos(ctx context.Context, userID string, first int) ([]dtos.TwitchVideo, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("first", strconv.Itoa(clampFirst(first)))
	var resp dtos.HelixResponse[dtos.TwitchVideo]
	if err := p.get(ctx, "/videos?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func clampFirst(first int) int {
	if first <= 0 || first > helixMaxPerRequest {
		return 20
	}
	return first
}
