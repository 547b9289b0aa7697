package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenf/portal/internal/models/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestIdentityProvider_DiscordFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"user-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		name := "Alice"
		json.NewEncoder(w).Encode(dtos.DiscordUser{ID: "111", Username: "alice", GlobalName: &name})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conf := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: server.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}
	p := &IdentityProvider{DiscordBaseURL: server.URL, HTTPClient: server.Client()}

	ctx := context.Background()
	tok, err := p.Exchange(ctx, conf, "the-code")
	require.NoError(t, err)

	user, err := p.DiscordUser(ctx, conf, tok)
	require.NoError(t, err)
	assert.Equal(t, "111", user.ID)
	assert.Equal(t, "Alice", user.DisplayName())
}
