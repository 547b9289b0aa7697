package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tenf/portal/internal/models/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwitchProvider_GetStreams_Batches(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		logins := r.URL.Query()["user_login"]
		assert.LessOrEqual(t, len(logins), helixMaxPerRequest)

		resp := dtos.HelixResponse[dtos.TwitchStream]{}
		for _, l := range logins {
			if l == "user0" || l == "user150" {
				resp.Data = append(resp.Data, dtos.TwitchStream{UserLogin: l, ViewerCount: 10})
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	logins := make([]string, 0, 150+1)
	for i := 0; i <= 150; i++ {
		logins = append(logins, fmt.Sprintf("user%d", i))
	}

	p := &TwitchProvider{BaseURL: server.URL, ClientID: "cid", Client: &http.Client{}}
	streams, err := p.GetStreams(context.Background(), logins)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, streams, 2)
	assert.Equal(t, "user0", streams[0].UserLogin)
	assert.Equal(t, "user150", streams[1].UserLogin)
}

func TestTwitchProvider_ClientIDHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cid", r.Header.Get("Client-Id"))
		assert.Equal(t, "/clips", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("first"))
		json.NewEncoder(w).Encode(dtos.HelixResponse[dtos.TwitchClip]{Data: []dtos.TwitchClip{{ID: "clip-1"}}})
	}))
	defer server.Close()

	p := &TwitchProvider{
		BaseURL:  server.URL,
		ClientID: "cid",
		Client:   &http.Client{Transport: &clientIDTransport{clientID: "cid", base: http.DefaultTransport}},
	}
	clips, err := p.GetClips(context.Background(), "b-1", 0)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "clip-1", clips[0].ID)
}

func TestTwitchProvider_EmptyLoginsMakesNoCall(t *testing.T) {
	p := &TwitchProvider{BaseURL: "http://127.0.0.1:0", ClientID: "cid", Client: &http.Client{}}
	users, err := p.GetUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
