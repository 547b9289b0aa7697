package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenf/portal/internal/constants"
	"tenf/portal/internal/models/dtos"
)

func newTestDiscord(url string) *DiscordProvider {
	return &DiscordProvider{BaseURL: url, BotToken: "bot-token", GuildID: "guild-1", Client: &http.Client{}}
}

func TestDiscordProvider_GetGuildMembers_Paginates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Bot bot-token" {
			t.Errorf("Expected bot authorization header, got %q", got)
		}
		if r.URL.Path != "/guilds/guild-1/members" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var page []dtos.DiscordGuildMember
		switch r.URL.Query().Get("after") {
		case "":
			for i := 0; i < discordPageSize; i++ {
				page = append(page, dtos.DiscordGuildMember{User: dtos.DiscordUser{ID: fmt.Sprintf("%d", i+1)}})
			}
		case fmt.Sprintf("%d", discordPageSize):
			page = append(page, dtos.DiscordGuildMember{User: dtos.DiscordUser{ID: "last"}})
		default:
			t.Errorf("Unexpected cursor %q", r.URL.Query().Get("after"))
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	members, err := newTestDiscord(server.URL).GetGuildMembers(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(members) != discordPageSize+1 {
		t.Errorf("Expected %d members, got %d", discordPageSize+1, len(members))
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestDiscordProvider_GetGuildMember_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Unknown Member"}`))
	}))
	defer server.Close()

	member, err := newTestDiscord(server.URL).GetGuildMember(context.Background(), "42")
	if err != nil {
		t.Fatalf("Expected no error for unknown member, got %v", err)
	}
	if member != nil {
		t.Errorf("Expected nil member, got %+v", member)
	}
}

func TestDiscordProvider_GetChannelMessages_OldestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") != "100" {
			t.Errorf("Expected after=100, got %q", r.URL.Query().Get("after"))
		}
		json.NewEncoder(w).Encode([]dtos.DiscordMessage{{ID: "103"}, {ID: "102"}, {ID: "101"}})
	}))
	defer server.Close()

	msgs, err := newTestDiscord(server.URL).GetChannelMessages(context.Background(), "chan", "100", 50)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "101" || msgs[2].ID != "103" {
		t.Errorf("Expected ascending order, got %+v", msgs)
	}
}

func TestDiscordProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestDiscord(server.URL).GetGuildMembers(context.Background())
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Code != constants.ErrCodeRateLimited {
		t.Errorf("Expected %s, got %s", constants.ErrCodeRateLimited, perr.Code)
	}
}

func TestDiscordProvider_NotConfigured(t *testing.T) {
	p := &DiscordProvider{BaseURL: "http://unused", Client: &http.Client{}}
	_, err := p.GetGuildMembers(context.Background())
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != constants.ErrCodeNotConfigured {
		t.Errorf("Expected NOT_CONFIGURED error, got %v", err)
	}
}
