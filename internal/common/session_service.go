package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tenf/portal/internal/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionData is the Discord identity attached to a browser session.
type SessionData struct {
	SessionID       string    `json:"session_id"`
	DiscordID       string    `json:"discord_id"`
	DiscordUsername string    `json:"discord_username"`
	AvatarURL       string    `json:"avatar_url"`
	TwitchLogin     string    `json:"twitch_login"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// SessionService manages user sessions in Redis
type SessionService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionService(redis *redis.Client, ttl time.Duration) *SessionService {
	return &SessionService{redis: redis, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

// CreateSession stores a new session and returns its id.
func (s *SessionService) CreateSession(ctx context.Context, discordID, username, avatarURL, twitchLogin string) (string, error) {
	now := time.Now().UTC()
	session := SessionData{
		SessionID:       uuid.NewString(),
		DiscordID:       discordID,
		DiscordUsername: username,
		AvatarURL:       avatarURL,
		TwitchLogin:     twitchLogin,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.SessionID), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	logging.Debug("Session created", "discord_id", discordID)
	return session.SessionID, nil
}

// GetSession returns ErrSessionNotFound for unknown or expired ids.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	val, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.DeleteSession(ctx, sessionID)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
