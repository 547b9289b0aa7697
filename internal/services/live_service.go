package services

import (
	"context"
	"fmt"
	"time"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
	gormModels "tenf/portal/internal/models/gorm"
)

const (
	streamsTTL = time.Minute
	mediaTTL   = 15 * time.Minute
	userTTL    = 6 * time.Hour
)

// LiveService wraps Helix lookups for the community's streamers behind the
// in-process cache and stores linked Twitch accounts.
type LiveService struct {
	twitch  TwitchClient
	members repositories.MemberStore
	cache   common.CacheInterface
	tokens  *blob.Collection[entities.TwitchToken]
}

func NewLiveService(twitch TwitchClient, members repositories.MemberStore, cache common.CacheInterface, store blob.Store) *LiveService {
	return &LiveService{
		twitch:  twitch,
		members: members,
		cache:   cache,
		tokens:  blob.NewCollection[entities.TwitchToken](store, constants.StoreTwitchTokens),
	}
}

func (s *LiveService) requireTwitch() error {
	if s.twitch == nil {
		return common.Validationf("twitch is not configured")
	}
	return nil
}

// LiveStreams returns the streams currently live among active members.
func (s *LiveService) LiveStreams(ctx context.Context) ([]dtos.TwitchStream, error) {
	if err := s.requireTwitch(); err != nil {
		return nil, err
	}
	val, err := s.cache.GetOrSet(string(constants.CachePrefixTwitchStreams), streamsTTL, func() (any, error) {
		members, err := s.members.FindAll(ctx, 0, 0)
		if err != nil {
			return nil, err
		}
		logins := make([]string, 0, len(members))
		for _, m := range members {
			if m.IsActive {
				logins = append(logins, m.TwitchLogin)
			}
		}
		if len(logins) == 0 {
			return []dtos.TwitchStream{}, nil
		}
		return s.twitch.GetStreams(ctx, logins)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load live streams: %w", err)
	}
	return val.([]dtos.TwitchStream), nil
}

func (s *LiveService) user(ctx context.Context, login string) (*dtos.TwitchUser, error) {
	login = gormModels.NormalizeLogin(login)
	val, err := s.cache.GetOrSet(string(constants.CachePrefixTwitchUser)+login, userTTL, func() (any, error) {
		users, err := s.twitch.GetUsers(ctx, []string{login})
		if err != nil {
			return nil, err
		}
		for i := range users {
			if users[i].Login == login {
				return &users[i], nil
			}
		}
		return (*dtos.TwitchUser)(nil), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load twitch user %s: %w", login, err)
	}
	u := val.(*dtos.TwitchUser)
	if u == nil {
		return nil, fmt.Errorf("twitch user %s: %w", login, common.ErrNotFound)
	}
	return u, nil
}

func (s *LiveService) Clips(ctx context.Context, login string, first int) ([]dtos.TwitchClip, error) {
	if err := s.requireTwitch(); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, login)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s%s:%d", constants.CachePrefixTwitchClips, u.ID, first)
	val, err := s.cache.GetOrSet(key, mediaTTL, func() (any, error) {
		return s.twitch.GetClips(ctx, u.ID, first)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load clips of %s: %w", login, err)
	}
	return val.([]dtos.TwitchClip), nil
}

func (s *LiveService) Videos(ctx context.Context, login string, first int) ([]dtos.TwitchVideo, error) {
	if err := s.requireTwitch(); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, login)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s%s:%d", constants.CachePrefixTwitchVideos, u.ID, first)
	val, err := s.cache.GetOrSet(key, mediaTTL, func() (any, error) {
		return s.twitch.GetVideos(ctx, u.ID, first)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load videos of %s: %w", login, err)
	}
	return val.([]dtos.TwitchVideo), nil
}

// LinkTwitch stores the token of a member who connected their Twitch
// account. Tokens live in the blob store, keyed by login.
func (s *LiveService) LinkTwitch(ctx context.Context, tok entities.TwitchToken) error {
	tok.TwitchLogin = gormModels.NormalizeLogin(tok.TwitchLogin)
	if tok.TwitchLogin == "" || tok.AccessToken == "" {
		return common.Validationf("twitch login and access token are required")
	}
	if tok.LinkedAt.IsZero() {
		tok.LinkedAt = time.Now().UTC()
	}
	if err := s.tokens.Put(ctx, tok.TwitchLogin, &tok); err != nil {
		return err
	}
	logging.Info("Twitch account linked", "twitch_login", tok.TwitchLogin, "discord_id", tok.DiscordID)
	return nil
}

// LinkStatus reports whether login has linked their account. The token
// itself never leaves the service.
func (s *LiveService) LinkStatus(ctx context.Context, login string) (linked bool, linkedAt time.Time) {
	tok, ok := s.tokens.Get(ctx, gormModels.NormalizeLogin(login))
	if !ok {
		return false, time.Time{}
	}
	return true, tok.LinkedAt
}

func (s *LiveService) UnlinkTwitch(ctx context.Context, login string) error {
	return s.tokens.Delete(ctx, gormModels.NormalizeLogin(login))
}
