package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenf/portal/internal/common"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
	gormModels "tenf/portal/internal/models/gorm"
)

func TestLiveService_CachesHelixCalls(t *testing.T) {
	env := newTestEnv(t)
	env.addMember(t, gormModels.Member{TwitchLogin: "alice", IsActive: true})
	tw := &fakeTwitch{
		users:   []dtos.TwitchUser{{ID: "42", Login: "alice"}},
		streams: []dtos.TwitchStream{{UserLogin: "alice", Title: "Soirée chill"}},
		clips:   []dtos.TwitchClip{{ID: "c1"}},
	}
	svc := NewLiveService(tw, env.stores.Members, common.NewCacheService(60, 120, env.metrics), env.blob)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		streams, err := svc.LiveStreams(ctx)
		require.NoError(t, err)
		require.Len(t, streams, 1)
	}
	assert.Equal(t, 1, tw.calls)

	for i := 0; i < 2; i++ {
		clips, err := svc.Clips(ctx, "Alice", 5)
		require.NoError(t, err)
		assert.Len(t, clips, 1)
	}
	assert.Equal(t, 3, tw.calls, "one user lookup and one clips call")

	_, err := svc.Videos(ctx, "ghost", 5)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLiveService_TwitchLink(t *testing.T) {
	env := newTestEnv(t)
	svc := NewLiveService(nil, env.stores.Members, common.NewCacheService(60, 120, nil), env.blob)
	ctx := context.Background()

	_, err := svc.LiveStreams(ctx)
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.ErrorIs(t, svc.LinkTwitch(ctx, entities.TwitchToken{TwitchLogin: "alice"}), common.ErrValidation)
	require.NoError(t, svc.LinkTwitch(ctx, entities.TwitchToken{TwitchLogin: "Alice", AccessToken: "tok"}))

	linked, at := svc.LinkStatus(ctx, "alice")
	assert.True(t, linked)
	assert.False(t, at.IsZero())

	require.NoError(t, svc.UnlinkTwitch(ctx, "alice"))
	linked, _ = svc.LinkStatus(ctx, "alice")
	assert.False(t, linked)
}
