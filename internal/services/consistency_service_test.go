package services

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	gormModels "tenf/portal/internal/models/gorm"
)

func newConsistency(t *testing.T, env *testEnv) *ConsistencyService {
	t.Helper()
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	keys := repositories.NewSyncKeysRepository(sqlx.NewDb(sqlDB, "sqlite3"))
	return NewConsistencyService(keys, env.blob, env.stores, env.audit, env.metrics)
}

func TestConsistencyService_CheckAndImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newConsistency(t, env)

	env.addMember(t, gormModels.Member{TwitchLogin: "alice", IsActive: true})
	blobMembers := repositories.NewMemberBlobRepository(env.blob)
	require.NoError(t, blobMembers.Upsert(ctx, &gormModels.Member{TwitchLogin: "alice", IsActive: true}))
	require.NoError(t, blobMembers.Upsert(ctx, &gormModels.Member{TwitchLogin: "bob", IsActive: true, Badges: []string{"ancien"}}))

	blobEvals := repositories.NewEvaluationBlobRepository(env.blob)
	require.NoError(t, blobEvals.Upsert(ctx, &gormModels.Evaluation{MemberLogin: "bob", Month: "2026-08", RaidPoints: 3}))

	blobEvents := repositories.NewEventBlobRepository(env.blob)
	ev := &gormModels.Event{Kind: gormModels.EventKindEvent, Title: "Ancien event", Date: time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC), IsPublished: true}
	require.NoError(t, blobEvents.Create(ctx, ev))
	require.NoError(t, blobEvents.AddRegistration(ctx, &gormModels.EventRegistration{EventID: ev.ID, MemberLogin: "bob"}))

	report, err := svc.Check(ctx)
	require.NoError(t, err)
	require.Len(t, report.Entities, len(constants.DualStoreEntities))
	assert.True(t, report.Diverged())

	byEntity := map[string]EntitySyncReport{}
	for _, e := range report.Entities {
		byEntity[e.Entity] = e
	}
	assert.Equal(t, []string{"bob"}, byEntity[constants.EntityMembers].MissingInRelational)
	assert.Equal(t, 2, byEntity[constants.EntityMembers].BlobCount)
	assert.Equal(t, 1, byEntity[constants.EntityMembers].RelationalCount)
	assert.Equal(t, []string{"bob:2026-08"}, byEntity[constants.EntityEvaluations].MissingInRelational)
	assert.Equal(t, []string{ev.ID}, byEntity[constants.EntityEvents].MissingInRelational)
	assert.Empty(t, byEntity[constants.EntitySpotlights].MissingInRelational)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.StoreDivergence.WithLabelValues(constants.EntityMembers)))

	for _, entity := range []string{constants.EntityMembers, constants.EntityEvaluations, constants.EntityEvents} {
		res, err := svc.ImportMissing(ctx, "founder", entity)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported, entity)
		assert.Empty(t, res.Failed)
	}

	bob, err := env.stores.Members.FindByLogin(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, []string{"ancien"}, bob.Badges)

	imported, err := env.stores.Events.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, imported)
	assert.Len(t, imported.Registrations, 1)

	report, err = svc.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Diverged())

	_, err = svc.Check(ctx, "shop")
	assert.ErrorIs(t, err, common.ErrValidation)
}
