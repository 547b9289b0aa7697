package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	gormModels "tenf/portal/internal/models/gorm"
)

func newVip(t *testing.T) (*testEnv, *VipService) {
	t.Helper()
	env := newTestEnv(t)
	for _, login := range []string{"alice", "bob", "carol"} {
		env.addMember(t, gormModels.Member{TwitchLogin: login, Role: constants.RoleAffilie, IsActive: true})
	}
	svc := NewVipService(env.blob, env.stores.Members, env.evaluations(), env.audit)
	svc.now = func() time.Time { return time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC) }
	return env, svc
}

func TestVipService_Get(t *testing.T) {
	_, svc := newVip(t)
	ctx := context.Background()

	empty, err := svc.Get(ctx, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-09", empty.Month)
	assert.NotNil(t, empty.Logins)
	assert.Empty(t, empty.Logins)

	current, err := svc.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10", current.Month)

	_, err = svc.Get(ctx, "octobre")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestVipService_Set(t *testing.T) {
	env, svc := newVip(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, "admin", "2026-10", []string{"alice", "mallory"}, false)
	assert.ErrorIs(t, err, common.ErrValidation, "unknown member")
	untouched, err := svc.Get(ctx, "2026-10")
	require.NoError(t, err)
	assert.Empty(t, untouched.Logins)

	vm, err := svc.Set(ctx, "admin", "2026-10", []string{"Carol", " alice ", "carol", "", "bob"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, vm.Logins)
	assert.Equal(t, "admin", vm.UpdatedBy)

	got, err := svc.Get(ctx, "2026-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Logins)
	assert.Contains(t, env.audit.actions(), constants.AuditVipMonth)
}

func TestVipService_ClosedMonth(t *testing.T) {
	env, svc := newVip(t)
	ctx := context.Background()
	evals := env.evaluations()

	_, err := evals.SetRaidStats(ctx, "alice", "2026-09", 2, 1, false)
	require.NoError(t, err)
	_, err = evals.CloseMonth(ctx, "founder", "2026-09")
	require.NoError(t, err)

	_, err = svc.Set(ctx, "admin", "2026-09", []string{"alice"}, false)
	assert.ErrorIs(t, err, common.ErrMonthClosed)

	vm, err := svc.Set(ctx, "founder", "2026-09", []string{"alice"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, vm.Logins)

	_, err = svc.Set(ctx, "admin", "2026-10", []string{"bob"}, false)
	assert.NoError(t, err, "other months stay writable")
}
