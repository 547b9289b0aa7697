package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	gormModels "tenf/portal/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeMembers map[string]*gormModels.Member

func (f fakeMembers) FindByDiscordID(_ context.Context, id string) (*gormModels.Member, error) {
	return f[id], nil
}

func TestRoleResolver_Precedence(t *testing.T) {
	members := fakeMembers{
		"f1": {TwitchLogin: "founder", Role: constants.RoleAffilie, IsActive: true},
		"m1": {TwitchLogin: "mod", Role: constants.RoleModeratorMentor, IsActive: true},
		"m2": {TwitchLogin: "former", Role: constants.RoleModeratorMentor, IsActive: false},
	}
	r := NewRoleResolver([]string{"f1"}, []string{"a1"}, members)
	ctx := context.Background()

	tests := []struct {
		id        string
		wantRole  constants.MemberRole
		wantLogin string
	}{
		{"f1", constants.RoleFounder, "founder"},
		{"a1", constants.RoleAdmin, ""},
		{"m1", constants.RoleModeratorMentor, "mod"},
		{"m2", constants.RoleAffilie, "former"},
		{"unknown", constants.RoleAffilie, ""},
	}
	for _, tt := range tests {
		role, login, err := r.Resolve(ctx, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.wantRole, role, tt.id)
		assert.Equal(t, tt.wantLogin, login, tt.id)
	}
}

func withRole(role constants.MemberRole) context.Context {
	return SetPrincipal(context.Background(), &Principal{DiscordID: "1", Role: role})
}

func TestGuards(t *testing.T) {
	_, err := RequireAdmin(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = RequireAdmin(withRole(constants.RoleAffilie))
	assert.ErrorIs(t, err, common.ErrForbidden)

	p, err := RequireAdmin(withRole(constants.RoleModeratorJunior))
	require.NoError(t, err)
	assert.Equal(t, "1", p.DiscordID)

	_, err = RequirePermission(withRole(constants.RoleModeratorJunior), PermRaidsWrite)
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = RequirePermission(withRole(constants.RoleModeratorMentor), PermRaidsWrite)
	assert.NoError(t, err)

	_, err = RequirePermission(withRole(constants.RoleAdmin), PermSafeModeToggle)
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = RequirePermission(withRole(constants.RoleFounder), PermSafeModeToggle)
	assert.NoError(t, err)

	_, err = RequirePermission(withRole(constants.RoleAdmin), "unknown.action")
	assert.True(t, errors.Is(err, common.ErrForbidden))

	_, err = RequireRole(withRole(constants.RoleAdminAdjoint), constants.RoleAdmin)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestSectionMinRole(t *testing.T) {
	assert.Equal(t, constants.RoleModeratorJunior, SectionMinRole("/admin"))
	assert.Equal(t, constants.RoleModeratorMentor, SectionMinRole("/admin/raids/"))
	assert.Equal(t, constants.RoleAdminAdjoint, SectionMinRole("/admin/evaluation/2026-03"))
	assert.Equal(t, constants.RoleAdmin, SectionMinRole("/admin/sync"))
	assert.Equal(t, constants.RoleAdmin, SectionMinRole("/elsewhere"))
	// "/admin/raidsx" must not match the "/admin/raids" prefix.
	assert.Equal(t, constants.RoleModeratorJunior, SectionMinRole("/admin/raidsx"))

	_, err := RequireSectionAccess(withRole(constants.RoleModeratorJunior), "/admin/membres")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestAdminTokenSigner(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	s := NewAdminTokenSigner("jwt-secret", "root", string(hash))

	assert.True(t, s.CheckCredentials("root", "s3cret"))
	assert.False(t, s.CheckCredentials("root", "wrong"))
	assert.False(t, s.CheckCredentials("other", "s3cret"))

	tok, err := s.Sign("root", time.Hour)
	require.NoError(t, err)
	user, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "root", user)

	expired, err := s.Sign("root", -time.Minute)
	require.NoError(t, err)
	_, err = s.Validate(expired)
	assert.Error(t, err)

	other := NewAdminTokenSigner("different", "root", string(hash))
	_, err = other.Validate(tok)
	assert.Error(t, err)

	disabled := NewAdminTokenSigner("", "", "")
	assert.False(t, disabled.Enabled())
	assert.False(t, disabled.CheckCredentials("", ""))
}
