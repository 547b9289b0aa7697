package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/models/dtos"
	gormModels "tenf/portal/internal/models/gorm"
)

const (
	roleIDAffilie = "900"
	roleIDMentor  = "901"
)

func newMemberService(env *testEnv, discord DiscordClient) *MemberService {
	return NewMemberService(env.stores.Members, discord, map[string]string{
		roleIDAffilie: string(constants.RoleAffilie),
		roleIDMentor:  string(constants.RoleModeratorMentor),
		"999":         "Chef de gare",
	}, env.audit)
}

func guildMember(id, username string, nick string, roles ...string) dtos.DiscordGuildMember {
	gm := dtos.DiscordGuildMember{User: dtos.DiscordUser{ID: id, Username: username}, Roles: roles}
	if nick != "" {
		gm.Nick = &nick
	}
	return gm
}

func TestMemberService_ManualRoleSurvivesSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	discord := &fakeDiscord{members: []dtos.DiscordGuildMember{
		guildMember("111", "alice_new", "Alice", roleIDMentor),
	}}
	svc := newMemberService(env, discord)

	_, err := svc.Create(ctx, "founder", MemberInput{TwitchLogin: "Alice", DiscordID: "111", DiscordUsername: "alice_old", Role: constants.RoleAdminAdjoint})
	require.NoError(t, err)

	report, err := svc.SyncDiscord(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	m, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAdminAdjoint, m.Role)
	assert.True(t, m.RoleManuallySet())
	assert.Equal(t, "alice_new", m.DiscordUsername)

	released := MemberUpdate{ReleaseFields: []string{gormModels.FieldRole}}
	_, err = svc.Update(ctx, "founder", "alice", released)
	require.NoError(t, err)

	_, err = svc.SyncDiscord(ctx, "bot")
	require.NoError(t, err)
	m, err = svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleModeratorMentor, m.Role)
	assert.False(t, m.RoleManuallySet())
}

func TestMemberService_SyncCreatesAndDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addMember(t, gormModels.Member{TwitchLogin: "gone", DiscordID: strPtr("333"), IsActive: true})
	env.addMember(t, gormModels.Member{TwitchLogin: "kept", DiscordID: strPtr("444"), IsActive: true,
		FieldSources: map[string]gormModels.FieldSource{gormModels.FieldIsActive: gormModels.SourceManual}})
	env.addMember(t, gormModels.Member{TwitchLogin: "carol", IsActive: true})

	discord := &fakeDiscord{members: []dtos.DiscordGuildMember{
		guildMember("222", "bobdc", "Bob_Stream ✨", roleIDAffilie, roleIDMentor),
		guildMember("555", "carol_dc", "Carol", roleIDAffilie),
		guildMember("666", "visitor", ""),
		{User: dtos.DiscordUser{ID: "777", Username: "tenf-bot", Bot: true}, Roles: []string{roleIDAffilie}},
	}}
	svc := newMemberService(env, discord)

	report, err := svc.SyncDiscord(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, 3, report.GuildMembers)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated, "carol gets her discord id")
	assert.Equal(t, 1, report.Deactivated)

	bob, err := svc.Get(ctx, "bob_stream")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleModeratorMentor, bob.Role)
	require.NotNil(t, bob.DiscordID)
	assert.Equal(t, "222", *bob.DiscordID)

	carol, err := svc.GetByDiscordID(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, "carol", carol.TwitchLogin)

	gone, err := svc.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, gone.IsActive)

	kept, err := svc.Get(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, kept.IsActive)

	_, err = svc.Get(ctx, "visitor")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemberService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newMemberService(env, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin", MemberInput{TwitchLogin: "bad login!"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Create(ctx, "admin", MemberInput{TwitchLogin: "dave", Role: "Chef"})
	assert.ErrorIs(t, err, common.ErrValidation)

	m, err := svc.Create(ctx, "admin", MemberInput{TwitchLogin: "dave"})
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAffilie, m.Role)
	assert.Equal(t, "dave", m.DisplayName)

	_, err = svc.Create(ctx, "admin", MemberInput{TwitchLogin: "DAVE"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.SyncDiscord(ctx, "bot")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, svc.Deactivate(ctx, "admin", "dave"))
	active, err := svc.List(ctx, 0, 0, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"roleManuallySet":true`)
}

func TestMemberService_Import(t *testing.T) {
	env := newTestEnv(t)
	env.addMember(t, gormModels.Member{TwitchLogin: "alice", Role: constants.RoleAffilie, IsActive: true})
	svc := newMemberService(env, nil)

	data := []byte("twitch_login,discord_id,role,vip\nalice,,Modérateur Junior,oui\nbob,222,,\nbad!,,,\neve,,Chef,\n")
	report, err := svc.Import(context.Background(), "admin", "roster.csv", data)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Len(t, report.Errors, 2)

	alice, err := svc.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleModeratorJunior, alice.Role)
	assert.True(t, alice.IsVip)
	assert.True(t, alice.RoleManuallySet())

	bob, err := svc.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, bob.DiscordID)
	assert.Equal(t, "222", *bob.DiscordID)

	_, err = svc.Import(context.Background(), "admin", "roster.csv", []byte("nom\nalice\n"))
	assert.ErrorIs(t, err, common.ErrValidation)
}
