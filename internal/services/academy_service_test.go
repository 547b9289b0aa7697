package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenf/portal/internal/common"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
)

func newAcademy(t *testing.T, discord DiscordClient) *AcademyService {
	t.Helper()
	svc := NewAcademyService(setupBlob(t), discord, map[string]string{
		"700": entities.AcademyRoleMentor,
		"701": entities.AcademyRoleParticipant,
		"702": "stagiaire",
	}, &fakeAudit{})
	svc.now = func() time.Time { return time.Date(2026, 10, 5, 18, 0, 0, 0, time.UTC) }
	return svc
}

func openPromo(t *testing.T, svc *AcademyService) *entities.AcademyPromo {
	t.Helper()
	ctx := context.Background()
	p, err := svc.CreatePromo(ctx, "founder", PromoInput{
		Name:      "Promo automne",
		Password:  "s3cret",
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, p.PasswordHash)

	_, err = svc.UpdateSettings(ctx, "founder", entities.AcademySettings{Enabled: true, ActivePromoID: p.ID})
	require.NoError(t, err)
	return p
}

func TestAcademyService_JoinByPassword(t *testing.T) {
	svc := newAcademy(t, nil)
	ctx := context.Background()
	p := openPromo(t, svc)
	who := AcademyMember{DiscordID: "111", TwitchLogin: "alice"}

	_, err := svc.Join(ctx, p.ID, who, "wrong")
	assert.ErrorIs(t, err, common.ErrForbidden)

	grant, err := svc.Join(ctx, p.ID, who, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleParticipant, grant.Role)
	assert.Equal(t, entities.AccessViaPassword, grant.GrantedVia)

	access, err := svc.ListAccess(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, access, 1)

	_, err = svc.Join(ctx, "missing", who, "s3cret")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, svc.RevokeAccess(ctx, "founder", p.ID, "111"))
	_, err = svc.Access(ctx, p.ID, "111")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestAcademyService_JoinByDiscordRole(t *testing.T) {
	discord := &fakeDiscord{members: []dtos.DiscordGuildMember{
		{User: dtos.DiscordUser{ID: "222"}, Roles: []string{"701", "700"}},
		{User: dtos.DiscordUser{ID: "333"}, Roles: []string{"702"}},
	}}
	svc := newAcademy(t, discord)
	ctx := context.Background()
	p := openPromo(t, svc)

	grant, err := svc.Join(ctx, p.ID, AcademyMember{DiscordID: "222"}, "")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleMentor, grant.Role)
	assert.Equal(t, entities.AccessViaDiscordRole, grant.GrantedVia)

	_, err = svc.Join(ctx, p.ID, AcademyMember{DiscordID: "333"}, "")
	assert.ErrorIs(t, err, common.ErrForbidden, "unknown academy role names are not mapped")
}

func TestAcademyService_DiscordFailureMeansNoAccess(t *testing.T) {
	svc := newAcademy(t, &fakeDiscord{err: errors.New("discord down")})
	ctx := context.Background()
	p := openPromo(t, svc)

	_, err := svc.Join(ctx, p.ID, AcademyMember{DiscordID: "222"}, "")
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = svc.Access(ctx, p.ID, "222")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestAcademyService_ClosedAcademyAndPromo(t *testing.T) {
	svc := newAcademy(t, nil)
	ctx := context.Background()
	p := openPromo(t, svc)
	who := AcademyMember{DiscordID: "111"}

	_, err := svc.UpdatePromo(ctx, "founder", p.ID, PromoInput{IsActive: false})
	require.NoError(t, err)
	_, err = svc.Join(ctx, p.ID, who, "s3cret")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.UpdateSettings(ctx, "founder", entities.AcademySettings{Enabled: false})
	require.NoError(t, err)
	_, err = svc.Join(ctx, p.ID, who, "s3cret")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.UpdateSettings(ctx, "founder", entities.AcademySettings{Enabled: true, ActivePromoID: "nope"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAcademyService_Forms(t *testing.T) {
	svc := newAcademy(t, nil)
	ctx := context.Background()
	p := openPromo(t, svc)
	who := AcademyMember{DiscordID: "111", TwitchLogin: "alice"}

	_, err := svc.SubmitForm(ctx, p.ID, who, entities.FormPresentation, map[string]string{"q1": "salut"}, false)
	assert.ErrorIs(t, err, common.ErrForbidden, "no access yet")

	_, err = svc.Join(ctx, p.ID, who, "s3cret")
	require.NoError(t, err)

	_, err = svc.SubmitForm(ctx, p.ID, who, "journal", map[string]string{"q1": "x"}, false)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.SubmitForm(ctx, p.ID, who, entities.FormObjectifs, map[string]string{"q1": "x"}, true)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.SubmitForm(ctx, p.ID, who, entities.FormRetourMentor, map[string]string{"q1": "x"}, false)
	assert.ErrorIs(t, err, common.ErrForbidden)

	first, err := svc.SubmitForm(ctx, p.ID, who, entities.FormPresentation, map[string]string{"q1": "salut"}, false)
	require.NoError(t, err)
	second, err := svc.SubmitForm(ctx, p.ID, who, entities.FormPresentation, map[string]string{"q1": "bonjour"}, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one response per member and form type")

	_, err = svc.SubmitForm(ctx, p.ID, who, entities.FormObjectifs, map[string]string{"q1": "streamer plus"}, false)
	require.NoError(t, err)

	mine, err := svc.ListForms(ctx, p.ID, "", "111")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	public, err := svc.PublicForms(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "bonjour", public[0].Answers["q1"])
}

func TestAcademyService_HigherRoleWins(t *testing.T) {
	discord := &fakeDiscord{}
	svc := newAcademy(t, discord)
	ctx := context.Background()
	p := openPromo(t, svc)
	who := AcademyMember{DiscordID: "444", TwitchLogin: "dana"}

	grant, err := svc.Join(ctx, p.ID, who, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleParticipant, grant.Role)

	// dana is promoted to mentor on Discord after joining with the password
	discord.members = []dtos.DiscordGuildMember{{User: dtos.DiscordUser{ID: "444"}, Roles: []string{"700"}}}

	access, err := svc.Access(ctx, p.ID, "444")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleMentor, access.Role)
	assert.Equal(t, entities.AccessViaDiscordRole, access.GrantedVia)

	_, err = svc.SubmitForm(ctx, p.ID, who, entities.FormRetourMentor, map[string]string{"q1": "bien"}, false)
	require.NoError(t, err)

	upgraded, err := svc.Join(ctx, p.ID, who, "")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleMentor, upgraded.Role)
	assert.Equal(t, grant.GrantedAt, upgraded.GrantedAt)

	stored, err := svc.ListAccess(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, entities.AcademyRoleMentor, stored[0].Role)

	// an admin grant is never downgraded by a lower Discord role
	_, err = svc.GrantAccess(ctx, "founder", entities.AcademyAccess{PromoID: p.ID, DiscordID: "444", Role: entities.AcademyRoleAdmin})
	require.NoError(t, err)
	again, err := svc.Join(ctx, p.ID, who, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleAdmin, again.Role)
	access, err = svc.Access(ctx, p.ID, "444")
	require.NoError(t, err)
	assert.Equal(t, entities.AcademyRoleAdmin, access.Role)
}
