package auth

import (
	"context"

	"tenf/portal/internal/constants"
	gormModels "tenf/portal/internal/models/gorm"
)

// MemberLookup is the slice of the member store the resolver needs.
type MemberLookup interface {
	FindByDiscordID(ctx context.Context, discordID string) (*gormModels.Member, error)
}

// RoleResolver maps a Discord id to a role: static founder ids first, then
// static admin ids, then the member record. Unknown users are Affilié.
type RoleResolver struct {
	founders map[string]struct{}
	admins   map[string]struct{}
	members  MemberLookup
}

func NewRoleResolver(founderIDs, adminIDs []string, members MemberLookup) *RoleResolver {
	r := &RoleResolver{
		founders: make(map[string]struct{}, len(founderIDs)),
		admins:   make(map[string]struct{}, len(adminIDs)),
		members:  members,
	}
	for _, id := range founderIDs {
		r.founders[id] = struct{}{}
	}
	for _, id := range adminIDs {
		r.admins[id] = struct{}{}
	}
	return r
}

// Resolve returns the role and, when a member record exists, its login.
func (r *RoleResolver) Resolve(ctx context.Context, discordID string) (constants.MemberRole, string, error) {
	var login string
	member, err := r.members.FindByDiscordID(ctx, discordID)
	if err != nil {
		return "", "", err
	}
	if member != nil {
		login = member.TwitchLogin
	}

	switch {
	case r.isFounder(discordID):
		return constants.RoleFounder, login, nil
	case r.isAdmin(discordID):
		return constants.RoleAdmin, login, nil
	case member != nil && member.IsActive && member.Role.Valid():
		return member.Role, login, nil
	}
	return constants.RoleAffilie, login, nil
}

func (r *RoleResolver) isFounder(id string) bool {
	_, ok := r.founders[id]
	return ok
}

func (r *RoleResolver) isAdmin(id string) bool {
	_, ok := r.admins[id]
	return ok
}
