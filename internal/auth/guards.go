package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
)

// Permission actions checked by RequirePermission.
const (
	PermSpotlightWrite   = "spotlight.write"
	PermEventsWrite      = "events.write"
	PermRaidsWrite       = "raids.write"
	PermMembersWrite     = "members.write"
	PermEvaluationsWrite = "evaluations.write"
	PermAcademyWrite     = "academy.write"
	PermVipWrite         = "vip.write"
	PermSyncRun          = "sync.run"
	PermAuditRead        = "audit.read"
	PermSafeModeToggle   = "safe_mode.toggle"
	PermEvaluationForce  = "evaluations.force"
)

var permissionMinRole = map[string]constants.MemberRole{
	PermSpotlightWrite:   constants.RoleModeratorJunior,
	PermEventsWrite:      constants.RoleModeratorMentor,
	PermRaidsWrite:       constants.RoleModeratorMentor,
	PermMembersWrite:     constants.RoleAdminAdjoint,
	PermEvaluationsWrite: constants.RoleAdminAdjoint,
	PermAcademyWrite:     constants.RoleAdminAdjoint,
	PermVipWrite:         constants.RoleAdminAdjoint,
	PermSyncRun:          constants.RoleAdmin,
	PermAuditRead:        constants.RoleAdmin,
	PermSafeModeToggle:   constants.RoleFounder,
	PermEvaluationForce:  constants.RoleFounder,
}

// sectionMinRole gates admin panel sections by path prefix; the longest
// matching prefix wins. Paths with no match require Admin.
var sectionMinRole = map[string]constants.MemberRole{
	"/admin":            constants.RoleModeratorJunior,
	"/admin/spotlight":  constants.RoleModeratorJunior,
	"/admin/events":     constants.RoleModeratorMentor,
	"/admin/raids":      constants.RoleModeratorMentor,
	"/admin/membres":    constants.RoleAdminAdjoint,
	"/admin/evaluation": constants.RoleAdminAdjoint,
	"/admin/academy":    constants.RoleAdminAdjoint,
	"/admin/vip":        constants.RoleAdminAdjoint,
	"/admin/sync":       constants.RoleAdmin,
	"/admin/logs":       constants.RoleAdmin,
	"/admin/safe-mode":  constants.RoleFounder,
}

// RequireAuth returns the caller or ErrUnauthenticated.
func RequireAuth(ctx context.Context) (*Principal, error) {
	p := GetPrincipal(ctx)
	if p == nil {
		return nil, common.ErrUnauthenticated
	}
	return p, nil
}

// RequireRole requires the caller to hold min or a higher role.
func RequireRole(ctx context.Context, min constants.MemberRole) (*Principal, error) {
	p, err := RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !p.Role.AtLeast(min) {
		return nil, fmt.Errorf("%w: requires %s", common.ErrForbidden, min)
	}
	return p, nil
}

// RequireAdmin grants any staff role access to the admin panel.
func RequireAdmin(ctx context.Context) (*Principal, error) {
	return RequireRole(ctx, constants.RoleModeratorJunior)
}

func RequirePermission(ctx context.Context, action string) (*Principal, error) {
	min, ok := permissionMinRole[action]
	if !ok {
		min = constants.RoleFounder
	}
	return RequireRole(ctx, min)
}

func RequireSectionAccess(ctx context.Context, path string) (*Principal, error) {
	return RequireRole(ctx, SectionMinRole(path))
}

// SectionMinRole returns the lowest role allowed to open path.
func SectionMinRole(path string) constants.MemberRole {
	path = strings.TrimRight(path, "/")
	best, bestLen := constants.RoleAdmin, -1
	for prefix, role := range sectionMinRole {
		if (path == prefix || strings.HasPrefix(path, prefix+"/")) && len(prefix) > bestLen {
			best, bestLen = role, len(prefix)
		}
	}
	return best
}

// HasPermission is the non-failing form of RequirePermission.
func HasPermission(p *Principal, action string) bool {
	if p == nil {
		return false
	}
	min, ok := permissionMinRole[action]
	return ok && p.Role.AtLeast(min)
}

// Permissions lists the actions p may perform, sorted.
func Permissions(p *Principal) []string {
	out := []string{}
	for action := range permissionMinRole {
		if HasPermission(p, action) {
			out = append(out, action)
		}
	}
	sort.Strings(out)
	return out
}
