package auth

import "tenf/portal/internal/constants"

const (
	SourceDiscordSession = "DISCORD_SESSION"
	SourceAdminLogin     = "ADMIN_LOGIN"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	DiscordID   string
	Username    string
	TwitchLogin string
	Role        constants.MemberRole
	Source      string
}

func (p *Principal) IsFounder() bool { return p.Role == constants.RoleFounder }

// ActorID identifies the caller in audit logs.
func (p *Principal) ActorID() string {
	if p.DiscordID != "" {
		return p.DiscordID
	}
	return "admin:" + p.Username
}
