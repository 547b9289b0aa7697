package middleware

import (
	"context"
	"errors"
	"net/http"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
)

// SessionLookup is satisfied by *common.SessionService.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*common.SessionData, error)
}

// RoleLookup is satisfied by *auth.RoleResolver.
type RoleLookup interface {
	Resolve(ctx context.Context, discordID string) (constants.MemberRole, string, error)
}

// AdminTokenValidator is satisfied by *auth.AdminTokenSigner.
type AdminTokenValidator interface {
	Validate(tokenString string) (string, error)
}

// PrincipalMiddleware attaches the caller to the request context. A Discord
// session cookie wins over the admin login cookie. Requests carrying
// neither, or stale cookies, continue anonymously; the guards decide.
func PrincipalMiddleware(sessions SessionLookup, roles RoleLookup, admin AdminTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if p := sessionPrincipal(r, sessions, roles); p != nil {
				ctx = auth.SetPrincipal(ctx, p)
			} else if p := adminPrincipal(r, admin); p != nil {
				ctx = auth.SetPrincipal(ctx, p)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionPrincipal(r *http.Request, sessions SessionLookup, roles RoleLookup) *auth.Principal {
	if sessions == nil {
		return nil
	}
	cookie, err := r.Cookie(constants.CookieSession)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := sessions.GetSession(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, common.ErrSessionNotFound) {
			logging.Warn("Session lookup failed", "error", err)
		}
		return nil
	}

	role, login, err := roles.Resolve(r.Context(), session.DiscordID)
	if err != nil {
		logging.Warn("Role resolution failed", "discord_id", session.DiscordID, "error", err)
		role = constants.RoleAffilie
	}
	if login == "" {
		login = session.TwitchLogin
	}

	return &auth.Principal{
		DiscordID:   session.DiscordID,
		Username:    session.DiscordUsername,
		TwitchLogin: login,
		Role:        role,
		Source:      auth.SourceDiscordSession,
	}
}

func adminPrincipal(r *http.Request, admin AdminTokenValidator) *auth.Principal {
	if admin == nil {
		return nil
	}
	cookie, err := r.Cookie(constants.CookieAdmin)
	if err != nil || cookie.Value == "" {
		return nil
	}
	username, err := admin.Validate(cookie.Value)
	if err != nil {
		logging.Debug("Admin token rejected", "error", err)
		return nil
	}
	return &auth.Principal{
		Username: username,
		Role:     constants.RoleAdmin,
		Source:   auth.SourceAdminLogin,
	}
}
