package api

import (
	"net/http"
	"time"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/entities"
	gormModels "tenf/portal/internal/models/gorm"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	oauthStateTTL = 10 * time.Minute
	adminLoginTTL = 12 * time.Hour
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type meResponse struct {
	DiscordID   string               `json:"discordId,omitempty"`
	Username    string               `json:"username"`
	TwitchLogin string               `json:"twitchLogin,omitempty"`
	Role        constants.MemberRole `json:"role"`
	Source      string               `json:"source"`
	IsAdmin     bool                 `json:"isAdmin"`
	Permissions []string             `json:"permissions"`
	Member      *gormModels.Member   `json:"member,omitempty"`
}

type sectionAccessResponse struct {
	Path    string               `json:"path"`
	MinRole constants.MemberRole `json:"minRole"`
	Allowed bool                 `json:"allowed"`
}

type twitchLinkResponse struct {
	Linked   bool       `json:"linked"`
	LinkedAt *time.Time `json:"linkedAt,omitempty"`
}

func (h *Handlers) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.deps.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.deps.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) landingURL() string {
	if h.deps.Auth.PublicURL != "" {
		return h.deps.Auth.PublicURL
	}
	return "/"
}

// startOAuth stores a fresh state in cookieName and redirects to the provider.
func (h *Handlers) startOAuth(w http.ResponseWriter, r *http.Request, conf *oauth2.Config, cookieName string) {
	if conf == nil || conf.ClientID == "" {
		respondWithError(w, r, common.Validationf("oauth provider not configured"))
		return
	}
	state := uuid.NewString()
	h.setCookie(w, cookieName, state, oauthStateTTL)
	http.Redirect(w, r, conf.AuthCodeURL(state), http.StatusFound)
}

// checkOAuthState validates the callback state against the cookie and
// consumes it.
func (h *Handlers) checkOAuthState(w http.ResponseWriter, r *http.Request, cookieName string) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	h.clearCookie(w, cookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		respondWithError(w, r, common.Validationf(constants.MsgOAuthStateMismatch))
		return "", false
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, r, common.Validationf("missing authorization code"))
		return "", false
	}
	return code, true
}

// DiscordLogin handles GET /api/auth/discord/login
//
// @Summary      Start the Discord login
// @Description  Redirects to Discord with a state cookie.
// @Tags         Auth
// @Router       /api/auth/discord/login [get]
func (h *Handlers) DiscordLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.startOAuth(w, r, h.deps.Auth.DiscordOAuth, constants.CookieOAuthState)
	}
}

// DiscordCallback handles GET /api/auth/discord/callback
//
// @Summary      Complete the Discord login
// @Description  Exchanges the code, opens a session and redirects to the portal.
// @Tags         Auth
// @Param        code   query  string  true  "Authorization code"
// @Param        state  query  string  true  "State echoed by Discord"
// @Failure      400  {object}  responses.APIResponse[any]
// @Router       /api/auth/discord/callback [get]
func (h *Handlers) DiscordCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, ok := h.checkOAuthState(w, r, constants.CookieOAuthState)
		if !ok {
			return
		}
		conf := h.deps.Auth.DiscordOAuth

		tok, err := h.deps.Auth.Identity.Exchange(r.Context(), conf, code)
		if err != nil {
			logging.Warn("Discord code exchange failed", "error", err)
			respondWithError(w, r, common.ErrUnauthenticated)
			return
		}
		user, err := h.deps.Auth.Identity.DiscordUser(r.Context(), conf, tok)
		if err != nil {
			logging.Warn("Discord identity lookup failed", "error", err)
			respondWithError(w, r, common.ErrUnauthenticated)
			return
		}

		var twitchLogin string
		if m, err := h.deps.Services.Members.GetByDiscordID(r.Context(), user.ID); err == nil {
			twitchLogin = m.TwitchLogin
		}

		sessionID, err := h.deps.Auth.Sessions.CreateSession(r.Context(), user.ID, user.Username, user.AvatarURL(), twitchLogin)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		h.setCookie(w, constants.CookieSession, sessionID, h.deps.Auth.SessionTTL)

		logging.Info("Discord login", "discord_id", user.ID, "twitch_login", twitchLogin)
		http.Redirect(w, r, h.landingURL(), http.StatusFound)
	}
}

// Logout handles POST /api/auth/logout
func (h *Handlers) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(constants.CookieSession); err == nil && cookie.Value != "" {
			if err := h.deps.Auth.Sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
				logging.Warn("Failed to delete session", "error", err)
			}
		}
		h.clearCookie(w, constants.CookieSession)
		h.clearCookie(w, constants.CookieAdmin)
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminLogin handles POST /api/auth/admin/login
//
// @Summary      Username/password admin login
// @Description  Sets the signed admin cookie. Rate limited per IP.
// @Tags         Auth
// @Accept       json
// @Param        input  body  adminLoginRequest  true  "Credentials"
// @Failure      401  {object}  responses.APIResponse[any]
// @Router       /api/auth/admin/login [post]
func (h *Handlers) AdminLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signer := h.deps.Auth.AdminTokens
		if signer == nil || !signer.Enabled() {
			respondWithError(w, r, common.ErrNotFound)
			return
		}
		var req adminLoginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
		if !signer.CheckCredentials(req.Username, req.Password) {
			logging.Warn("Admin login rejected", "username", req.Username)
			respondWithError(w, r, common.ErrUnauthenticated)
			return
		}

		token, err := signer.Sign(req.Username, adminLoginTTL)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		h.setCookie(w, constants.CookieAdmin, token, adminLoginTTL)

		logging.Info("Admin login", "username", req.Username)
		respondWithSuccess(w, http.StatusOK, &meResponse{
			Username:    req.Username,
			Role:        constants.RoleAdmin,
			Source:      auth.SourceAdminLogin,
			IsAdmin:     true,
			Permissions: auth.Permissions(&auth.Principal{Role: constants.RoleAdmin}),
		})
	}
}

// Me handles GET /api/auth/me
func (h *Handlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.caller(w, r)
		if !ok {
			return
		}
		resp := &meResponse{
			DiscordID:   p.DiscordID,
			Username:    p.Username,
			TwitchLogin: p.TwitchLogin,
			Role:        p.Role,
			Source:      p.Source,
			IsAdmin:     p.Role.AtLeast(constants.RoleModeratorJunior),
			Permissions: auth.Permissions(p),
		}
		if p.TwitchLogin != "" {
			if m, err := h.deps.Services.Members.Get(r.Context(), p.TwitchLogin); err == nil {
				resp.Member = m
			}
		}
		respondWithSuccess(w, http.StatusOK, resp)
	}
}

// SectionAccess handles GET /api/auth/section-access?path=/admin/raids
func (h *Handlers) SectionAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			respondWithError(w, r, common.Validationf("path is required"))
			return
		}
		_, err := auth.RequireSectionAccess(r.Context(), path)
		respondWithSuccess(w, http.StatusOK, &sectionAccessResponse{
			Path:    path,
			MinRole: auth.SectionMinRole(path),
			Allowed: err == nil,
		})
	}
}

// TwitchLink handles GET /api/me/twitch/link
func (h *Handlers) TwitchLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.caller(w, r); !ok {
			return
		}
		h.startOAuth(w, r, h.deps.Auth.TwitchOAuth, constants.CookieTwitchState)
	}
}

// TwitchCallback handles GET /api/auth/twitch/callback. The linked account
// must be the caller's roster login.
func (h *Handlers) TwitchCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		code, ok := h.checkOAuthState(w, r, constants.CookieTwitchState)
		if !ok {
			return
		}
		conf := h.deps.Auth.TwitchOAuth

		tok, err := h.deps.Auth.Identity.Exchange(r.Context(), conf, code)
		if err != nil {
			logging.Warn("Twitch code exchange failed", "error", err)
			respondWithError(w, r, common.ErrUnauthenticated)
			return
		}
		user, err := h.deps.Auth.Identity.TwitchUser(r.Context(), conf, tok)
		if err != nil {
			logging.Warn("Twitch identity lookup failed", "error", err)
			respondWithError(w, r, common.ErrUnauthenticated)
			return
		}
		if gormModels.NormalizeLogin(user.Login) != p.TwitchLogin {
			respondWithError(w, r, common.Validationf("twitch account %s does not match member %s", user.Login, p.TwitchLogin))
			return
		}

		err = h.deps.Services.Live.LinkTwitch(r.Context(), entities.TwitchToken{
			TwitchLogin:  user.Login,
			TwitchUserID: user.ID,
			DiscordID:    p.DiscordID,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
			Scopes:       conf.Scopes,
		})
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		http.Redirect(w, r, h.landingURL(), http.StatusFound)
	}
}

// TwitchStatus handles GET /api/me/twitch
func (h *Handlers) TwitchStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		linked, at := h.deps.Services.Live.LinkStatus(r.Context(), p.TwitchLogin)
		resp := &twitchLinkResponse{Linked: linked}
		if linked {
			resp.LinkedAt = &at
		}
		respondWithSuccess(w, http.StatusOK, resp)
	}
}

// TwitchUnlink handles DELETE /api/me/twitch
func (h *Handlers) TwitchUnlink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.memberCaller(w, r)
		if !ok {
			return
		}
		if err := h.deps.Services.Live.UnlinkTwitch(r.Context(), p.TwitchLogin); err != nil {
			respondWithError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
