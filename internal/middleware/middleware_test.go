package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]*common.SessionData

func (f fakeSessions) GetSession(_ context.Context, id string) (*common.SessionData, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, common.ErrSessionNotFound
}

type fakeRoles map[string]constants.MemberRole

func (f fakeRoles) Resolve(_ context.Context, discordID string) (constants.MemberRole, string, error) {
	if r, ok := f[discordID]; ok {
		return r, "login-" + discordID, nil
	}
	return constants.RoleAffilie, "", nil
}

type fakeAdminTokens struct{ valid string }

func (f fakeAdminTokens) Validate(token string) (string, error) {
	if token == f.valid {
		return "root", nil
	}
	return "", errors.New("bad token")
}

type fakeChecker struct{ err error }

func (f fakeChecker) CheckWrite(context.Context, *auth.Principal) error { return f.err }

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipal(r.Context())
		if p == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})
}

func TestPrincipalMiddleware(t *testing.T) {
	mw := PrincipalMiddleware(
		fakeSessions{"s1": {DiscordID: "d1", DiscordUsername: "alice", TwitchLogin: "alice_tw"}},
		fakeRoles{"d1": constants.RoleModeratorMentor},
		fakeAdminTokens{valid: "tok"},
	)
	h := mw(principalEcho())

	tests := []struct {
		name       string
		cookies    []*http.Cookie
		wantStatus int
		wantRole   constants.MemberRole
		wantSource string
	}{
		{"anonymous", nil, http.StatusNoContent, "", ""},
		{"session", []*http.Cookie{{Name: constants.CookieSession, Value: "s1"}}, http.StatusOK, constants.RoleModeratorMentor, auth.SourceDiscordSession},
		{"stale session", []*http.Cookie{{Name: constants.CookieSession, Value: "gone"}}, http.StatusNoContent, "", ""},
		{"admin login", []*http.Cookie{{Name: constants.CookieAdmin, Value: "tok"}}, http.StatusOK, constants.RoleAdmin, auth.SourceAdminLogin},
		{"bad admin token", []*http.Cookie{{Name: constants.CookieAdmin, Value: "forged"}}, http.StatusNoContent, "", ""},
		{"session wins", []*http.Cookie{
			{Name: constants.CookieSession, Value: "s1"},
			{Name: constants.CookieAdmin, Value: "tok"},
		}, http.StatusOK, constants.RoleModeratorMentor, auth.SourceDiscordSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var p auth.Principal
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
			assert.Equal(t, tt.wantRole, p.Role)
			assert.Equal(t, tt.wantSource, p.Source)
		})
	}
}

func TestPrincipalMiddleware_SessionLoginFromMember(t *testing.T) {
	h := PrincipalMiddleware(
		fakeSessions{"s1": {DiscordID: "d1", TwitchLogin: "from_session"}},
		fakeRoles{"d1": constants.RoleAdmin},
		nil,
	)(principalEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: constants.CookieSession, Value: "s1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var p auth.Principal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "login-d1", p.TwitchLogin)
}

func withPrincipal(p *auth.Principal, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			r = r.WithContext(auth.SetPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func TestGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	junior := &auth.Principal{DiscordID: "j", Role: constants.RoleModeratorJunior}
	admin := &auth.Principal{DiscordID: "a", Role: constants.RoleAdmin}
	affilie := &auth.Principal{DiscordID: "x", Role: constants.RoleAffilie}

	tests := []struct {
		name   string
		mw     func(http.Handler) http.Handler
		caller *auth.Principal
		want   int
	}{
		{"auth anonymous", RequireAuth(), nil, http.StatusUnauthorized},
		{"auth affilie", RequireAuth(), affilie, http.StatusOK},
		{"admin affilie", RequireAdmin(), affilie, http.StatusForbidden},
		{"admin junior", RequireAdmin(), junior, http.StatusOK},
		{"permission junior raids", RequirePermission(auth.PermRaidsWrite), junior, http.StatusForbidden},
		{"permission admin raids", RequirePermission(auth.PermRaidsWrite), admin, http.StatusOK},
		{"section junior spotlight", RequireSection("/admin/spotlight"), junior, http.StatusOK},
		{"section junior logs", RequireSection("/admin/logs"), junior, http.StatusForbidden},
		{"section anonymous", RequireSection("/admin/spotlight"), nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			withPrincipal(tt.caller, tt.mw(ok)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, rr.Code)
			if tt.want != http.StatusOK {
				assert.Contains(t, rr.Body.String(), `"status":"error"`)
			}
		})
	}
}

func TestSafeModeGuard(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	blocked := SafeModeGuard(fakeChecker{err: common.ErrSafeMode})(ok)
	open := SafeModeGuard(fakeChecker{})(ok)

	rr := httptest.NewRecorder()
	blocked.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/members", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "reads pass in safe mode")

	rr = httptest.NewRecorder()
	blocked.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/admin/members", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	open.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/admin/events/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, "10.0.0.9")
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"), "buckets are per IP")
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call("10.0.0.9:1000"), "whitelisted")
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(MetricsMiddleware(m))
	r.Get("/api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events/42", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(HeaderRequestID))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/events/{id}", http.MethodGet, "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight.WithLabelValues("/api/events/{id}")))
}

func TestRequestIDMiddleware_KeepsIncomingID(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rr.Header().Get(HeaderRequestID))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/members/{id}/history", NormalizeEndpoint("/api/members/123456789012345678/history"))
	assert.Equal(t, "/api/events/{id}", NormalizeEndpoint("/api/events/6f1c2b1e-8d1a-4c1a-9c5e-0a1b2c3d4e5f"))
	assert.Equal(t, "/api/raids/2024-05", NormalizeEndpoint("/api/raids/2024-05"))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
