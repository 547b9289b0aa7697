package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tenf/portal/internal/api"
	"tenf/portal/internal/auth"
	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/config"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/metrics"
	"tenf/portal/internal/models/dtos"
	gormModels "tenf/portal/internal/models/gorm"
	"tenf/portal/internal/services"
)

const (
	founderID  = "100"
	adjointID  = "200"
	affilieID  = "300"
	adminUser  = "staff"
	adminPass  = "correct horse"
	testMonth  = "2026-08"
	jwtSecret  = "test-secret"
	publicURL  = "https://portal.example"
	oauthCode  = "code-123"
	discordUID = "400"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*common.SessionData
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*common.SessionData{}}
}

func (m *memSessions) GetSession(_ context.Context, id string) (*common.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) CreateSession(_ context.Context, discordID, username, avatarURL, twitchLogin string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "sess-" + discordID
	m.sessions[id] = &common.SessionData{
		SessionID:       id,
		DiscordID:       discordID,
		DiscordUsername: username,
		AvatarURL:       avatarURL,
		TwitchLogin:     twitchLogin,
		CreatedAt:       time.Now(),
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	return id, nil
}

func (m *memSessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type fakeIdentity struct{}

func (fakeIdentity) Exchange(_ context.Context, _ *oauth2.Config, code string) (*oauth2.Token, error) {
	if code != oauthCode {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: "access"}, nil
}

func (fakeIdentity) DiscordUser(context.Context, *oauth2.Config, *oauth2.Token) (*dtos.DiscordUser, error) {
	return &dtos.DiscordUser{ID: discordUID, Username: "newcomer"}, nil
}

func (fakeIdentity) TwitchUser(context.Context, *oauth2.Config, *oauth2.Token) (*dtos.TwitchUser, error) {
	return &dtos.TwitchUser{ID: "t1", Login: "alice"}, nil
}

type testServer struct {
	handler  http.Handler
	deps     *api.Dependencies
	sessions *memSessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := orm.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, orm.AutoMigrate(gormModels.AllModels()...))

	bs, err := blob.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.FounderIDs = []string{founderID}
	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	conns := &api.Connections{ORM: orm, SQL: sqlx.NewDb(sqlDB, "sqlite3"), Blob: bs}
	repo, svcs := api.NewServices(ctx, cfg, conns, m)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	require.NoError(t, err)

	sessions := newMemSessions()
	deps := &api.Dependencies{
		Repo:     repo,
		Services: svcs,
		Auth: &api.AuthDeps{
			Sessions:    sessions,
			Roles:       auth.NewRoleResolver(cfg.Auth.FounderIDs, nil, repo.Stores.Members),
			AdminTokens: auth.NewAdminTokenSigner(jwtSecret, adminUser, string(hash)),
			Identity:    fakeIdentity{},
			DiscordOAuth: &oauth2.Config{
				ClientID: "discord-client",
				Endpoint: oauth2.Endpoint{AuthURL: "https://discord.com/oauth2/authorize", TokenURL: "https://discord.com/api/oauth2/token"},
			},
			SessionTTL: time.Hour,
			PublicURL:  publicURL,
		},
		Metrics: m,
		Blob:    bs,
		ORM:     orm,
		UpSince: time.Now(),
		Pingers: map[string]api.Pinger{
			"postgres": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
		},
	}

	discord := func(id string) *string { return &id }
	for _, mb := range []gormModels.Member{
		{TwitchLogin: "founder", DiscordID: discord(founderID), Role: constants.RoleAffilie, IsActive: true},
		{TwitchLogin: "adjoint", DiscordID: discord(adjointID), Role: constants.RoleAdminAdjoint, IsActive: true},
		{TwitchLogin: "alice", DiscordID: discord(affilieID), Role: constants.RoleAffilie, IsActive: true},
	} {
		require.NoError(t, repo.Stores.Members.Create(ctx, &mb))
	}
	for _, id := range []string{founderID, adjointID, affilieID} {
		_, err := sessions.CreateSession(ctx, id, "user-"+id, "", "")
		require.NoError(t, err)
	}

	return &testServer{
		handler:  RegisterRoutes(deps, prometheus.NewRegistry()),
		deps:     deps,
		sessions: sessions,
	}
}

// do sends a request as the Discord user asID ("" for anonymous).
func (s *testServer) do(t *testing.T, method, target, asID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asID != "" {
		req.AddCookie(&http.Cookie{Name: constants.CookieSession, Value: "sess-" + asID})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *testServer) publishedEvent(t *testing.T) *gormModels.Event {
	t.Helper()
	e, err := s.deps.Services.Events.Create(context.Background(), founderID, services.EventInput{
		Kind:        gormModels.EventKindEvent,
		Title:       "Soirée jeux",
		Date:        time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC),
		IsPublished: true,
	})
	require.NoError(t, err)
	return e
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthCheck", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "filesystem", health["blobBackend"])

	s.deps.Pingers["redis"] = func(context.Context) error { return errors.New("connection refused") }
	rec = s.do(t, http.MethodGet, "/healthCheck", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublicMembers_Envelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, string(constants.APIStatusOk), env.Status)

	var members []gormModels.Member
	require.NoError(t, json.Unmarshal(env.Data, &members))
	assert.Len(t, members, 3)

	rec = s.do(t, http.MethodGet, "/api/members/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(constants.APIStatusError), decode(t, rec).Status)
}

func TestAdminRoutes_Guards(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		as     string
		target string
		want   int
	}{
		{"anonymous", "", "/api/admin/members", http.StatusUnauthorized},
		{"community member", affilieID, "/api/admin/members", http.StatusForbidden},
		{"adjoint in members section", adjointID, "/api/admin/members", http.StatusOK},
		{"adjoint in logs section", adjointID, "/api/admin/logs", http.StatusForbidden},
		{"founder in logs section", founderID, "/api/admin/logs", http.StatusOK},
		{"adjoint reads safe mode", adjointID, "/api/admin/safe-mode", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, tt.as, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterForEvent_Conflict(t *testing.T) {
	s := newTestServer(t)
	e := s.publishedEvent(t)
	target := "/api/events/" + e.ID + "/register"

	rec := s.do(t, http.MethodPost, target, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, target, affilieID, map[string]string{"notes": "je ramène des snacks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg gormModels.EventRegistration
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &reg))
	assert.Equal(t, "alice", reg.MemberLogin)

	rec = s.do(t, http.MethodPost, target, affilieID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, target, affilieID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSafeMode_BlocksNonFounderWrites(t *testing.T) {
	s := newTestServer(t)
	event := services.EventInput{Kind: gormModels.EventKindEvent, Title: "Quiz", Date: time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)}

	rec := s.do(t, http.MethodPut, "/api/admin/safe-mode", adjointID, map[string]bool{"enabled": true})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only founders toggle safe mode")

	rec = s.do(t, http.MethodPut, "/api/admin/safe-mode", founderID, map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/admin/events", adjointID, event)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "safe mode")

	rec = s.do(t, http.MethodGet, "/api/admin/events", adjointID, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay open")

	rec = s.do(t, http.MethodPost, "/api/admin/events", founderID, event)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/admin/safe-mode", founderID, map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/admin/events", adjointID, event)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSetBonus_ClosedMonthAndForce(t *testing.T) {
	s := newTestServer(t)
	target := "/api/admin/evaluations/" + testMonth + "/alice/bonus"
	bonus := map[string]any{"timezoneBonus": true}

	rec := s.do(t, http.MethodPut, target, adjointID, bonus)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/admin/evaluations/"+testMonth+"/close", adjointID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/admin/evaluations/"+testMonth+"/status", adjointID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"month":"`+testMonth+`","closed":true}`, string(decode(t, rec).Data))

	rec = s.do(t, http.MethodPut, target, adjointID, bonus)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, target+"?force=true", adjointID, bonus)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, target+"?force=maybe", founderID, bonus)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, target+"?force=true", founderID, map[string]any{"moderationBonus": 2})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestExportEvaluations_ContentType(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/admin/evaluations/"+testMonth+"/alice/bonus", founderID, map[string]any{"timezoneBonus": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/evaluations/"+testMonth+"/export", founderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), testMonth)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/admin/login", "", map[string]string{"username": adminUser, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, findCookie(rec, constants.CookieAdmin))

	rec = s.do(t, http.MethodPost, "/api/auth/admin/login", "", map[string]string{"username": adminUser, "password": adminPass})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := findCookie(rec, constants.CookieAdmin)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	s.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var body struct {
		Role    constants.MemberRole `json:"role"`
		Source  string               `json:"source"`
		IsAdmin bool                 `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(decode(t, me).Data, &body))
	assert.Equal(t, constants.RoleAdmin, body.Role)
	assert.Equal(t, auth.SourceAdminLogin, body.Source)
	assert.True(t, body.IsAdmin)
}

func TestDiscordLogin_StateRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/discord/login", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	stateCookie := findCookie(rec, constants.CookieOAuthState)
	require.NotNil(t, stateCookie)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, stateCookie.Value, loc.Query().Get("state"))

	bad := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code="+oauthCode+"&state=forged", nil)
	bad.AddCookie(stateCookie)
	badRec := httptest.NewRecorder()
	s.handler.ServeHTTP(badRec, bad)
	assert.Equal(t, http.StatusBadRequest, badRec.Code)

	good := httptest.NewRequest(http.MethodGet, "/api/auth/discord/callback?code="+oauthCode+"&state="+stateCookie.Value, nil)
	good.AddCookie(stateCookie)
	goodRec := httptest.NewRecorder()
	s.handler.ServeHTTP(goodRec, good)
	require.Equal(t, http.StatusFound, goodRec.Code, goodRec.Body.String())
	assert.Equal(t, publicURL, goodRec.Header().Get("Location"))

	session := findCookie(goodRec, constants.CookieSession)
	require.NotNil(t, session)
	data, err := s.sessions.GetSession(context.Background(), session.Value)
	require.NoError(t, err)
	assert.Equal(t, discordUID, data.DiscordID)

	rec = s.do(t, http.MethodGet, "/api/auth/me", discordUID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(decode(t, rec).Data), string(constants.RoleAffilie)))
}

func TestAuditLogs_RecordAdminWrites(t *testing.T) {
	s := newTestServer(t)
	s.publishedEvent(t)

	rec := s.do(t, http.MethodGet, "/api/admin/logs?action="+constants.AuditEventCreate, founderID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var logs []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, founderID, logs[0]["actor"])

	rec = s.do(t, http.MethodGet, "/api/admin/logs?limit=-1", founderID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVip_SetAndRead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/vip/"+testMonth, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, extractLogins(t, rec))

	target := "/api/admin/vip/" + testMonth
	rec = s.do(t, http.MethodPut, target, affilieID, map[string][]string{"logins": {"alice"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, target, adjointID, map[string][]string{"logins": {"alice", "ghost"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, target, adjointID, map[string][]string{"logins": {"Alice", "adjoint", "alice"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/vip/"+testMonth, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["adjoint","alice"]`, extractLogins(t, rec))
}

func extractLogins(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var vm struct {
		Logins json.RawMessage `json:"logins"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &vm))
	return string(vm.Logins)
}

func TestAdminWrites_PermissionGuards(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	const juniorID = "500"
	junior := juniorID
	require.NoError(t, s.deps.Repo.Stores.Members.Create(ctx, &gormModels.Member{
		TwitchLogin: "junior", DiscordID: &junior, Role: constants.RoleModeratorJunior, IsActive: true,
	}))
	_, err := s.sessions.CreateSession(ctx, juniorID, "user-"+juniorID, "", "")
	require.NoError(t, err)

	raid := map[string]string{"raider": "alice", "target": "adjoint"}
	tests := []struct {
		name    string
		as      string
		method  string
		target  string
		body    any
		allowed bool
	}{
		{"junior reads spotlights", juniorID, http.MethodGet, "/api/admin/spotlights", nil, true},
		{"junior starts a spotlight", juniorID, http.MethodPost, "/api/admin/spotlights", map[string]string{"streamerLogin": "alice"}, true},
		{"junior adds a raid", juniorID, http.MethodPost, "/api/admin/raids", raid, false},
		{"adjoint adds a raid", adjointID, http.MethodPost, "/api/admin/raids", raid, true},
		{"adjoint imports missing records", adjointID, http.MethodPost, "/api/admin/sync/import/members", nil, false},
		{"adjoint toggles safe mode", adjointID, http.MethodPut, "/api/admin/safe-mode", map[string]bool{"enabled": false}, false},
		{"founder reads logs", founderID, http.MethodGet, "/api/admin/logs", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.target, tt.as, tt.body)
			if tt.allowed {
				assert.NotContains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, rec.Code, rec.Body.String())
			} else {
				assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			}
		})
	}
}
