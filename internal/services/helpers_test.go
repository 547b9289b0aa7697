package services

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/metrics"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
	gormModels "tenf/portal/internal/models/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(gormModels.AllModels()...))
	return db
}

func setupBlob(t *testing.T) blob.Store {
	t.Helper()
	fs, err := blob.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return fs
}

func testMetrics() *metrics.MetricsRegistry {
	return metrics.NewMetricsRegistry(prometheus.NewRegistry())
}

func strPtr(s string) *string { return &s }

type testEnv struct {
	db      *gorm.DB
	blob    blob.Store
	stores  *repositories.EntityStores
	audit   *fakeAudit
	metrics *metrics.MetricsRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	return &testEnv{
		db:   db,
		blob: setupBlob(t),
		stores: &repositories.EntityStores{
			Members:     repositories.NewMemberRepositoryGORM(db),
			Events:      repositories.NewEventRepositoryGORM(db),
			Evaluations: repositories.NewEvaluationRepositoryGORM(db),
			Spotlights:  repositories.NewSpotlightRepositoryGORM(db),
		},
		audit:   &fakeAudit{},
		metrics: testMetrics(),
	}
}

func (e *testEnv) evaluations() *EvaluationService {
	return NewEvaluationService(e.stores.Evaluations, e.stores.Events, e.stores.Members, e.audit, e.metrics)
}

func (e *testEnv) addMember(t *testing.T, m gormModels.Member) {
	t.Helper()
	require.NoError(t, e.stores.Members.Create(context.Background(), &m))
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []entities.AuditLog
}

func (f *fakeAudit) Insert(_ context.Context, entry *entities.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeDiscord struct {
	members  []dtos.DiscordGuildMember
	messages map[string][]dtos.DiscordMessage
	err      error
	afters   []string
}

func (f *fakeDiscord) GetGuildMembers(context.Context) ([]dtos.DiscordGuildMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

func (f *fakeDiscord) GetGuildMember(_ context.Context, userID string) (*dtos.DiscordGuildMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.members {
		if f.members[i].User.ID == userID {
			return &f.members[i], nil
		}
	}
	return nil, nil
}

// GetChannelMessages returns the messages with an id above after, oldest
// first. Ids in tests are numeric like real snowflakes.
func (f *fakeDiscord) GetChannelMessages(_ context.Context, channelID, after string, limit int) ([]dtos.DiscordMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.afters = append(f.afters, after)
	cursor, _ := strconv.ParseUint(after, 10, 64)
	var out []dtos.DiscordMessage
	for _, m := range f.messages[channelID] {
		id, _ := strconv.ParseUint(m.ID, 10, 64)
		if id > cursor {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTwitch struct {
	users   []dtos.TwitchUser
	streams []dtos.TwitchStream
	clips   []dtos.TwitchClip
	videos  []dtos.TwitchVideo
	calls   int
}

func (f *fakeTwitch) GetUsers(_ context.Context, logins []string) ([]dtos.TwitchUser, error) {
	f.calls++
	return f.users, nil
}

func (f *fakeTwitch) GetStreams(_ context.Context, logins []string) ([]dtos.TwitchStream, error) {
	f.calls++
	return f.streams, nil
}

func (f *fakeTwitch) GetClips(_ context.Context, broadcasterID string, first int) ([]dtos.TwitchClip, error) {
	f.calls++
	return f.clips, nil
}

func (f *fakeTwitch) GetVideos(_ context.Context, userID string, first int) ([]dtos.TwitchVideo, error) {
	f.calls++
	return f.videos, nil
}
