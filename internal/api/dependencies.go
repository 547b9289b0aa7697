package api

import (
	"context"
	"fmt"
	"time"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/config"
	"tenf/portal/internal/db"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/metrics"
	"tenf/portal/internal/models/dtos"
	"tenf/portal/internal/models/entities"
	"tenf/portal/internal/providers"
	"tenf/portal/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// SessionManager is satisfied by *common.SessionService.
type SessionManager interface {
	GetSession(ctx context.Context, sessionID string) (*common.SessionData, error)
	CreateSession(ctx context.Context, discordID, username, avatarURL, twitchLogin string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// OAuthIdentity is satisfied by *providers.IdentityProvider.
type OAuthIdentity interface {
	Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error)
	DiscordUser(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*dtos.DiscordUser, error)
	TwitchUser(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*dtos.TwitchUser, error)
}

// AuditLister is satisfied by *repositories.AuditLogRepository.
type AuditLister interface {
	List(ctx context.Context, action string, limit int) ([]entities.AuditLog, error)
}

type Repositories struct {
	Stores   *repositories.EntityStores
	Audit    AuditLister
	SafeMode *repositories.SafeModeRepository
	SyncKeys *repositories.SyncKeysRepository
}

type Services struct {
	Members     *services.MemberService
	Events      *services.EventService
	Evaluations *services.EvaluationService
	Raids       *services.RaidService
	Spotlights  *services.SpotlightService
	Academy     *services.AcademyService
	SafeMode    *services.SafeModeService
	Vip         *services.VipService
	Live        *services.LiveService
	Consistency *services.ConsistencyService
}

// AuthDeps carries what the login and session handlers need.
type AuthDeps struct {
	Sessions     SessionManager
	Roles        *auth.RoleResolver
	AdminTokens  *auth.AdminTokenSigner
	Identity     OAuthIdentity
	DiscordOAuth *oauth2.Config
	TwitchOAuth  *oauth2.Config
	SessionTTL   time.Duration
	CookieSecure bool
	// PublicURL is where the browser lands after a successful login.
	PublicURL string
}

// Pinger reports whether one backing service answers.
type Pinger func(ctx context.Context) error

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Auth     *AuthDeps
	Metrics  *metrics.MetricsRegistry
	Pingers  map[string]Pinger
	Blob     blob.Store
	ORM      *gorm.DB
	UpSince  time.Time

	closers []func() error
}

// Close releases the database pools and the Redis client.
func (d *Dependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Connections are the backing clients opened at startup. The CLI reuses
// them without building the HTTP layer.
type Connections struct {
	ORM   *gorm.DB
	SQL   *sqlx.DB
	Redis *redis.Client
	Blob  blob.Store
}

// OpenConnections opens Postgres (GORM and sqlx), Redis and the blob store.
func OpenConnections(ctx context.Context, cfg *config.Config, m *metrics.MetricsRegistry) (*Connections, error) {
	orm, err := db.InitPostgresORM(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.InitPostgres(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	redisClient := common.NewRedisClient(cfg.Redis)

	bs, err := blob.Open(ctx, cfg.Blob, redisClient, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return &Connections{ORM: orm, SQL: sqlDB, Redis: redisClient, Blob: bs}, nil
}

// NewServices wires the domain services over opened connections.
func NewServices(ctx context.Context, cfg *config.Config, conns *Connections, m *metrics.MetricsRegistry) (*Repositories, *Services) {
	stores := repositories.NewEntityStores(cfg.Storage, conns.ORM, conns.Blob)
	auditRepo := repositories.NewAuditLogRepository(conns.SQL)
	repo := &Repositories{
		Stores:   stores,
		Audit:    auditRepo,
		SafeMode: repositories.NewSafeModeRepository(conns.ORM),
		SyncKeys: repositories.NewSyncKeysRepository(conns.SQL),
	}

	discord := providers.NewDiscordProvider(cfg.Discord)
	var twitch services.TwitchClient
	if cfg.Twitch.ClientID != "" {
		twitch = providers.NewTwitchProvider(ctx, cfg.Twitch)
	}
	cache := common.NewCacheService(60, 600, m)

	evaluations := services.NewEvaluationService(stores.Evaluations, stores.Events, stores.Members, auditRepo, m)
	svcs := &Services{
		Members:     services.NewMemberService(stores.Members, discord, cfg.Discord.RoleMap, auditRepo),
		Events:      services.NewEventService(stores.Events, auditRepo, m),
		Evaluations: evaluations,
		Raids:       services.NewRaidService(conns.Blob, stores.Members, evaluations, discord, cfg.Discord.RaidChannelIDs, auditRepo, m),
		Spotlights:  services.NewSpotlightService(stores.Spotlights, stores.Members, evaluations, auditRepo),
		Academy:     services.NewAcademyService(conns.Blob, discord, cfg.Discord.AcademyRoleMap, auditRepo),
		SafeMode:    services.NewSafeModeService(repo.SafeMode, auditRepo, m),
		Vip:         services.NewVipService(conns.Blob, stores.Members, evaluations, auditRepo),
		Live:        services.NewLiveService(twitch, stores.Members, cache, conns.Blob),
		Consistency: services.NewConsistencyService(repo.SyncKeys, conns.Blob, stores, auditRepo, m),
	}
	return repo, svcs
}

// InitDependencies opens every connection and builds the handler graph.
func InitDependencies(ctx context.Context, cfg *config.Config, m *metrics.MetricsRegistry) (*Dependencies, error) {
	conns, err := OpenConnections(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	repo, svcs := NewServices(ctx, cfg, conns, m)

	authDeps := &AuthDeps{
		Sessions:    common.NewSessionService(conns.Redis, cfg.Auth.SessionTTL),
		Roles:       auth.NewRoleResolver(cfg.Auth.FounderIDs, cfg.Auth.AdminIDs, repo.Stores.Members),
		AdminTokens: auth.NewAdminTokenSigner(cfg.Auth.JWTSecret, cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash),
		Identity: &providers.IdentityProvider{
			DiscordBaseURL: cfg.Discord.APIBaseURL,
			HelixBaseURL:   cfg.Twitch.HelixBaseURL,
			TwitchClientID: cfg.Twitch.ClientID,
		},
		DiscordOAuth: providers.NewDiscordOAuthConfig(cfg.Discord),
		TwitchOAuth:  providers.NewTwitchOAuthConfig(cfg.Twitch),
		SessionTTL:   cfg.Auth.SessionTTL,
		CookieSecure: cfg.Server.CookieSecure,
		PublicURL:    cfg.Server.PublicURL,
	}

	return &Dependencies{
		Repo:     repo,
		Services: svcs,
		Auth:     authDeps,
		Metrics:  m,
		Blob:     conns.Blob,
		ORM:      conns.ORM,
		UpSince:  time.Now(),
		Pingers: map[string]Pinger{
			"postgres": func(ctx context.Context) error { return db.Ping(ctx, conns.SQL) },
			"redis":    func(ctx context.Context) error { return conns.Redis.Ping(ctx).Err() },
		},
		closers: []func() error{conns.SQL.Close, conns.Redis.Close},
	}, nil
}
