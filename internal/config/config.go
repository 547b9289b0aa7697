package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tenf/portal/internal/constants"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the portal reads at startup.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Blob     BlobConfig     `yaml:"blob"`
	Storage  StorageConfig  `yaml:"storage"`
	Discord  DiscordConfig  `yaml:"discord"`
	Twitch   TwitchConfig   `yaml:"twitch"`
	Auth     AuthConfig     `yaml:"auth"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	AppEnv       string `yaml:"app_env"`
	PublicURL    string `yaml:"public_url"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BlobConfig selects the document store backend: "redis", "filesystem" or
// "auto" (redis when it answers, filesystem otherwise).
type BlobConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// StorageConfig maps an entity name (members, events, evaluations,
// spotlights) to the backend holding its authoritative copy.
type StorageConfig struct {
	Backends map[string]string `yaml:"backends"`
}

type DiscordConfig struct {
	ClientID       string            `yaml:"client_id"`
	ClientSecret   string            `yaml:"client_secret"`
	RedirectURL    string            `yaml:"redirect_url"`
	BotToken       string            `yaml:"bot_token"`
	GuildID        string            `yaml:"guild_id"`
	APIBaseURL     string            `yaml:"api_base_url"`
	RoleMap        map[string]string `yaml:"role_map"`
	RaidChannelIDs []string          `yaml:"raid_channel_ids"`
	AcademyRoleMap map[string]string `yaml:"academy_role_map"`
}

type TwitchConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	HelixBaseURL string `yaml:"helix_base_url"`
}

type AuthConfig struct {
	FounderIDs        []string      `yaml:"founder_ids"`
	AdminIDs          []string      `yaml:"admin_ids"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	JWTSecret         string        `yaml:"jwt_secret"`
	AdminUsername     string        `yaml:"admin_username"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
}

type JobsConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// Backend returns the configured backend for an entity, relational by default.
func (s StorageConfig) Backend(entity string) string {
	if b, ok := s.Backends[entity]; ok && b != "" {
		return b
	}
	return constants.BackendRelational
}

// LoadConfig reads the YAML file, falling back to environment variables
// alone when the file does not exist. Environment values always win.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres dsn not set (DATABASE_URL)")
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.AppEnv = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.Server.CookieSecure = v == "true"
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("BLOB_BACKEND"); v != "" {
		cfg.Blob.Backend = v
	}
	if v := os.Getenv("BLOB_DATA_DIR"); v != "" {
		cfg.Blob.DataDir = v
	}
	if v := os.Getenv("DISCORD_CLIENT_ID"); v != "" {
		cfg.Discord.ClientID = v
	}
	if v := os.Getenv("DISCORD_CLIENT_SECRET"); v != "" {
		cfg.Discord.ClientSecret = v
	}
	if v := os.Getenv("DISCORD_REDIRECT_URL"); v != "" {
		cfg.Discord.RedirectURL = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("DISCORD_RAID_CHANNEL_IDS"); v != "" {
		cfg.Discord.RaidChannelIDs = splitList(v)
	}
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		cfg.Twitch.ClientID = v
	}
	if v := os.Getenv("TWITCH_CLIENT_SECRET"); v != "" {
		cfg.Twitch.ClientSecret = v
	}
	if v := os.Getenv("TWITCH_REDIRECT_URL"); v != "" {
		cfg.Twitch.RedirectURL = v
	}
	if v := os.Getenv("FOUNDER_DISCORD_IDS"); v != "" {
		cfg.Auth.FounderIDs = splitList(v)
	}
	if v := os.Getenv("ADMIN_DISCORD_IDS"); v != "" {
		cfg.Auth.AdminIDs = splitList(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.Auth.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Jobs.ReconcileInterval = d
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.AppEnv == "" {
		cfg.Server.AppEnv = "development"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = "auto"
	}
	if cfg.Blob.DataDir == "" {
		cfg.Blob.DataDir = "data"
	}
	if cfg.Discord.APIBaseURL == "" {
		cfg.Discord.APIBaseURL = "https://discord.com/api/v10"
	}
	if cfg.Twitch.HelixBaseURL == "" {
		cfg.Twitch.HelixBaseURL = "https://api.twitch.tv/helix"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
