package gorm

import (
	"encoding/json"
	"strings"
	"time"

	"tenf/portal/internal/constants"
)

// FieldSource records who last set an overridable member attribute.
type FieldSource string

const (
	SourceManual FieldSource = "manual"
	SourceSynced FieldSource = "synced"
)

// Overridable member attributes. A manual value is never replaced by a
// bot-driven sync.
const (
	FieldRole        = "role"
	FieldDisplayName = "displayName"
	FieldIsActive    = "isActive"
)

type Member struct {
	TwitchLogin     string                 `gorm:"column:twitch_login;primaryKey" json:"twitchLogin"`
	DiscordID       *string                `gorm:"column:discord_id;uniqueIndex" json:"discordId,omitempty"`
	DiscordUsername string                 `gorm:"column:discord_username" json:"discordUsername"`
	DisplayName     string                 `gorm:"column:display_name" json:"displayName"`
	Role            constants.MemberRole   `gorm:"column:role;type:varchar(64)" json:"role"`
	IsActive        bool                   `gorm:"column:is_active" json:"isActive"`
	IsVip           bool                   `gorm:"column:is_vip" json:"isVip"`
	Bio             string                 `gorm:"column:bio" json:"bio"`
	Badges          []string               `gorm:"column:badges;serializer:json;type:jsonb" json:"badges"`
	FieldSources    map[string]FieldSource `gorm:"column:field_sources;serializer:json;type:jsonb" json:"fieldSources"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Member) TableName() string {
	return "members"
}

// NormalizeLogin lowercases and trims a Twitch login.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func (m *Member) IsManual(field string) bool {
	return m.FieldSources[field] == SourceManual
}

// RoleManuallySet reports whether the role was set by an admin.
func (m *Member) RoleManuallySet() bool { return m.IsManual(FieldRole) }

func (m *Member) MarkSource(field string, src FieldSource) {
	if m.FieldSources == nil {
		m.FieldSources = map[string]FieldSource{}
	}
	m.FieldSources[field] = src
}

// HasBadge reports whether the badge set contains b.
func (m *Member) HasBadge(b string) bool {
	for _, have := range m.Badges {
		if have == b {
			return true
		}
	}
	return false
}

// AddBadge inserts b unless it is already present.
func (m *Member) AddBadge(b string) {
	if b != "" && !m.HasBadge(b) {
		m.Badges = append(m.Badges, b)
	}
}

// MarshalJSON adds the roleManuallySet flag the admin UI reads.
func (m Member) MarshalJSON() ([]byte, error) {
	type plain Member
	return json.Marshal(struct {
		plain
		RoleManuallySet bool `json:"roleManuallySet"`
	}{plain(m), m.RoleManuallySet()})
}
