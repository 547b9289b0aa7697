package gorm

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SpotlightActive    = "active"
	SpotlightCompleted = "completed"
	SpotlightCancelled = "cancelled"
)

// Spotlight is one live "featured streamer" session.
type Spotlight struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	StreamerLogin  string         `gorm:"column:streamer_login" json:"streamerLogin"`
	ModeratorLogin string         `gorm:"column:moderator_login" json:"moderatorLogin"`
	Status         string         `gorm:"column:status;index" json:"status"`
	Month          string         `gorm:"column:month;index" json:"month"`
	StartedAt      time.Time      `gorm:"column:started_at" json:"startedAt"`
	EndedAt        *time.Time     `gorm:"column:ended_at" json:"endedAt,omitempty"`
	Presence       []string       `gorm:"column:presence;serializer:json;type:jsonb" json:"presence"`
	CriteriaScores map[string]int `gorm:"column:criteria_scores;serializer:json;type:jsonb" json:"criteriaScores"`
	Notes          string         `gorm:"column:notes" json:"notes"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Spotlight) TableName() string {
	return "spotlights"
}

func (s *Spotlight) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsPresent reports whether login is in the presence set.
func (s *Spotlight) IsPresent(login string) bool {
	i := sort.SearchStrings(s.Presence, login)
	return i < len(s.Presence) && s.Presence[i] == login
}

// SetPresence adds or removes login, keeping the set sorted and unique.
func (s *Spotlight) SetPresence(login string, present bool) {
	i := sort.SearchStrings(s.Presence, login)
	found := i < len(s.Presence) && s.Presence[i] == login
	switch {
	case present && !found:
		s.Presence = append(s.Presence, "")
		copy(s.Presence[i+1:], s.Presence[i:])
		s.Presence[i] = login
	case !present && found:
		s.Presence = append(s.Presence[:i], s.Presence[i+1:]...)
	}
}
