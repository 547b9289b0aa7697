package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventKindEvent       = "event"
	EventKindIntegration = "integration"
)

type Event struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Kind        string    `gorm:"column:kind;index" json:"kind"`
	Title       string    `gorm:"column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Category    string    `gorm:"column:category" json:"category"`
	Date        time.Time `gorm:"column:date;index" json:"date"`
	ImageURL    *string   `gorm:"column:image_url" json:"imageUrl,omitempty"`
	IsPublished bool      `gorm:"column:is_published" json:"isPublished"`
	CreatedBy   string    `gorm:"column:created_by" json:"createdBy"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	// Relationships
	Registrations []EventRegistration `gorm:"foreignKey:EventID" json:"registrations"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// EventRegistration is unique per (event, member login).
type EventRegistration struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	EventID      string    `gorm:"column:event_id;uniqueIndex:idx_event_member" json:"eventId"`
	MemberLogin  string    `gorm:"column:member_login;uniqueIndex:idx_event_member" json:"memberLogin"`
	DiscordID    string    `gorm:"column:discord_id" json:"discordId"`
	DisplayName  string    `gorm:"column:display_name" json:"displayName"`
	Notes        string    `gorm:"column:notes" json:"notes"`
	RegisteredAt time.Time `gorm:"column:registered_at" json:"registeredAt"`
}

// TableName specifies the table name for GORM
func (EventRegistration) TableName() string {
	return "event_registrations"
}

func (r *EventRegistration) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
