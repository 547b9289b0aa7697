package gorm

import "time"

// Evaluation is the per-member, per-month aggregate. Each sub-system
// writes its own columns; partial rows are normal mid-month.
type Evaluation struct {
	MemberLogin string `gorm:"column:member_login;primaryKey" json:"memberLogin"`
	Month       string `gorm:"column:month;primaryKey" json:"month"`

	SpotlightPresent int     `gorm:"column:spotlight_present" json:"spotlightPresent"`
	SpotlightTotal   int     `gorm:"column:spotlight_total" json:"spotlightTotal"`
	SpotlightScore   float64 `gorm:"column:spotlight_score" json:"spotlightScore"`

	RaidsDone     int     `gorm:"column:raids_done" json:"raidsDone"`
	RaidsReceived int     `gorm:"column:raids_received" json:"raidsReceived"`
	RaidPoints    float64 `gorm:"column:raid_points" json:"raidPoints"`

	DiscordMessages     int     `gorm:"column:discord_messages" json:"discordMessages"`
	DiscordVoiceMinutes int     `gorm:"column:discord_voice_minutes" json:"discordVoiceMinutes"`
	DiscordMessageScore float64 `gorm:"column:discord_message_score" json:"discordMessageScore"`
	DiscordVoiceScore   float64 `gorm:"column:discord_voice_score" json:"discordVoiceScore"`
	DiscordScore        float64 `gorm:"column:discord_score" json:"discordScore"`

	EventsAttended int     `gorm:"column:events_attended" json:"eventsAttended"`
	EventsTotal    int     `gorm:"column:events_total" json:"eventsTotal"`
	EventScore     float64 `gorm:"column:event_score" json:"eventScore"`

	FollowedCount int     `gorm:"column:followed_count" json:"followedCount"`
	FollowTotal   int     `gorm:"column:follow_total" json:"followTotal"`
	FollowScore   float64 `gorm:"column:follow_score" json:"followScore"`

	TimezoneBonus   bool    `gorm:"column:timezone_bonus" json:"timezoneBonus"`
	ModerationBonus float64 `gorm:"column:moderation_bonus" json:"moderationBonus"`

	TotalHorsBonus float64 `gorm:"column:total_hors_bonus" json:"totalHorsBonus"`
	TotalAvecBonus float64 `gorm:"column:total_avec_bonus" json:"totalAvecBonus"`
	AutoStatus     string  `gorm:"column:auto_status" json:"autoStatus"`

	FinalizedAt *time.Time `gorm:"column:finalized_at" json:"finalizedAt,omitempty"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Evaluation) TableName() string {
	return "evaluations"
}

// Key is the identity used by the blob store and the consistency check.
func (e *Evaluation) Key() string { return EvaluationKey(e.MemberLogin, e.Month) }

func EvaluationKey(login, month string) string { return login + ":" + month }

func (e *Evaluation) Finalized() bool { return e.FinalizedAt != nil }
