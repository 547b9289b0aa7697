package gorm

import "time"

// SafeModeState is a single-row table (ID 1).
type SafeModeState struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"-"`
	Enabled   bool      `gorm:"column:enabled" json:"enabled"`
	UpdatedBy string    `gorm:"column:updated_by" json:"updatedBy"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (SafeModeState) TableName() string {
	return "safe_mode_state"
}

// AuditLog is declared here for AutoMigrate; reads and writes go through
// the sqlx repository using entities.AuditLog.
type AuditLog struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Actor     string    `gorm:"column:actor;index"`
	Action    string    `gorm:"column:action;index"`
	Target    string    `gorm:"column:target"`
	Details   string    `gorm:"column:details"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Member{},
		&Event{},
		&EventRegistration{},
		&Evaluation{},
		&Spotlight{},
		&SafeModeState{},
		&AuditLog{},
	}
}
