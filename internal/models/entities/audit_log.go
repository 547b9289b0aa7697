package entities

import "time"

type AuditLog struct {
	ID        int64     `db:"id" json:"id"`
	Actor     string    `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	Target    string    `db:"target" json:"target"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// HealthStatus mirrors the /healthCheck payload.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Blob     string            `json:"blobBackend"`
	Uptime   string            `json:"uptime"`
}
