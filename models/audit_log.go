package models

import "time"

// AuditLog is the fire-and-forget audit trail row. Writing it must never
// block or roll back the transition that produced it.
type AuditLog struct {
	LogID      int64     `gorm:"primaryKey;column:log_id" json:"log_id"`
	ActorID    *int64    `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Action     string    `gorm:"column:action" json:"action"`
	EntityType string    `gorm:"column:entity_type" json:"entity_type"`
	EntityID   int64     `gorm:"column:entity_id" json:"entity_id"`
	Details    *string   `gorm:"column:details" json:"details,omitempty"` // JSON blob
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
