package models

import "time"

// WorkflowEntry is one immutable ledger row per status transition. ActorID is
// nil for system-generated transitions. Rows are never updated or deleted.
type WorkflowEntry struct {
	EntryID       int64             `gorm:"primaryKey;column:entry_id" json:"entry_id"`
	ApplicationID int64             `gorm:"column:application_id" json:"application_id"`
	FromStatus    ApplicationStatus `gorm:"column:from_status" json:"from_status"`
	ToStatus      ApplicationStatus `gorm:"column:to_status" json:"to_status"`
	ActorID       *int64            `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Comment       *string           `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (WorkflowEntry) TableName() string {
	return "workflow_entries"
}
