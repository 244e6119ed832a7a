package models

import "time"

// RecipientKind routes a notification to the right account table.
type RecipientKind string

const (
	RecipientApplicant RecipientKind = "applicant"
	RecipientOfficer   RecipientKind = "officer"
)

type Notification struct {
	NotificationID       int64         `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	RecipientID          int64         `gorm:"column:recipient_id" json:"recipient_id"`
	RecipientKind        RecipientKind `gorm:"column:recipient_kind" json:"recipient_kind"`
	Title                string        `gorm:"column:title" json:"title"`
	Message              string        `gorm:"column:message" json:"message"`
	Type                 string        `gorm:"column:type" json:"type"` // info|success|warning|error
	RelatedApplicationID *int64        `gorm:"column:related_application_id" json:"related_application_id,omitempty"`
	IsRead               bool          `gorm:"column:is_read" json:"is_read"`
	CreatedAt            time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
