package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"loan-review-api/models"
)

// AuditRepository appends audit rows. It runs outside the caller's
// transaction on purpose; audit failures must not roll back the operation
// they describe.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, actorID *int64, action, entityType string, entityID int64, details map[string]any) error {
	row := models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
	if len(details) > 0 {
		encoded, err := json.Marshal(details)
		if err != nil {
			return err
		}
		s := string(encoded)
		row.Details = &s
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
