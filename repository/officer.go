package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"loan-review-api/models"
	"loan-review-api/services"
)

type OfficerRepository struct {
	db *gorm.DB
}

func NewOfficerRepository(db *gorm.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

func (r *OfficerRepository) Get(ctx context.Context, id int64) (*models.Officer, error) {
	var officer models.Officer
	err := r.db.WithContext(ctx).First(&officer, "officer_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.NotFound("officer %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &officer, nil
}

func (r *OfficerRepository) ListActive(ctx context.Context, roles ...models.OfficerRole) ([]models.Officer, error) {
	roleValues := make([]string, len(roles))
	for i, role := range roles {
		roleValues[i] = string(role)
	}
	var officers []models.Officer
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND role IN ?", true, roleValues).
		Order("officer_id ASC").
		Find(&officers).Error
	if err != nil {
		return nil, err
	}
	return officers, nil
}
