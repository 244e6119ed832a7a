package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"loan-review-api/models"
)

type ComplianceRepository struct {
	db *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

func (r *ComplianceRepository) CreateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *ComplianceRepository) OpenRequest(ctx context.Context, applicationID int64) (*models.ComplianceDocumentRequest, error) {
	var req models.ComplianceDocumentRequest
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status IN ?", applicationID,
			[]string{string(models.RequestPending), string(models.RequestReceived)}).
		Order("created_at DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ComplianceRepository) UpdateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error {
	return r.db.WithContext(ctx).Model(&models.ComplianceDocumentRequest{}).
		Where("request_id = ?", req.RequestID).
		Updates(map[string]interface{}{
			"status":     string(req.Status),
			"updated_at": req.UpdatedAt,
		}).Error
}

func (r *ComplianceRepository) SaveInvestigation(ctx context.Context, inv *models.ComplianceInvestigation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *ComplianceRepository) InvestigationFor(ctx context.Context, applicationID int64) (*models.ComplianceInvestigation, error) {
	var inv models.ComplianceInvestigation
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
