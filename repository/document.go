package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"loan-review-api/models"
	"loan-review-api/services"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Get(ctx context.Context, documentID int64) (*models.ApplicationDocument, error) {
	var doc models.ApplicationDocument
	err := r.db.WithContext(ctx).First(&doc, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.NotFound("document %d not found", documentID)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.ApplicationDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.ApplicationDocument, error) {
	var docs []models.ApplicationDocument
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("uploaded_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.ApplicationDocument, error) {
	var docs []models.ApplicationDocument
	err := r.db.WithContext(ctx).
		Where("compliance_request_id = ?", requestID).
		Order("uploaded_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepository) SetVerification(ctx context.Context, doc *models.ApplicationDocument) error {
	return r.db.WithContext(ctx).Model(&models.ApplicationDocument{}).
		Where("document_id = ?", doc.DocumentID).
		Updates(map[string]interface{}{
			"verification_status": string(doc.VerificationStatus),
			"rejection_reason":    doc.RejectionReason,
			"verified_by":         doc.VerifiedBy,
			"verified_at":         doc.VerifiedAt,
		}).Error
}
