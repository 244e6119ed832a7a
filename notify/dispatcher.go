package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"loan-review-api/config"
	"loan-review-api/models"
)

// Dispatcher persists in-app notifications and mirrors them to email on a
// best-effort basis. Email failures are logged and never surfaced; the stored
// notification row is the source of truth.
type Dispatcher struct {
	db *gorm.DB
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

func (d *Dispatcher) Notify(ctx context.Context, recipient models.RecipientKind, recipientID int64, title, body string, applicationID *int64) error {
	n := models.Notification{
		RecipientID:          recipientID,
		RecipientKind:        recipient,
		Title:                title,
		Message:              body,
		Type:                 "info",
		RelatedApplicationID: applicationID,
		CreatedAt:            time.Now(),
	}
	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	email, err := d.recipientEmail(ctx, recipient, recipientID)
	if err != nil || email == "" {
		if err != nil {
			log.Printf("notify: could not resolve %s %d email: %v", recipient, recipientID, err)
		}
		return nil
	}
	html := fmt.Sprintf("<p>%s</p>", body)
	if err := config.SendMail([]string{email}, title, html); err != nil {
		log.Printf("notify: email to %s failed: %v", email, err)
	}
	return nil
}

func (d *Dispatcher) recipientEmail(ctx context.Context, recipient models.RecipientKind, recipientID int64) (string, error) {
	switch recipient {
	case models.RecipientApplicant:
		var applicant models.Applicant
		if err := d.db.WithContext(ctx).Select("email").First(&applicant, "applicant_id = ?", recipientID).Error; err != nil {
			return "", err
		}
		return applicant.Email, nil
	case models.RecipientOfficer:
		var officer models.Officer
		if err := d.db.WithContext(ctx).Select("email").First(&officer, "officer_id = ?", recipientID).Error; err != nil {
			return "", err
		}
		return officer.Email, nil
	default:
		return "", fmt.Errorf("unknown recipient kind %q", recipient)
	}
}
