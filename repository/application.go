package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loan-review-api/models"
	"loan-review-api/services"
)

// ApplicationRepository persists the application aggregate. Every method that
// carries a workflow entry commits the status write, the version bump and the
// ledger row in one transaction.
type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Get(ctx context.Context, id int64) (*models.LoanApplication, error) {
	var app models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Applicant").
		Preload("AssignedOfficer").
		Preload("AssignedComplianceOfficer").
		Preload("Checklist").
		Preload("RiskAssessment").
		Preload("Decision").
		First(&app, "application_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.NotFound("application %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *models.LoanApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *ApplicationRepository) Update(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveApplication(tx, app, entry)
	})
}

// AssignOfficer persists an assignment after recounting the candidate's
// workload under a row lock. The recount inside the transaction closes the
// window between the engine's ranking read and this write.
func (r *ApplicationRepository) AssignOfficer(ctx context.Context, app *models.LoanApplication, officer *models.Officer, p services.AssignParams) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Officer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "officer_id = ?", officer.OfficerID).Error; err != nil {
			return err
		}
		if !locked.IsActive {
			return services.ErrOfficerAtCapacity
		}

		var count int64
		q := tx.Model(&models.LoanApplication{}).Where("status IN ?", statusValues(p.ActiveStatuses))
		if p.Compliance {
			q = q.Where("assigned_compliance_officer_id = ?", officer.OfficerID)
		} else {
			q = q.Where("assigned_officer_id = ?", officer.OfficerID)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= p.Cap {
			return services.ErrOfficerAtCapacity
		}

		return saveApplication(tx, app, p.Entry)
	})
}

func (r *ApplicationRepository) CompleteVerification(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, checklist *models.VerificationChecklist, results []services.DocumentResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveApplication(tx, app, entry); err != nil {
			return err
		}
		if checklist != nil {
			if err := tx.Create(checklist).Error; err != nil {
				return err
			}
		}
		for _, res := range results {
			updates := map[string]interface{}{
				"verification_status": models.DocumentVerified,
				"rejection_reason":    nil,
			}
			if !res.Verified {
				updates["verification_status"] = models.DocumentRejected
				updates["rejection_reason"] = res.Reason
			}
			if err := tx.Model(&models.ApplicationDocument{}).
				Where("document_id = ? AND application_id = ?", res.DocumentID, app.ApplicationID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ApplicationRepository) RecordRisk(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, risk *models.RiskAssessment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveApplication(tx, app, entry); err != nil {
			return err
		}
		return tx.Create(risk).Error
	})
}

func (r *ApplicationRepository) Decide(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, decision *models.DecisionRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveApplication(tx, app, entry); err != nil {
			return err
		}
		return tx.Create(decision).Error
	})
}

func (r *ApplicationRepository) CountAssigned(ctx context.Context, officerID int64, compliance bool, statuses []models.ApplicationStatus) (int, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.LoanApplication{}).
		Where("status IN ?", statusValues(statuses))
	if compliance {
		q = q.Where("assigned_compliance_officer_id = ?", officerID)
	} else {
		q = q.Where("assigned_officer_id = ?", officerID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ApplicationRepository) List(ctx context.Context, f services.ApplicationFilter) ([]models.LoanApplication, error) {
	q := r.db.WithContext(ctx).Model(&models.LoanApplication{}).
		Preload("Applicant").
		Order("created_at DESC")
	if f.ApplicantID != nil {
		q = q.Where("applicant_id = ?", *f.ApplicantID)
	}
	if f.OfficerID != nil {
		q = q.Where("assigned_officer_id = ?", *f.OfficerID)
	}
	if f.ComplianceOfficerID != nil {
		q = q.Where("assigned_compliance_officer_id = ?", *f.ComplianceOfficerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	var apps []models.LoanApplication
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) History(ctx context.Context, applicationID int64) ([]models.WorkflowEntry, error) {
	var entries []models.WorkflowEntry
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC, entry_id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// saveApplication writes the mutable application columns guarded by the
// version the caller read. Zero rows affected means another writer got there
// first.
func saveApplication(tx *gorm.DB, app *models.LoanApplication, entry *models.WorkflowEntry) error {
	res := tx.Model(&models.LoanApplication{}).
		Where("application_id = ? AND version = ?", app.ApplicationID, app.Version).
		Updates(map[string]interface{}{
			"status":                         string(app.Status),
			"priority":                       string(app.Priority),
			"compliance_notes":               app.ComplianceNotes,
			"assigned_officer_id":            app.AssignedOfficerID,
			"assigned_compliance_officer_id": app.AssignedComplianceOfficerID,
			"submitted_at":                   app.SubmittedAt,
			"final_decision_at":              app.FinalDecisionAt,
			"updated_at":                     app.UpdatedAt,
			"version":                        app.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrVersionConflict
	}
	app.Version++

	if entry != nil {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
	}
	return nil
}

func statusValues(statuses []models.ApplicationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
