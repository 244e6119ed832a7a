package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanApplication is the aggregate moving through the review pipeline.
// Phase-specific outcomes (verification checklist, risk assessment, decision)
// live in their own records so the row carries no half-filled decision fields.
type LoanApplication struct {
	ApplicationID     int64             `gorm:"primaryKey;column:application_id" json:"application_id"`
	ApplicationNumber string            `gorm:"column:application_number;unique" json:"application_number"`
	ApplicantID       int64             `gorm:"column:applicant_id" json:"applicant_id"`
	Status            ApplicationStatus `gorm:"column:status" json:"status"`
	Priority          Priority          `gorm:"column:priority" json:"priority"`
	RequestedAmount   decimal.Decimal   `gorm:"column:requested_amount;type:decimal(18,2)" json:"requested_amount"`
	TermMonths        int               `gorm:"column:term_months" json:"term_months"`
	Purpose           string            `gorm:"column:purpose" json:"purpose"`

	AssignedOfficerID           *int64  `gorm:"column:assigned_officer_id" json:"assigned_officer_id,omitempty"`
	AssignedComplianceOfficerID *int64  `gorm:"column:assigned_compliance_officer_id" json:"assigned_compliance_officer_id,omitempty"`
	ComplianceNotes             *string `gorm:"column:compliance_notes" json:"compliance_notes,omitempty"`

	// Version guards concurrent read-modify-write on the same application.
	Version int64 `gorm:"column:version" json:"-"`

	SubmittedAt     *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	FinalDecisionAt *time.Time `gorm:"column:final_decision_at" json:"final_decision_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Applicant                 *Applicant             `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	AssignedOfficer           *Officer               `gorm:"foreignKey:AssignedOfficerID" json:"assigned_officer,omitempty"`
	AssignedComplianceOfficer *Officer               `gorm:"foreignKey:AssignedComplianceOfficerID" json:"assigned_compliance_officer,omitempty"`
	Checklist                 *VerificationChecklist `gorm:"foreignKey:ApplicationID" json:"checklist,omitempty"`
	RiskAssessment            *RiskAssessment        `gorm:"foreignKey:ApplicationID" json:"risk_assessment,omitempty"`
	Decision                  *DecisionRecord        `gorm:"foreignKey:ApplicationID" json:"decision,omitempty"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

// VerificationChecklist records the per-category outcome of the batch
// document verification step.
type VerificationChecklist struct {
	ChecklistID        int64     `gorm:"primaryKey;column:checklist_id" json:"checklist_id"`
	ApplicationID      int64     `gorm:"column:application_id" json:"application_id"`
	IdentityVerified   bool      `gorm:"column:identity_verified" json:"identity_verified"`
	EmploymentVerified bool      `gorm:"column:employment_verified" json:"employment_verified"`
	IncomeVerified     bool      `gorm:"column:income_verified" json:"income_verified"`
	BankVerified       bool      `gorm:"column:bank_verified" json:"bank_verified"`
	Passed             bool      `gorm:"column:passed" json:"passed"`
	Notes              *string   `gorm:"column:notes" json:"notes,omitempty"`
	CompletedBy        int64     `gorm:"column:completed_by" json:"completed_by"`
	CompletedAt        time.Time `gorm:"column:completed_at" json:"completed_at"`
}

func (VerificationChecklist) TableName() string {
	return "verification_checklists"
}

// RiskAssessment holds the external verification outcome. Degraded is set
// when the credit bureau was unreachable and a conservative default was
// substituted.
type RiskAssessment struct {
	AssessmentID     int64           `gorm:"primaryKey;column:assessment_id" json:"assessment_id"`
	ApplicationID    int64           `gorm:"column:application_id" json:"application_id"`
	CreditScore      int             `gorm:"column:credit_score" json:"credit_score"`
	RiskLevel        string          `gorm:"column:risk_level" json:"risk_level"`
	RiskFactors      *string         `gorm:"column:risk_factors" json:"risk_factors,omitempty"` // JSON array
	TotalOutstanding decimal.Decimal `gorm:"column:total_outstanding;type:decimal(18,2)" json:"total_outstanding"`
	ActiveLoans      int             `gorm:"column:active_loans" json:"active_loans"`
	MissedPayments   int             `gorm:"column:missed_payments" json:"missed_payments"`
	HasDefaults      bool            `gorm:"column:has_defaults" json:"has_defaults"`
	ActiveFraudCases int             `gorm:"column:active_fraud_cases" json:"active_fraud_cases"`
	Degraded         bool            `gorm:"column:degraded" json:"degraded"`
	CreatedAt        time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (RiskAssessment) TableName() string {
	return "risk_assessments"
}

// DecisionType is the final outcome recorded for an application.
type DecisionType string

const (
	DecisionApproved DecisionType = "APPROVED"
	DecisionRejected DecisionType = "REJECTED"
)

// DecisionRecord is written exactly once, when the loan officer decides.
type DecisionRecord struct {
	DecisionID     int64            `gorm:"primaryKey;column:decision_id" json:"decision_id"`
	ApplicationID  int64            `gorm:"column:application_id" json:"application_id"`
	Decision       DecisionType     `gorm:"column:decision" json:"decision"`
	Reason         string           `gorm:"column:reason" json:"reason"`
	ApprovedAmount *decimal.Decimal `gorm:"column:approved_amount;type:decimal(18,2)" json:"approved_amount,omitempty"`
	InterestRate   *decimal.Decimal `gorm:"column:interest_rate;type:decimal(6,3)" json:"interest_rate,omitempty"`
	TermMonths     *int             `gorm:"column:term_months" json:"term_months,omitempty"`
	DecidedBy      int64            `gorm:"column:decided_by" json:"decided_by"`
	DecidedAt      time.Time        `gorm:"column:decided_at" json:"decided_at"`
}

func (DecisionRecord) TableName() string {
	return "decision_records"
}
