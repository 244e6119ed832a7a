package services

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"loan-review-api/models"
)

// ApplicationFilter narrows application listings per caller role.
type ApplicationFilter struct {
	ApplicantID         *int64
	OfficerID           *int64
	ComplianceOfficerID *int64
	Status              *models.ApplicationStatus
}

// DocumentResult is one per-document outcome inside a batch verification.
type DocumentResult struct {
	DocumentID int64
	Verified   bool
	Reason     string
}

// AssignParams drives the atomic assignment write. The repository must
// recount the officer's workload inside the same transaction that persists
// the assignment and return ErrOfficerAtCapacity when the recount reaches
// Cap, closing the read-then-write race.
type AssignParams struct {
	Compliance     bool
	Cap            int
	ActiveStatuses []models.ApplicationStatus
	TransitionTo   *models.ApplicationStatus
	Entry          *models.WorkflowEntry
}

// ApplicationStore is the persistence contract for the aggregate. Every
// mutating method that carries a *models.WorkflowEntry must commit the
// application update and the ledger row in one transaction, guarded by the
// application's version.
type ApplicationStore interface {
	Get(ctx context.Context, id int64) (*models.LoanApplication, error)
	Create(ctx context.Context, app *models.LoanApplication) error
	Update(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry) error
	AssignOfficer(ctx context.Context, app *models.LoanApplication, officer *models.Officer, p AssignParams) error
	CompleteVerification(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, checklist *models.VerificationChecklist, results []DocumentResult) error
	RecordRisk(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, risk *models.RiskAssessment) error
	Decide(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, decision *models.DecisionRecord) error
	CountAssigned(ctx context.Context, officerID int64, compliance bool, statuses []models.ApplicationStatus) (int, error)
	List(ctx context.Context, f ApplicationFilter) ([]models.LoanApplication, error)
	History(ctx context.Context, applicationID int64) ([]models.WorkflowEntry, error)
}

// OfficerStore looks up review workers.
type OfficerStore interface {
	Get(ctx context.Context, id int64) (*models.Officer, error)
	ListActive(ctx context.Context, roles ...models.OfficerRole) ([]models.Officer, error)
}

// DocumentStore reads and updates document verification state. The core
// never touches file bytes.
type DocumentStore interface {
	Get(ctx context.Context, documentID int64) (*models.ApplicationDocument, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]models.ApplicationDocument, error)
	ListByRequest(ctx context.Context, requestID int64) ([]models.ApplicationDocument, error)
	SetVerification(ctx context.Context, doc *models.ApplicationDocument) error
}

// ComplianceStore persists document requests and investigation payloads.
type ComplianceStore interface {
	CreateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error
	// OpenRequest returns the PENDING/RECEIVED request for the application,
	// or (nil, nil) when there is none.
	OpenRequest(ctx context.Context, applicationID int64) (*models.ComplianceDocumentRequest, error)
	UpdateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error
	SaveInvestigation(ctx context.Context, inv *models.ComplianceInvestigation) error
	// InvestigationFor returns the latest stored investigation, or (nil, nil).
	InvestigationFor(ctx context.Context, applicationID int64) (*models.ComplianceInvestigation, error)
}

// AuditSink receives a summary of every committed transition and officer
// action. Implementations must never block or fail the primary operation;
// callers log and swallow errors.
type AuditSink interface {
	Record(ctx context.Context, actorID *int64, action, entityType string, entityID int64, details map[string]any) error
}

// Notifier delivers best-effort notifications. Failures are logged by the
// caller and never propagate.
type Notifier interface {
	Notify(ctx context.Context, recipient models.RecipientKind, recipientID int64, title, body string, applicationID *int64) error
}

// CreditReport is the credit bureau's answer for one applicant.
type CreditReport struct {
	CreditScore      int             `json:"credit_score"`
	RiskLevel        string          `json:"risk_level"`
	RiskFactors      []string        `json:"risk_factors"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	ActiveLoans      int             `json:"active_loans"`
	MissedPayments   int             `json:"missed_payments"`
	HasDefaults      bool            `json:"has_defaults"`
	ActiveFraudCases int             `json:"active_fraud_cases"`
	Found            bool            `json:"found"`
}

// CreditScorer is the external scoring oracle. A hard failure or Found=false
// must be absorbed by the caller into ConservativeCreditReport, never
// propagated as a blocking error.
type CreditScorer interface {
	Score(ctx context.Context, nationalID, taxID string) (*CreditReport, error)
}

// Investigator is the external investigation oracle; its payload is stored
// verbatim and forwarded later.
type Investigator interface {
	Investigate(ctx context.Context, nationalID, taxID string) (json.RawMessage, error)
}

// ConservativeCreditReport is substituted when the scoring oracle is
// unavailable: high risk, flagged for manual review, so the pipeline never
// blocks on the dependency.
func ConservativeCreditReport() *CreditReport {
	return &CreditReport{
		CreditScore: 300,
		RiskLevel:   "HIGH",
		RiskFactors: []string{"external verification unavailable", "manual review required"},
		Found:       false,
	}
}
