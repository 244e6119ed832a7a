package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loan-review-api/config"
	"loan-review-api/models"
)

// ReviewWorkflow drives an application from submission through document and
// external verification to the final decision.
type ReviewWorkflow struct {
	apps     ApplicationStore
	docs     DocumentStore
	ledger   *Ledger
	engine   *AssignmentEngine
	scorer   CreditScorer
	notifier Notifier
	cfg      config.Workflow
}

func NewReviewWorkflow(apps ApplicationStore, docs DocumentStore, ledger *Ledger, engine *AssignmentEngine, scorer CreditScorer, notifier Notifier, cfg config.Workflow) *ReviewWorkflow {
	return &ReviewWorkflow{
		apps:     apps,
		docs:     docs,
		ledger:   ledger,
		engine:   engine,
		scorer:   scorer,
		notifier: notifier,
		cfg:      cfg,
	}
}

// SubmitInput is the applicant-provided part of a new application.
type SubmitInput struct {
	Amount     decimal.Decimal
	TermMonths int
	Purpose    string
	Priority   models.Priority
}

// Submit creates the application, records DRAFT -> SUBMITTED, and asks the
// assignment engine for a loan officer. When every officer is at capacity the
// application stays SUBMITTED and the capacity error is returned alongside
// it, so the caller can retry assignment later.
func (w *ReviewWorkflow) Submit(ctx context.Context, applicant *models.Applicant, in SubmitInput) (*models.LoanApplication, error) {
	if !in.Amount.IsPositive() {
		return nil, Invalid("requested amount must be positive")
	}
	if in.TermMonths <= 0 {
		return nil, Invalid("term months must be positive")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return nil, Invalid("loan purpose is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, Invalid("unknown priority %q", in.Priority)
	}

	now := time.Now()
	app := &models.LoanApplication{
		ApplicationNumber: newApplicationNumber(now),
		ApplicantID:       applicant.ApplicantID,
		Status:            models.StatusDraft,
		Priority:          in.Priority,
		RequestedAmount:   in.Amount,
		TermMonths:        in.TermMonths,
		Purpose:           strings.TrimSpace(in.Purpose),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := w.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	submitted := now
	app.SubmittedAt = &submitted
	actor := applicant.ApplicantID
	if err := w.ledger.Transition(ctx, app, models.StatusSubmitted, &actor, "application submitted"); err != nil {
		return nil, err
	}

	officer, err := w.engine.AssignLoanOfficer(ctx, app)
	if err != nil {
		// The submission stands; assignment can be retried explicitly.
		return app, err
	}

	w.notify(ctx, models.RecipientOfficer, officer.OfficerID, "New application assigned",
		fmt.Sprintf("Application %s has been assigned to you for review.", app.ApplicationNumber), app)
	w.notify(ctx, models.RecipientApplicant, applicant.ApplicantID, "Application received",
		fmt.Sprintf("Your application %s is under review.", app.ApplicationNumber), app)
	return app, nil
}

// Assign retries loan officer assignment for an application stuck in
// SUBMITTED.
func (w *ReviewWorkflow) Assign(ctx context.Context, applicationID int64) (*models.LoanApplication, *models.Officer, error) {
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	officer, err := w.engine.AssignLoanOfficer(ctx, app)
	if err != nil {
		return app, nil, err
	}
	w.notify(ctx, models.RecipientOfficer, officer.OfficerID, "New application assigned",
		fmt.Sprintf("Application %s has been assigned to you for review.", app.ApplicationNumber), app)
	return app, officer, nil
}

// StartDocumentVerification moves a reviewed application into document
// verification. The guard also admits the retry edge out of
// DOCUMENT_INCOMPLETE once the applicant has resubmitted.
func (w *ReviewWorkflow) StartDocumentVerification(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if err := w.ledger.Transition(ctx, app, models.StatusDocumentVerification, &officerID, "document verification started"); err != nil {
		return nil, err
	}
	return app, nil
}

// VerificationInput carries the batch document verification outcome.
type VerificationInput struct {
	Results            []DocumentResult
	IdentityVerified   bool
	EmploymentVerified bool
	IncomeVerified     bool
	BankVerified       bool
	OverallPassed      bool
	Comment            string
}

// CompleteDocumentVerification applies the per-document and per-category
// outcomes as one unit and advances to PENDING_EXTERNAL_VERIFICATION or back
// to DOCUMENT_INCOMPLETE. The assigned officer is never changed by a failed
// verification round.
func (w *ReviewWorkflow) CompleteDocumentVerification(ctx context.Context, applicationID, officerID int64, in VerificationInput) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	for _, r := range in.Results {
		if !r.Verified && strings.TrimSpace(r.Reason) == "" {
			return nil, Invalid("document %d: a rejection reason is required", r.DocumentID)
		}
	}

	target := models.StatusPendingExternalVerification
	if !in.OverallPassed {
		target = models.StatusDocumentIncomplete
	}
	entry, err := w.ledger.Prepare(app, target, &officerID, in.Comment)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	checklist := &models.VerificationChecklist{
		ApplicationID:      app.ApplicationID,
		IdentityVerified:   in.IdentityVerified,
		EmploymentVerified: in.EmploymentVerified,
		IncomeVerified:     in.IncomeVerified,
		BankVerified:       in.BankVerified,
		Passed:             in.OverallPassed,
		CompletedBy:        officerID,
		CompletedAt:        now,
	}
	if in.Comment != "" {
		comment := in.Comment
		checklist.Notes = &comment
	}

	if err := w.apps.CompleteVerification(ctx, app, entry, checklist, in.Results); err != nil {
		return nil, err
	}
	w.ledger.Committed(ctx, entry)

	if !in.OverallPassed {
		w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Documents incomplete",
			fmt.Sprintf("Application %s needs corrected documents before review can continue.", app.ApplicationNumber), app)
	}
	return app, nil
}

// RequestResubmission rejects specific documents and parks the application in
// DOCUMENT_INCOMPLETE until the applicant re-uploads. Officer assignment is
// preserved.
func (w *ReviewWorkflow) RequestResubmission(ctx context.Context, applicationID, officerID int64, rejected []DocumentResult, deadlineDays int) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if len(rejected) == 0 {
		return nil, Invalid("at least one rejected document is required")
	}
	for i := range rejected {
		rejected[i].Verified = false
		if strings.TrimSpace(rejected[i].Reason) == "" {
			return nil, Invalid("document %d: a rejection reason is required", rejected[i].DocumentID)
		}
	}
	if deadlineDays <= 0 {
		deadlineDays = w.cfg.DefaultDocDeadlineDays
	}

	comment := fmt.Sprintf("resubmission requested, deadline %d days", deadlineDays)
	entry, err := w.ledger.Prepare(app, models.StatusDocumentIncomplete, &officerID, comment)
	if err != nil {
		return nil, err
	}
	if err := w.apps.CompleteVerification(ctx, app, entry, nil, rejected); err != nil {
		return nil, err
	}
	w.ledger.Committed(ctx, entry)

	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Documents rejected",
		fmt.Sprintf("Application %s: %d document(s) were rejected. Please resubmit within %d days.",
			app.ApplicationNumber, len(rejected), deadlineDays), app)
	return app, nil
}

// TriggerExternalVerification hands the application to the fraud check stage.
func (w *ReviewWorkflow) TriggerExternalVerification(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if err := w.ledger.Transition(ctx, app, models.StatusFraudCheck, &officerID, "external verification triggered"); err != nil {
		return nil, err
	}
	return app, nil
}

// CompleteExternalVerification consumes the credit bureau result and moves
// the application to READY_FOR_DECISION. When the bureau fails or has no
// record, a conservative high-risk default is recorded instead; the pipeline
// never blocks on the oracle.
func (w *ReviewWorkflow) CompleteExternalVerification(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if app.Applicant == nil {
		return nil, NotFound("applicant for application %d not found", app.ApplicationID)
	}

	report, err := w.scorer.Score(ctx, app.Applicant.NationalID, app.Applicant.TaxID)
	degraded := false
	if err != nil || report == nil || !report.Found {
		if err != nil {
			log.Printf("credit scoring failed for application %d: %v", app.ApplicationID, err)
		}
		report = ConservativeCreditReport()
		degraded = true
	}

	comment := fmt.Sprintf("risk level %s", report.RiskLevel)
	if degraded {
		comment = "scoring unavailable, conservative default applied"
	}
	entry, err := w.ledger.Prepare(app, models.StatusReadyForDecision, &officerID, comment)
	if err != nil {
		return nil, err
	}

	risk := &models.RiskAssessment{
		ApplicationID:    app.ApplicationID,
		CreditScore:      report.CreditScore,
		RiskLevel:        report.RiskLevel,
		TotalOutstanding: report.TotalOutstanding,
		ActiveLoans:      report.ActiveLoans,
		MissedPayments:   report.MissedPayments,
		HasDefaults:      report.HasDefaults,
		ActiveFraudCases: report.ActiveFraudCases,
		Degraded:         degraded,
		CreatedAt:        time.Now(),
	}
	if len(report.RiskFactors) > 0 {
		factors := `["` + strings.Join(report.RiskFactors, `","`) + `"]`
		risk.RiskFactors = &factors
	}

	if err := w.apps.RecordRisk(ctx, app, entry, risk); err != nil {
		return nil, err
	}
	w.ledger.Committed(ctx, entry)
	app.RiskAssessment = risk
	return app, nil
}

// DecideInput is the loan officer's final decision payload.
type DecideInput struct {
	Approve        bool
	Reason         string
	ApprovedAmount *decimal.Decimal
	InterestRate   *decimal.Decimal
	TermMonths     *int
}

// Decide records the final outcome exactly once. A second call finds the
// application outside READY_FOR_DECISION and fails; the decision record is
// never overwritten.
func (w *ReviewWorkflow) Decide(ctx context.Context, applicationID, officerID int64, in DecideInput) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if app.Decision != nil {
		return nil, InvalidState("application %d already has a decision", app.ApplicationID)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, Invalid("a decision reason is required")
	}

	target := models.StatusRejected
	decisionType := models.DecisionRejected
	if in.Approve {
		if in.ApprovedAmount == nil || !in.ApprovedAmount.IsPositive() {
			return nil, Invalid("approved amount must be positive")
		}
		target = models.StatusApproved
		decisionType = models.DecisionApproved
	}

	entry, err := w.ledger.Prepare(app, target, &officerID, in.Reason)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	app.FinalDecisionAt = &now
	decision := &models.DecisionRecord{
		ApplicationID:  app.ApplicationID,
		Decision:       decisionType,
		Reason:         strings.TrimSpace(in.Reason),
		ApprovedAmount: in.ApprovedAmount,
		InterestRate:   in.InterestRate,
		TermMonths:     in.TermMonths,
		DecidedBy:      officerID,
		DecidedAt:      now,
	}
	if err := w.apps.Decide(ctx, app, entry, decision); err != nil {
		return nil, err
	}
	w.ledger.Committed(ctx, entry)
	app.Decision = decision

	title := "Application rejected"
	body := fmt.Sprintf("Application %s was rejected: %s", app.ApplicationNumber, decision.Reason)
	if in.Approve {
		title = "Application approved"
		body = fmt.Sprintf("Application %s was approved for %s.", app.ApplicationNumber, in.ApprovedAmount.StringFixed(2))
	}
	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, title, body, app)
	return app, nil
}

// FlagForCompliance diverts a READY_FOR_DECISION application into the
// compliance sub-workflow and routes it to a compliance officer.
func (w *ReviewWorkflow) FlagForCompliance(ctx context.Context, applicationID, officerID int64, reason string, priority models.Priority) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, Invalid("a compliance flag reason is required")
	}
	if !priority.Valid() {
		return nil, Invalid("unknown priority %q", priority)
	}

	app.Priority = priority
	appendComplianceNote(app, fmt.Sprintf("flagged by officer %d: %s", officerID, reason))
	if err := w.ledger.Transition(ctx, app, models.StatusFlaggedForCompliance, &officerID, reason); err != nil {
		return nil, err
	}

	complianceOfficer, err := w.engine.AssignComplianceOfficer(ctx, app, priority)
	if err != nil {
		// The flag transition stands; compliance assignment can be retried.
		return app, err
	}
	w.notify(ctx, models.RecipientOfficer, complianceOfficer.OfficerID, "Compliance case assigned",
		fmt.Sprintf("Application %s was flagged for compliance review: %s", app.ApplicationNumber, reason), app)
	return app, nil
}

// Disburse releases funds for an approved application.
func (w *ReviewWorkflow) Disburse(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.loadForOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if err := w.ledger.Transition(ctx, app, models.StatusDisbursed, &officerID, "funds disbursed"); err != nil {
		return nil, err
	}
	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Funds disbursed",
		fmt.Sprintf("Funds for application %s have been disbursed.", app.ApplicationNumber), app)
	return app, nil
}

func (w *ReviewWorkflow) loadForOfficer(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.AssignedOfficerID == nil || *app.AssignedOfficerID != officerID {
		return nil, Unauthorized("officer %d is not assigned to application %d", officerID, applicationID)
	}
	return app, nil
}

func (w *ReviewWorkflow) notify(ctx context.Context, kind models.RecipientKind, recipientID int64, title, body string, app *models.LoanApplication) {
	if w.notifier == nil {
		return
	}
	id := app.ApplicationID
	if err := w.notifier.Notify(ctx, kind, recipientID, title, body, &id); err != nil {
		log.Printf("notification failed for %s %d: %v", kind, recipientID, err)
	}
}

func appendComplianceNote(app *models.LoanApplication, note string) {
	stamped := time.Now().Format("2006-01-02 15:04") + " " + note
	if app.ComplianceNotes == nil || *app.ComplianceNotes == "" {
		app.ComplianceNotes = &stamped
		return
	}
	joined := *app.ComplianceNotes + "\n" + stamped
	app.ComplianceNotes = &joined
}

func newApplicationNumber(now time.Time) string {
	return fmt.Sprintf("LN-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
