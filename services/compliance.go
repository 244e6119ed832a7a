package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"loan-review-api/config"
	"loan-review-api/models"
)

// ComplianceWorkflow is the nested state machine that suspends the main
// review pipeline (flag -> investigate -> request documents -> decide) and
// hands control back to the loan officer when done. Compliance recommends;
// the loan officer decides.
type ComplianceWorkflow struct {
	apps         ApplicationStore
	docs         DocumentStore
	requests     ComplianceStore
	ledger       *Ledger
	engine       *AssignmentEngine
	investigator Investigator
	notifier     Notifier
	cfg          config.Workflow
}

func NewComplianceWorkflow(apps ApplicationStore, docs DocumentStore, requests ComplianceStore, ledger *Ledger, engine *AssignmentEngine, investigator Investigator, notifier Notifier, cfg config.Workflow) *ComplianceWorkflow {
	return &ComplianceWorkflow{
		apps:         apps,
		docs:         docs,
		requests:     requests,
		ledger:       ledger,
		engine:       engine,
		investigator: investigator,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// StartInvestigation opens the compliance review on a flagged, assigned
// application and pulls a baseline report from the investigation service.
// Oracle failure is tolerated; the investigation payload is optional
// downstream.
func (w *ComplianceWorkflow) StartInvestigation(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if err := w.ledger.Transition(ctx, app, models.StatusComplianceReview, &officerID, "compliance investigation started"); err != nil {
		return nil, err
	}

	if w.investigator != nil && app.Applicant != nil {
		findings, err := w.investigator.Investigate(ctx, app.Applicant.NationalID, app.Applicant.TaxID)
		if err != nil {
			log.Printf("investigation service failed for application %d: %v", app.ApplicationID, err)
		} else if len(findings) > 0 {
			inv := &models.ComplianceInvestigation{
				InvestigationID: uuid.NewString(),
				ApplicationID:   app.ApplicationID,
				Findings:        findings,
				CreatedAt:       time.Now(),
			}
			if err := w.requests.SaveInvestigation(ctx, inv); err != nil {
				log.Printf("failed to store investigation for application %d: %v", app.ApplicationID, err)
			}
		}
	}
	return app, nil
}

// DocumentRequestInput describes one ask for extra documents.
type DocumentRequestInput struct {
	Types        []string
	Reason       string
	DeadlineDays int
	Mandatory    bool
}

// RequestDocuments asks the applicant for additional documents and parks the
// application in PENDING_COMPLIANCE_DOCS. At most one request per application
// may be open; a second call while the prior one is unresolved fails.
func (w *ComplianceWorkflow) RequestDocuments(ctx context.Context, applicationID, officerID int64, in DocumentRequestInput) (*models.ComplianceDocumentRequest, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if len(in.Types) == 0 {
		return nil, Invalid("at least one document type is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, Invalid("a request reason is required")
	}
	if in.DeadlineDays <= 0 {
		in.DeadlineDays = w.cfg.DefaultDocDeadlineDays
	}

	open, err := w.requests.OpenRequest(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, InvalidState("application %d has an open document request with unresolved documents", applicationID)
	}

	if err := w.ledger.Transition(ctx, app, models.StatusPendingComplianceDocs, &officerID, "additional documents requested"); err != nil {
		return nil, err
	}

	now := time.Now()
	req := &models.ComplianceDocumentRequest{
		ApplicationID: applicationID,
		RequestedBy:   officerID,
		Reason:        strings.TrimSpace(in.Reason),
		DeadlineDays:  in.DeadlineDays,
		Mandatory:     in.Mandatory,
		Status:        models.RequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := req.SetRequiredTypes(in.Types); err != nil {
		return nil, Invalid("invalid document type list: %v", err)
	}
	if err := w.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Additional documents required",
		fmt.Sprintf("Application %s requires additional documents (%s) within %d days.",
			app.ApplicationNumber, strings.Join(in.Types, ", "), in.DeadlineDays), app)
	return req, nil
}

// DocumentsReceived is invoked by the upload surface after a compliance
// document lands. Once every requested type has at least one upload, the
// request is marked RECEIVED and the application advances to
// UNDER_INVESTIGATION.
func (w *ComplianceWorkflow) DocumentsReceived(ctx context.Context, applicationID int64, actorID *int64) error {
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != models.StatusPendingComplianceDocs {
		return nil
	}
	open, err := w.requests.OpenRequest(ctx, applicationID)
	if err != nil {
		return err
	}
	if open == nil {
		return nil
	}

	uploaded, err := w.docs.ListByRequest(ctx, open.RequestID)
	if err != nil {
		return err
	}
	byType := make(map[string]bool, len(uploaded))
	for _, d := range uploaded {
		byType[d.DocumentTypeCode] = true
	}
	for _, required := range open.RequiredTypes() {
		if !byType[required] {
			return nil
		}
	}

	open.Status = models.RequestReceived
	open.UpdatedAt = time.Now()
	if err := w.requests.UpdateRequest(ctx, open); err != nil {
		return err
	}
	return w.ledger.Transition(ctx, app, models.StatusUnderInvestigation, actorID, "requested documents received")
}

// VerifyDocument marks one compliance-tagged document VERIFIED. The
// application status does not change here, but fulfilling the last
// outstanding document type advances the request and the application.
func (w *ComplianceWorkflow) VerifyDocument(ctx context.Context, applicationID, documentID, officerID int64) error {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return err
	}
	doc, err := w.loadComplianceDocument(ctx, app, documentID)
	if err != nil {
		return err
	}

	now := time.Now()
	doc.VerificationStatus = models.DocumentVerified
	doc.VerifiedBy = &officerID
	doc.VerifiedAt = &now
	doc.RejectionReason = nil
	if err := w.docs.SetVerification(ctx, doc); err != nil {
		return err
	}
	return w.resolveRequest(ctx, app)
}

// RejectDocument marks one compliance-tagged document REJECTED. While the
// application is UNDER_INVESTIGATION this reopens the document loop.
func (w *ComplianceWorkflow) RejectDocument(ctx context.Context, applicationID, documentID, officerID int64, reason string) error {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return Invalid("a rejection reason is required")
	}
	doc, err := w.loadComplianceDocument(ctx, app, documentID)
	if err != nil {
		return err
	}

	now := time.Now()
	trimmed := strings.TrimSpace(reason)
	doc.VerificationStatus = models.DocumentRejected
	doc.RejectionReason = &trimmed
	doc.VerifiedBy = &officerID
	doc.VerifiedAt = &now
	if err := w.docs.SetVerification(ctx, doc); err != nil {
		return err
	}

	if app.Status == models.StatusUnderInvestigation {
		if err := w.ledger.Transition(ctx, app, models.StatusPendingComplianceDocs, &officerID, "compliance document rejected: "+trimmed); err != nil {
			return err
		}
	}
	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Compliance document rejected",
		fmt.Sprintf("A document on application %s was rejected: %s", app.ApplicationNumber, trimmed), app)
	return w.resolveRequest(ctx, app)
}

// resolveRequest fulfills the open request once every requested document type
// has reached a terminal outcome, VERIFIED or REJECTED alike, and nothing is
// left pending, then pushes a PENDING_COMPLIANCE_DOCS application forward to
// UNDER_INVESTIGATION. Rejections count: a fully reviewed request is resolved
// even when some documents were rejected, so the officer can proceed to a
// recommendation instead of waiting on replacements.
func (w *ComplianceWorkflow) resolveRequest(ctx context.Context, app *models.LoanApplication) error {
	open, err := w.requests.OpenRequest(ctx, app.ApplicationID)
	if err != nil {
		return err
	}
	if open == nil {
		return nil
	}

	uploaded, err := w.docs.ListByRequest(ctx, open.RequestID)
	if err != nil {
		return err
	}
	reviewedByType := make(map[string]bool)
	for _, d := range uploaded {
		if d.VerificationStatus == models.DocumentPending {
			return nil
		}
		reviewedByType[d.DocumentTypeCode] = true
	}
	for _, required := range open.RequiredTypes() {
		if !reviewedByType[required] {
			return nil
		}
	}

	open.Status = models.RequestFulfilled
	open.UpdatedAt = time.Now()
	if err := w.requests.UpdateRequest(ctx, open); err != nil {
		return err
	}
	if app.Status == models.StatusPendingComplianceDocs {
		return w.ledger.Transition(ctx, app, models.StatusUnderInvestigation, nil, "document request fulfilled")
	}
	return nil
}

// TriggerDecision closes the investigation and puts the case before the
// compliance officer for a recommendation. All compliance documents must be
// resolved first.
func (w *ComplianceWorkflow) TriggerDecision(ctx context.Context, applicationID, officerID int64, summary string) (*models.LoanApplication, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	pending, err := w.pendingComplianceDocs(ctx, app.ApplicationID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, InvalidState("verify pending documents first (%d unresolved)", pending)
	}

	if s := strings.TrimSpace(summary); s != "" {
		appendComplianceNote(app, "investigation summary: "+s)
	}
	if err := w.ledger.Transition(ctx, app, models.StatusAwaitingComplianceDecision, &officerID, "investigation complete"); err != nil {
		return nil, err
	}
	return app, nil
}

// ComplianceDecision is what SubmitDecision hands back to the main workflow.
type ComplianceDecision struct {
	Application    *models.LoanApplication         `json:"application"`
	Recommendation string                          `json:"recommendation"`
	Notes          string                          `json:"notes"`
	Investigation  *models.ComplianceInvestigation `json:"investigation,omitempty"`
}

// SubmitDecision records the compliance recommendation and returns control to
// the main pipeline. Both APPROVE and REJECT land in READY_FOR_DECISION: the
// loan officer makes the final call either way.
func (w *ComplianceWorkflow) SubmitDecision(ctx context.Context, applicationID, officerID int64, approve bool, notes string) (*ComplianceDecision, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, Invalid("notes for the loan officer are required")
	}

	recommendation := "REJECT"
	if approve {
		recommendation = "APPROVE"
	}
	appendComplianceNote(app, fmt.Sprintf("compliance recommends %s: %s", recommendation, strings.TrimSpace(notes)))
	if err := w.ledger.Transition(ctx, app, models.StatusReadyForDecision, &officerID, "compliance recommends "+recommendation); err != nil {
		return nil, err
	}

	inv, err := w.requests.InvestigationFor(ctx, applicationID)
	if err != nil {
		log.Printf("failed to load investigation for application %d: %v", applicationID, err)
		inv = nil
	}
	if app.AssignedOfficerID != nil {
		w.notify(ctx, models.RecipientOfficer, *app.AssignedOfficerID, "Compliance review complete",
			fmt.Sprintf("Application %s is back for decision. Compliance recommends %s.", app.ApplicationNumber, recommendation), app)
	}
	return &ComplianceDecision{
		Application:    app,
		Recommendation: recommendation,
		Notes:          strings.TrimSpace(notes),
		Investigation:  inv,
	}, nil
}

// QuickClear skips the investigation entirely and returns a flagged
// application to the decision stage.
func (w *ComplianceWorkflow) QuickClear(ctx context.Context, applicationID, officerID int64, comment string) (*models.LoanApplication, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusFlaggedForCompliance {
		return nil, InvalidState("quick clear requires FLAGGED_FOR_COMPLIANCE, got %s", app.Status)
	}
	appendComplianceNote(app, fmt.Sprintf("quick-cleared by officer %d", officerID))
	if err := w.ledger.Transition(ctx, app, models.StatusReadyForDecision, &officerID, firstNonEmpty(comment, "compliance quick clear")); err != nil {
		return nil, err
	}
	return app, nil
}

// QuickReject skips the investigation and rejects the application outright.
func (w *ComplianceWorkflow) QuickReject(ctx context.Context, applicationID, officerID int64, reason string) (*models.LoanApplication, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusFlaggedForCompliance {
		return nil, InvalidState("quick reject requires FLAGGED_FOR_COMPLIANCE, got %s", app.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, Invalid("a rejection reason is required")
	}
	appendComplianceNote(app, fmt.Sprintf("quick-rejected by officer %d: %s", officerID, strings.TrimSpace(reason)))
	if err := w.ledger.Transition(ctx, app, models.StatusRejected, &officerID, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Application rejected",
		fmt.Sprintf("Application %s was rejected after compliance screening.", app.ApplicationNumber), app)
	return app, nil
}

// Escalate moves the compliance assignment to the senior pool.
func (w *ComplianceWorkflow) Escalate(ctx context.Context, applicationID, officerID int64) (*models.Officer, error) {
	app, err := w.loadForComplianceOfficer(ctx, applicationID, officerID)
	if err != nil {
		return nil, err
	}
	senior, err := w.engine.EscalateToSenior(ctx, app)
	if err != nil {
		return nil, err
	}
	w.notify(ctx, models.RecipientOfficer, senior.OfficerID, "Escalated compliance case",
		fmt.Sprintf("Application %s was escalated to you.", app.ApplicationNumber), app)
	return senior, nil
}

// ProcessTimeout applies the compliance timeout policy to one application:
// PENDING_COMPLIANCE_DOCS for longer than the configured window expires the
// open request and terminates the case. The check runs on demand; there is no
// scheduler in this core.
func (w *ComplianceWorkflow) ProcessTimeout(ctx context.Context, applicationID int64) (bool, error) {
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if app.Status != models.StatusPendingComplianceDocs {
		return false, nil
	}
	if time.Since(app.UpdatedAt) <= w.cfg.ComplianceTimeout {
		return false, nil
	}

	open, err := w.requests.OpenRequest(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if open != nil {
		open.Status = models.RequestExpired
		open.UpdatedAt = time.Now()
		if err := w.requests.UpdateRequest(ctx, open); err != nil {
			return false, err
		}
	}
	if err := w.ledger.Transition(ctx, app, models.StatusComplianceTimeout, nil, "compliance document deadline expired"); err != nil {
		return false, err
	}
	w.notify(ctx, models.RecipientApplicant, app.ApplicantID, "Application timed out",
		fmt.Sprintf("Application %s was closed because the requested documents were not provided in time.", app.ApplicationNumber), app)
	return true, nil
}

// SweepTimeouts runs the timeout check across every application waiting on
// compliance documents and returns how many were expired.
func (w *ComplianceWorkflow) SweepTimeouts(ctx context.Context) (int, error) {
	status := models.StatusPendingComplianceDocs
	apps, err := w.apps.List(ctx, ApplicationFilter{Status: &status})
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range apps {
		timedOut, err := w.ProcessTimeout(ctx, apps[i].ApplicationID)
		if err != nil {
			log.Printf("timeout check failed for application %d: %v", apps[i].ApplicationID, err)
			continue
		}
		if timedOut {
			expired++
		}
	}
	return expired, nil
}

func (w *ComplianceWorkflow) loadForComplianceOfficer(ctx context.Context, applicationID, officerID int64) (*models.LoanApplication, error) {
	app, err := w.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.AssignedComplianceOfficerID == nil || *app.AssignedComplianceOfficerID != officerID {
		return nil, Unauthorized("officer %d is not the assigned compliance officer for application %d", officerID, applicationID)
	}
	return app, nil
}

func (w *ComplianceWorkflow) loadComplianceDocument(ctx context.Context, app *models.LoanApplication, documentID int64) (*models.ApplicationDocument, error) {
	doc, err := w.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ApplicationID != app.ApplicationID {
		return nil, NotFound("document %d does not belong to application %d", documentID, app.ApplicationID)
	}
	if !doc.ComplianceTagged() {
		return nil, InvalidState("document %d is not a compliance document", documentID)
	}
	if doc.VerificationStatus.Terminal() {
		return nil, InvalidState("document %d already has a verification outcome", documentID)
	}
	return doc, nil
}

func (w *ComplianceWorkflow) pendingComplianceDocs(ctx context.Context, applicationID int64) (int, error) {
	all, err := w.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return 0, err
	}
	pending := 0
	for _, d := range all {
		if d.ComplianceTagged() && d.VerificationStatus == models.DocumentPending {
			pending++
		}
	}
	return pending, nil
}

func (w *ComplianceWorkflow) notify(ctx context.Context, kind models.RecipientKind, recipientID int64, title, body string, app *models.LoanApplication) {
	if w.notifier == nil {
		return
	}
	id := app.ApplicationID
	if err := w.notifier.Notify(ctx, kind, recipientID, title, body, &id); err != nil {
		log.Printf("notification failed for %s %d: %v", kind, recipientID, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
