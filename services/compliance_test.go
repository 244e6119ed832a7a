package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"loan-review-api/models"
)

type complianceFixture struct {
	store        *memStore
	docs         *memDocs
	requests     *memCompliance
	notifier     *memNotifier
	investigator *stubInvestigator
	workflow     *ComplianceWorkflow
}

func newComplianceFixture(officers ...models.Officer) *complianceFixture {
	store := newMemStore()
	docs := newMemDocs()
	requests := newMemCompliance()
	notifier := &memNotifier{}
	investigator := &stubInvestigator{payload: json.RawMessage(`{"matches":[]}`)}
	ledger := NewLedger(store, &memAudit{})
	engine := NewAssignmentEngine(store, &memOfficers{officers: officers}, ledger, testConfig())
	workflow := NewComplianceWorkflow(store, docs, requests, ledger, engine, investigator, notifier, testConfig())
	return &complianceFixture{
		store:        store,
		docs:         docs,
		requests:     requests,
		notifier:     notifier,
		investigator: investigator,
		workflow:     workflow,
	}
}

func (f *complianceFixture) seedCase(status models.ApplicationStatus) *models.LoanApplication {
	app := seedApplication(f.store, status, 50000)
	assignOfficerTo(f.store, app, 5, false)
	assignOfficerTo(f.store, app, 20, true)
	f.store.apps[app.ApplicationID].Applicant = testApplicant()
	return app
}

func TestStartInvestigationStoresFindings(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusFlaggedForCompliance)

	got, err := f.workflow.StartInvestigation(context.Background(), app.ApplicationID, 20)
	if err != nil {
		t.Fatalf("StartInvestigation: %v", err)
	}
	if got.Status != models.StatusComplianceReview {
		t.Fatalf("expected COMPLIANCE_REVIEW, got %s", got.Status)
	}
	if f.investigator.calls != 1 {
		t.Fatalf("expected one investigator call, got %d", f.investigator.calls)
	}
	if len(f.requests.investigations) != 1 {
		t.Fatalf("expected stored investigation, got %d", len(f.requests.investigations))
	}
	inv := f.requests.investigations[0]
	if inv.InvestigationID == "" || inv.ApplicationID != app.ApplicationID {
		t.Fatalf("unexpected investigation %+v", inv)
	}
}

func TestStartInvestigationToleratesOracleFailure(t *testing.T) {
	f := newComplianceFixture()
	f.investigator.payload = nil
	f.investigator.err = External("investigation service unreachable", nil)
	app := f.seedCase(models.StatusFlaggedForCompliance)

	got, err := f.workflow.StartInvestigation(context.Background(), app.ApplicationID, 20)
	if err != nil {
		t.Fatalf("oracle failure must not block the investigation: %v", err)
	}
	if got.Status != models.StatusComplianceReview {
		t.Fatalf("expected COMPLIANCE_REVIEW, got %s", got.Status)
	}
	if len(f.requests.investigations) != 0 {
		t.Fatal("no investigation must be stored on oracle failure")
	}
}

func TestStartInvestigationRequiresAssignedOfficer(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusFlaggedForCompliance)

	if _, err := f.workflow.StartInvestigation(context.Background(), app.ApplicationID, 99); KindOf(err) != KindAuthorization {
		t.Fatalf("expected Authorization error, got %v", err)
	}
}

func TestRequestDocumentsSingleOpenRequest(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT", "SOURCE_OF_FUNDS"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Fatalf("expected PENDING request, got %s", req.Status)
	}
	if req.DeadlineDays != testConfig().DefaultDocDeadlineDays {
		t.Fatalf("expected default deadline, got %d", req.DeadlineDays)
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusPendingComplianceDocs {
		t.Fatalf("expected PENDING_COMPLIANCE_DOCS, got %s", f.store.apps[app.ApplicationID].Status)
	}

	// A second request while the first is open must fail.
	_, err = f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"TAX_RETURN"},
		Reason: "more detail",
	})
	if KindOf(err) != KindInvalidState {
		t.Fatalf("expected InvalidState for second open request, got %v", err)
	}
}

func TestDocumentsReceivedAdvancesWhenAllTypesPresent(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT", "SOURCE_OF_FUNDS"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}

	f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "BANK_STATEMENT",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	if err := f.workflow.DocumentsReceived(context.Background(), app.ApplicationID, nil); err != nil {
		t.Fatalf("DocumentsReceived: %v", err)
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusPendingComplianceDocs {
		t.Fatal("partial uploads must not advance the application")
	}

	f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "SOURCE_OF_FUNDS",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	if err := f.workflow.DocumentsReceived(context.Background(), app.ApplicationID, nil); err != nil {
		t.Fatalf("DocumentsReceived: %v", err)
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusUnderInvestigation {
		t.Fatalf("expected UNDER_INVESTIGATION, got %s", f.store.apps[app.ApplicationID].Status)
	}
	if f.requests.requests[req.RequestID].Status != models.RequestReceived {
		t.Fatalf("expected RECEIVED request, got %s", f.requests.requests[req.RequestID].Status)
	}
}

func TestRejectDocumentReopensLoop(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT", "SOURCE_OF_FUNDS"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}
	docID := f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "BANK_STATEMENT",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "SOURCE_OF_FUNDS",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	if err := f.workflow.DocumentsReceived(context.Background(), app.ApplicationID, nil); err != nil {
		t.Fatalf("DocumentsReceived: %v", err)
	}

	// The second document is still awaiting review, so the rejection reopens
	// the loop and the request stays open.
	if err := f.workflow.RejectDocument(context.Background(), app.ApplicationID, docID, 20, "statement is truncated"); err != nil {
		t.Fatalf("RejectDocument: %v", err)
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusPendingComplianceDocs {
		t.Fatalf("rejection during investigation must reopen the document loop, got %s", f.store.apps[app.ApplicationID].Status)
	}
	if got := f.requests.requests[req.RequestID].Status; !got.Open() {
		t.Fatalf("request must stay open while a document is unreviewed, got %s", got)
	}
	doc := f.docs.docs[docID]
	if doc.VerificationStatus != models.DocumentRejected || doc.RejectionReason == nil {
		t.Fatalf("unexpected document state %+v", doc)
	}
}

func TestRejectedDocumentsStillFulfillRequest(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT", "SOURCE_OF_FUNDS"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}
	bankID := f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "BANK_STATEMENT",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	fundsID := f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "SOURCE_OF_FUNDS",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	if err := f.workflow.DocumentsReceived(context.Background(), app.ApplicationID, nil); err != nil {
		t.Fatalf("DocumentsReceived: %v", err)
	}

	if err := f.workflow.VerifyDocument(context.Background(), app.ApplicationID, bankID, 20); err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	// Both types now carry a terminal outcome; a rejection on the last one
	// resolves the request instead of stranding the case.
	if err := f.workflow.RejectDocument(context.Background(), app.ApplicationID, fundsID, 20, "statement is truncated"); err != nil {
		t.Fatalf("RejectDocument: %v", err)
	}
	if got := f.requests.requests[req.RequestID].Status; got != models.RequestFulfilled {
		t.Fatalf("expected FULFILLED request once every type is reviewed, got %s", got)
	}
	if got := f.store.apps[app.ApplicationID].Status; got != models.StatusUnderInvestigation {
		t.Fatalf("expected UNDER_INVESTIGATION after fulfillment, got %s", got)
	}
}

func TestVerifyLastDocumentFulfillsRequest(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}
	docID := f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "BANK_STATEMENT",
		ComplianceRequestID: &req.RequestID,
		VerificationStatus:  models.DocumentPending,
	})
	if err := f.workflow.DocumentsReceived(context.Background(), app.ApplicationID, nil); err != nil {
		t.Fatalf("DocumentsReceived: %v", err)
	}

	if err := f.workflow.VerifyDocument(context.Background(), app.ApplicationID, docID, 20); err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	if f.requests.requests[req.RequestID].Status != models.RequestFulfilled {
		t.Fatalf("expected FULFILLED request, got %s", f.requests.requests[req.RequestID].Status)
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusUnderInvestigation {
		t.Fatalf("expected UNDER_INVESTIGATION, got %s", f.store.apps[app.ApplicationID].Status)
	}
}

func TestTriggerDecisionRequiresResolvedDocuments(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusUnderInvestigation)

	reqID := int64(1)
	f.docs.add(models.ApplicationDocument{
		ApplicationID:       app.ApplicationID,
		DocumentTypeCode:    "BANK_STATEMENT",
		ComplianceRequestID: &reqID,
		VerificationStatus:  models.DocumentPending,
	})

	_, err := f.workflow.TriggerDecision(context.Background(), app.ApplicationID, 20, "done")
	if KindOf(err) != KindInvalidState {
		t.Fatalf("expected InvalidState with pending documents, got %v", err)
	}
}

func TestTriggerDecisionAdvances(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusUnderInvestigation)

	got, err := f.workflow.TriggerDecision(context.Background(), app.ApplicationID, 20, "no adverse findings")
	if err != nil {
		t.Fatalf("TriggerDecision: %v", err)
	}
	if got.Status != models.StatusAwaitingComplianceDecision {
		t.Fatalf("expected AWAITING_COMPLIANCE_DECISION, got %s", got.Status)
	}
	if got.ComplianceNotes == nil || !strings.Contains(*got.ComplianceNotes, "no adverse findings") {
		t.Fatalf("expected summary in compliance notes, got %v", got.ComplianceNotes)
	}
}

func TestSubmitDecisionReturnsControl(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusAwaitingComplianceDecision)
	f.requests.investigations = append(f.requests.investigations, models.ComplianceInvestigation{
		InvestigationID: "inv-1",
		ApplicationID:   app.ApplicationID,
		Findings:        []byte(`{"matches":[]}`),
	})

	result, err := f.workflow.SubmitDecision(context.Background(), app.ApplicationID, 20, false, "sanctions list near-match")
	if err != nil {
		t.Fatalf("SubmitDecision: %v", err)
	}
	if result.Recommendation != "REJECT" {
		t.Fatalf("expected REJECT recommendation, got %s", result.Recommendation)
	}
	if result.Application.Status != models.StatusReadyForDecision {
		t.Fatalf("expected READY_FOR_DECISION, got %s", result.Application.Status)
	}
	if result.Investigation == nil || result.Investigation.InvestigationID != "inv-1" {
		t.Fatalf("expected stored investigation forwarded, got %+v", result.Investigation)
	}
	// The assigned loan officer is told the case is back.
	found := false
	for _, n := range f.notifier.sent {
		if n.Kind == models.RecipientOfficer && n.RecipientID == 5 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected notification to the assigned loan officer")
	}
}

func TestSubmitDecisionRequiresNotes(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusAwaitingComplianceDecision)

	if _, err := f.workflow.SubmitDecision(context.Background(), app.ApplicationID, 20, true, "  "); KindOf(err) != KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestQuickClearOnlyFromFlagged(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	if _, err := f.workflow.QuickClear(context.Background(), app.ApplicationID, 20, ""); KindOf(err) != KindInvalidState {
		t.Fatalf("expected InvalidState outside FLAGGED_FOR_COMPLIANCE, got %v", err)
	}

	setStatus(f.store, app, models.StatusFlaggedForCompliance)
	got, err := f.workflow.QuickClear(context.Background(), app.ApplicationID, 20, "routine false positive")
	if err != nil {
		t.Fatalf("QuickClear: %v", err)
	}
	if got.Status != models.StatusReadyForDecision {
		t.Fatalf("expected READY_FOR_DECISION, got %s", got.Status)
	}
}

func TestQuickRejectRequiresReason(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusFlaggedForCompliance)

	if _, err := f.workflow.QuickReject(context.Background(), app.ApplicationID, 20, " "); KindOf(err) != KindValidation {
		t.Fatalf("expected Validation error, got %v", err)
	}

	got, err := f.workflow.QuickReject(context.Background(), app.ApplicationID, 20, "confirmed fraud")
	if err != nil {
		t.Fatalf("QuickReject: %v", err)
	}
	if got.Status != models.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", got.Status)
	}
}

func TestProcessTimeoutExpiresStaleCases(t *testing.T) {
	f := newComplianceFixture()
	app := f.seedCase(models.StatusComplianceReview)

	req, err := f.workflow.RequestDocuments(context.Background(), app.ApplicationID, 20, DocumentRequestInput{
		Types:  []string{"BANK_STATEMENT"},
		Reason: "unexplained deposits",
	})
	if err != nil {
		t.Fatalf("RequestDocuments: %v", err)
	}

	// Fresh case: no timeout.
	timedOut, err := f.workflow.ProcessTimeout(context.Background(), app.ApplicationID)
	if err != nil {
		t.Fatalf("ProcessTimeout: %v", err)
	}
	if timedOut {
		t.Fatal("fresh case must not time out")
	}

	// Age the case past the window.
	f.store.apps[app.ApplicationID].UpdatedAt = time.Now().Add(-8 * 24 * time.Hour)
	timedOut, err = f.workflow.ProcessTimeout(context.Background(), app.ApplicationID)
	if err != nil {
		t.Fatalf("ProcessTimeout: %v", err)
	}
	if !timedOut {
		t.Fatal("stale case must time out")
	}
	if f.store.apps[app.ApplicationID].Status != models.StatusComplianceTimeout {
		t.Fatalf("expected COMPLIANCE_TIMEOUT, got %s", f.store.apps[app.ApplicationID].Status)
	}
	if f.requests.requests[req.RequestID].Status != models.RequestExpired {
		t.Fatalf("expected EXPIRED request, got %s", f.requests.requests[req.RequestID].Status)
	}
}

func TestSweepTimeouts(t *testing.T) {
	f := newComplianceFixture()

	stale := f.seedCase(models.StatusPendingComplianceDocs)
	f.store.apps[stale.ApplicationID].UpdatedAt = time.Now().Add(-8 * 24 * time.Hour)
	fresh := f.seedCase(models.StatusPendingComplianceDocs)
	f.store.apps[fresh.ApplicationID].UpdatedAt = time.Now()

	expired, err := f.workflow.SweepTimeouts(context.Background())
	if err != nil {
		t.Fatalf("SweepTimeouts: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired case, got %d", expired)
	}
	if f.store.apps[stale.ApplicationID].Status != models.StatusComplianceTimeout {
		t.Fatalf("stale case must be COMPLIANCE_TIMEOUT, got %s", f.store.apps[stale.ApplicationID].Status)
	}
	if f.store.apps[fresh.ApplicationID].Status != models.StatusPendingComplianceDocs {
		t.Fatalf("fresh case must be untouched, got %s", f.store.apps[fresh.ApplicationID].Status)
	}
}
