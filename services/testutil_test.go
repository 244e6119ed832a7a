package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"loan-review-api/config"
	"loan-review-api/models"
)

// memStore is an in-memory ApplicationStore. Its AssignOfficer honors the
// in-transaction workload recheck: extraLoad simulates assignments committed
// by concurrent writers after the engine's ranking snapshot.
type memStore struct {
	apps       map[int64]*models.LoanApplication
	entries    []models.WorkflowEntry
	checklists []models.VerificationChecklist
	risks      []models.RiskAssessment
	decisions  []models.DecisionRecord
	nextID     int64
	extraLoad  map[int64]int
}

func newMemStore() *memStore {
	return &memStore{
		apps:      make(map[int64]*models.LoanApplication),
		extraLoad: make(map[int64]int),
	}
}

func (s *memStore) Get(ctx context.Context, id int64) (*models.LoanApplication, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, NotFound("application %d not found", id)
	}
	copied := *app
	return &copied, nil
}

func (s *memStore) Create(ctx context.Context, app *models.LoanApplication) error {
	s.nextID++
	app.ApplicationID = s.nextID
	copied := *app
	s.apps[app.ApplicationID] = &copied
	return nil
}

func (s *memStore) persist(app *models.LoanApplication, entry *models.WorkflowEntry) error {
	stored, ok := s.apps[app.ApplicationID]
	if !ok {
		return NotFound("application %d not found", app.ApplicationID)
	}
	if stored.Version != app.Version {
		return ErrVersionConflict
	}
	app.Version++
	copied := *app
	s.apps[app.ApplicationID] = &copied
	if entry != nil {
		s.entries = append(s.entries, *entry)
	}
	return nil
}

func (s *memStore) Update(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry) error {
	return s.persist(app, entry)
}

func (s *memStore) AssignOfficer(ctx context.Context, app *models.LoanApplication, officer *models.Officer, p AssignParams) error {
	count := s.countAssigned(officer.OfficerID, p.Compliance, p.ActiveStatuses) + s.extraLoad[officer.OfficerID]
	if count >= p.Cap {
		return ErrOfficerAtCapacity
	}
	return s.persist(app, p.Entry)
}

func (s *memStore) CompleteVerification(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, checklist *models.VerificationChecklist, results []DocumentResult) error {
	if err := s.persist(app, entry); err != nil {
		return err
	}
	if checklist != nil {
		s.checklists = append(s.checklists, *checklist)
	}
	return nil
}

func (s *memStore) RecordRisk(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, risk *models.RiskAssessment) error {
	if err := s.persist(app, entry); err != nil {
		return err
	}
	s.risks = append(s.risks, *risk)
	return nil
}

func (s *memStore) Decide(ctx context.Context, app *models.LoanApplication, entry *models.WorkflowEntry, decision *models.DecisionRecord) error {
	if err := s.persist(app, entry); err != nil {
		return err
	}
	s.decisions = append(s.decisions, *decision)
	return nil
}

func (s *memStore) countAssigned(officerID int64, compliance bool, statuses []models.ApplicationStatus) int {
	count := 0
	for _, app := range s.apps {
		assigned := app.AssignedOfficerID
		if compliance {
			assigned = app.AssignedComplianceOfficerID
		}
		if assigned == nil || *assigned != officerID {
			continue
		}
		for _, status := range statuses {
			if app.Status == status {
				count++
				break
			}
		}
	}
	return count
}

func (s *memStore) CountAssigned(ctx context.Context, officerID int64, compliance bool, statuses []models.ApplicationStatus) (int, error) {
	return s.countAssigned(officerID, compliance, statuses), nil
}

func (s *memStore) List(ctx context.Context, f ApplicationFilter) ([]models.LoanApplication, error) {
	var out []models.LoanApplication
	for _, app := range s.apps {
		if f.ApplicantID != nil && app.ApplicantID != *f.ApplicantID {
			continue
		}
		if f.OfficerID != nil && (app.AssignedOfficerID == nil || *app.AssignedOfficerID != *f.OfficerID) {
			continue
		}
		if f.ComplianceOfficerID != nil && (app.AssignedComplianceOfficerID == nil || *app.AssignedComplianceOfficerID != *f.ComplianceOfficerID) {
			continue
		}
		if f.Status != nil && app.Status != *f.Status {
			continue
		}
		out = append(out, *app)
	}
	return out, nil
}

func (s *memStore) History(ctx context.Context, applicationID int64) ([]models.WorkflowEntry, error) {
	var out []models.WorkflowEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ApplicationID == applicationID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *memStore) entriesFor(applicationID int64) []models.WorkflowEntry {
	var out []models.WorkflowEntry
	for _, e := range s.entries {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out
}

type memOfficers struct {
	officers []models.Officer
}

func (s *memOfficers) Get(ctx context.Context, id int64) (*models.Officer, error) {
	for i := range s.officers {
		if s.officers[i].OfficerID == id {
			copied := s.officers[i]
			return &copied, nil
		}
	}
	return nil, NotFound("officer %d not found", id)
}

func (s *memOfficers) ListActive(ctx context.Context, roles ...models.OfficerRole) ([]models.Officer, error) {
	var out []models.Officer
	for _, o := range s.officers {
		if !o.IsActive {
			continue
		}
		for _, role := range roles {
			if o.Role == role {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type memDocs struct {
	docs   map[int64]*models.ApplicationDocument
	nextID int64
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[int64]*models.ApplicationDocument)}
}

func (s *memDocs) add(doc models.ApplicationDocument) int64 {
	s.nextID++
	doc.DocumentID = s.nextID
	s.docs[doc.DocumentID] = &doc
	return doc.DocumentID
}

func (s *memDocs) Get(ctx context.Context, documentID int64) (*models.ApplicationDocument, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, NotFound("document %d not found", documentID)
	}
	copied := *doc
	return &copied, nil
}

func (s *memDocs) ListByApplication(ctx context.Context, applicationID int64) ([]models.ApplicationDocument, error) {
	var out []models.ApplicationDocument
	for _, doc := range s.docs {
		if doc.ApplicationID == applicationID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *memDocs) ListByRequest(ctx context.Context, requestID int64) ([]models.ApplicationDocument, error) {
	var out []models.ApplicationDocument
	for _, doc := range s.docs {
		if doc.ComplianceRequestID != nil && *doc.ComplianceRequestID == requestID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *memDocs) SetVerification(ctx context.Context, doc *models.ApplicationDocument) error {
	stored, ok := s.docs[doc.DocumentID]
	if !ok {
		return NotFound("document %d not found", doc.DocumentID)
	}
	stored.VerificationStatus = doc.VerificationStatus
	stored.RejectionReason = doc.RejectionReason
	stored.VerifiedBy = doc.VerifiedBy
	stored.VerifiedAt = doc.VerifiedAt
	return nil
}

type memCompliance struct {
	requests       map[int64]*models.ComplianceDocumentRequest
	investigations []models.ComplianceInvestigation
	nextID         int64
}

func newMemCompliance() *memCompliance {
	return &memCompliance{requests: make(map[int64]*models.ComplianceDocumentRequest)}
}

func (s *memCompliance) CreateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error {
	s.nextID++
	req.RequestID = s.nextID
	copied := *req
	s.requests[req.RequestID] = &copied
	return nil
}

func (s *memCompliance) OpenRequest(ctx context.Context, applicationID int64) (*models.ComplianceDocumentRequest, error) {
	for _, req := range s.requests {
		if req.ApplicationID == applicationID && req.Status.Open() {
			copied := *req
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memCompliance) UpdateRequest(ctx context.Context, req *models.ComplianceDocumentRequest) error {
	stored, ok := s.requests[req.RequestID]
	if !ok {
		return NotFound("request %d not found", req.RequestID)
	}
	stored.Status = req.Status
	stored.UpdatedAt = req.UpdatedAt
	return nil
}

func (s *memCompliance) SaveInvestigation(ctx context.Context, inv *models.ComplianceInvestigation) error {
	s.investigations = append(s.investigations, *inv)
	return nil
}

func (s *memCompliance) InvestigationFor(ctx context.Context, applicationID int64) (*models.ComplianceInvestigation, error) {
	for i := len(s.investigations) - 1; i >= 0; i-- {
		if s.investigations[i].ApplicationID == applicationID {
			copied := s.investigations[i]
			return &copied, nil
		}
	}
	return nil, nil
}

type memAudit struct {
	records []string
}

func (s *memAudit) Record(ctx context.Context, actorID *int64, action, entityType string, entityID int64, details map[string]any) error {
	s.records = append(s.records, action)
	return nil
}

type recordedNotification struct {
	Kind        models.RecipientKind
	RecipientID int64
	Title       string
}

type memNotifier struct {
	sent []recordedNotification
}

func (n *memNotifier) Notify(ctx context.Context, recipient models.RecipientKind, recipientID int64, title, body string, applicationID *int64) error {
	n.sent = append(n.sent, recordedNotification{Kind: recipient, RecipientID: recipientID, Title: title})
	return nil
}

type stubScorer struct {
	report *CreditReport
	err    error
}

func (s *stubScorer) Score(ctx context.Context, nationalID, taxID string) (*CreditReport, error) {
	return s.report, s.err
}

type stubInvestigator struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (s *stubInvestigator) Investigate(ctx context.Context, nationalID, taxID string) (json.RawMessage, error) {
	s.calls++
	return s.payload, s.err
}

func testConfig() config.Workflow {
	return config.Workflow{
		SeniorReviewThreshold:      decimal.NewFromInt(1000000),
		LoanOfficerCap:             10,
		ComplianceOfficerCap:       10,
		SeniorComplianceOfficerCap: 15,
		DefaultDocDeadlineDays:     7,
		ComplianceTimeout:          7 * 24 * time.Hour,
	}
}

func loanOfficer(id int64, role models.OfficerRole) models.Officer {
	return models.Officer{
		OfficerID: id,
		FirstName: "Officer",
		LastName:  "Test",
		Email:     "officer@example.com",
		Role:      role,
		IsActive:  true,
	}
}

func seedApplication(store *memStore, status models.ApplicationStatus, amount int64) *models.LoanApplication {
	app := &models.LoanApplication{
		ApplicantID:     1,
		Status:          status,
		Priority:        models.PriorityMedium,
		RequestedAmount: decimal.NewFromInt(amount),
		TermMonths:      12,
		Purpose:         "working capital",
		UpdatedAt:       time.Now(),
	}
	_ = store.Create(context.Background(), app)
	return app
}

func assignOfficerTo(store *memStore, app *models.LoanApplication, officerID int64, compliance bool) {
	stored := store.apps[app.ApplicationID]
	id := officerID
	if compliance {
		stored.AssignedComplianceOfficerID = &id
		app.AssignedComplianceOfficerID = &id
	} else {
		stored.AssignedOfficerID = &id
		app.AssignedOfficerID = &id
	}
}

func setStatus(store *memStore, app *models.LoanApplication, status models.ApplicationStatus) {
	store.apps[app.ApplicationID].Status = status
	app.Status = status
}
