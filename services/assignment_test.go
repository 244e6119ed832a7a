package services

import (
	"context"
	"errors"
	"testing"

	"loan-review-api/models"
)

func newEngine(store *memStore, officers *memOfficers) *AssignmentEngine {
	ledger := NewLedger(store, &memAudit{})
	return NewAssignmentEngine(store, officers, ledger, testConfig())
}

func TestAssignLoanOfficerPicksLeastLoaded(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleLoanOfficer),
		loanOfficer(2, models.RoleLoanOfficer),
	}}
	engine := newEngine(store, officers)

	// Officer 1 already carries two active applications.
	for i := 0; i < 2; i++ {
		busy := seedApplication(store, models.StatusUnderReview, 50000)
		assignOfficerTo(store, busy, 1, false)
	}

	app := seedApplication(store, models.StatusSubmitted, 50000)
	officer, err := engine.AssignLoanOfficer(context.Background(), app)
	if err != nil {
		t.Fatalf("AssignLoanOfficer: %v", err)
	}
	if officer.OfficerID != 2 {
		t.Fatalf("expected officer 2 (lower workload), got %d", officer.OfficerID)
	}
	if app.Status != models.StatusUnderReview {
		t.Fatalf("expected UNDER_REVIEW after assignment, got %s", app.Status)
	}
	if app.AssignedOfficerID == nil || *app.AssignedOfficerID != 2 {
		t.Fatalf("expected assigned officer 2, got %v", app.AssignedOfficerID)
	}
	entries := store.entriesFor(app.ApplicationID)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	if entries[0].FromStatus != models.StatusSubmitted || entries[0].ToStatus != models.StatusUnderReview {
		t.Fatalf("unexpected entry %s -> %s", entries[0].FromStatus, entries[0].ToStatus)
	}
}

func TestAssignLoanOfficerTiebreakOnID(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(7, models.RoleLoanOfficer),
		loanOfficer(3, models.RoleLoanOfficer),
	}}
	engine := newEngine(store, officers)

	app := seedApplication(store, models.StatusSubmitted, 50000)
	officer, err := engine.AssignLoanOfficer(context.Background(), app)
	if err != nil {
		t.Fatalf("AssignLoanOfficer: %v", err)
	}
	if officer.OfficerID != 3 {
		t.Fatalf("equal workloads must pick the lowest officer id, got %d", officer.OfficerID)
	}
}

func TestAssignLoanOfficerLargeAmountPrefersSeniorPool(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleLoanOfficer),
		loanOfficer(2, models.RoleSeniorLoanOfficer),
	}}
	engine := newEngine(store, officers)
	// The senior carries more work than the idle regular officer. Pool
	// preference must still win over least-loaded selection.
	for i := 0; i < 3; i++ {
		busy := seedApplication(store, models.StatusUnderReview, 500000)
		assignOfficerTo(store, busy, 2, false)
	}

	app := seedApplication(store, models.StatusSubmitted, 2000000)
	officer, err := engine.AssignLoanOfficer(context.Background(), app)
	if err != nil {
		t.Fatalf("AssignLoanOfficer: %v", err)
	}
	if officer.OfficerID != 2 {
		t.Fatalf("amount above threshold must prefer the senior pool even at higher workload, got officer %d", officer.OfficerID)
	}
}

func TestAssignLoanOfficerSeniorPoolFallsBackToRegular(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleLoanOfficer),
	}}
	engine := newEngine(store, officers)

	app := seedApplication(store, models.StatusSubmitted, 2000000)
	officer, err := engine.AssignLoanOfficer(context.Background(), app)
	if err != nil {
		t.Fatalf("AssignLoanOfficer: %v", err)
	}
	if officer.OfficerID != 1 {
		t.Fatalf("empty senior pool must fall back to regular, got officer %d", officer.OfficerID)
	}
}

func TestAssignLoanOfficerRetriesNextCandidateOnCapacityRace(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleLoanOfficer),
		loanOfficer(2, models.RoleLoanOfficer),
	}}
	engine := newEngine(store, officers)

	// Officer 1 looks free in the ranking snapshot but fills up before the
	// assignment transaction commits.
	store.extraLoad[1] = testConfig().LoanOfficerCap

	app := seedApplication(store, models.StatusSubmitted, 50000)
	officer, err := engine.AssignLoanOfficer(context.Background(), app)
	if err != nil {
		t.Fatalf("AssignLoanOfficer: %v", err)
	}
	if officer.OfficerID != 2 {
		t.Fatalf("expected fallback to officer 2 after capacity race, got %d", officer.OfficerID)
	}
	if entries := store.entriesFor(app.ApplicationID); len(entries) != 1 {
		t.Fatalf("failed attempt must not leave ledger entries, got %d", len(entries))
	}
}

func TestAssignLoanOfficerNoCapacity(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleLoanOfficer),
	}}
	engine := newEngine(store, officers)

	cfg := testConfig()
	for i := 0; i < cfg.LoanOfficerCap; i++ {
		busy := seedApplication(store, models.StatusUnderReview, 50000)
		assignOfficerTo(store, busy, 1, false)
	}

	app := seedApplication(store, models.StatusSubmitted, 50000)
	_, err := engine.AssignLoanOfficer(context.Background(), app)
	if KindOf(err) != KindNoCapacity {
		t.Fatalf("expected NoCapacity error, got %v", err)
	}
	if app.Status != models.StatusSubmitted {
		t.Fatalf("failed assignment must leave the application SUBMITTED, got %s", app.Status)
	}
	if app.AssignedOfficerID != nil {
		t.Fatalf("failed assignment must not set an officer, got %v", app.AssignedOfficerID)
	}
}

func TestAssignLoanOfficerRequiresSubmitted(t *testing.T) {
	store := newMemStore()
	engine := newEngine(store, &memOfficers{})

	app := seedApplication(store, models.StatusUnderReview, 50000)
	_, err := engine.AssignLoanOfficer(context.Background(), app)
	if KindOf(err) != KindInvalidState {
		t.Fatalf("expected InvalidState error, got %v", err)
	}
}

func TestAssignComplianceOfficerUrgentPrefersSenior(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleComplianceOfficer),
		loanOfficer(2, models.RoleSeniorComplianceOfficer),
	}}
	engine := newEngine(store, officers)

	app := seedApplication(store, models.StatusFlaggedForCompliance, 50000)
	officer, err := engine.AssignComplianceOfficer(context.Background(), app, models.PriorityCritical)
	if err != nil {
		t.Fatalf("AssignComplianceOfficer: %v", err)
	}
	if officer.OfficerID != 2 {
		t.Fatalf("urgent priority must prefer the senior pool, got officer %d", officer.OfficerID)
	}
	if app.Status != models.StatusFlaggedForCompliance {
		t.Fatalf("compliance assignment must not change status, got %s", app.Status)
	}
	if entries := store.entriesFor(app.ApplicationID); len(entries) != 0 {
		t.Fatalf("compliance assignment must not append ledger entries, got %d", len(entries))
	}
}

func TestAssignComplianceOfficerRegularForMedium(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(1, models.RoleComplianceOfficer),
		loanOfficer(2, models.RoleSeniorComplianceOfficer),
	}}
	engine := newEngine(store, officers)

	app := seedApplication(store, models.StatusFlaggedForCompliance, 50000)
	officer, err := engine.AssignComplianceOfficer(context.Background(), app, models.PriorityMedium)
	if err != nil {
		t.Fatalf("AssignComplianceOfficer: %v", err)
	}
	if officer.OfficerID != 1 {
		t.Fatalf("non-urgent priority must use the regular pool, got officer %d", officer.OfficerID)
	}
}

func TestEscalateToSeniorOutsideCompliancePhase(t *testing.T) {
	store := newMemStore()
	engine := newEngine(store, &memOfficers{})

	app := seedApplication(store, models.StatusUnderReview, 50000)
	_, err := engine.EscalateToSenior(context.Background(), app)
	if KindOf(err) != KindInvalidState {
		t.Fatalf("expected InvalidState error, got %v", err)
	}
}

func TestEscalateToSeniorReassigns(t *testing.T) {
	store := newMemStore()
	officers := &memOfficers{officers: []models.Officer{
		loanOfficer(9, models.RoleSeniorComplianceOfficer),
	}}
	engine := newEngine(store, officers)

	app := seedApplication(store, models.StatusComplianceReview, 50000)
	assignOfficerTo(store, app, 1, true)

	senior, err := engine.EscalateToSenior(context.Background(), app)
	if err != nil {
		t.Fatalf("EscalateToSenior: %v", err)
	}
	if senior.OfficerID != 9 {
		t.Fatalf("expected senior officer 9, got %d", senior.OfficerID)
	}
	if app.AssignedComplianceOfficerID == nil || *app.AssignedComplianceOfficerID != 9 {
		t.Fatalf("expected compliance assignment moved to 9, got %v", app.AssignedComplianceOfficerID)
	}
}

func TestVersionConflictSurfaces(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)

	app := seedApplication(store, models.StatusSubmitted, 50000)
	// Another writer bumps the stored version.
	store.apps[app.ApplicationID].Version = 5

	err := ledger.Transition(context.Background(), app, models.StatusUnderReview, nil, "")
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}
