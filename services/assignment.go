package services

import (
	"context"
	"errors"
	"sort"

	"loan-review-api/config"
	"loan-review-api/models"
)

// AssignmentEngine selects a review worker for an application under the
// role-specific workload caps. Selection reads a workload snapshot to rank
// candidates, but the store re-validates the chosen officer's workload inside
// the assignment transaction; a candidate that filled up in between is
// skipped and the next one is tried.
type AssignmentEngine struct {
	apps     ApplicationStore
	officers OfficerStore
	ledger   *Ledger
	cfg      config.Workflow
}

func NewAssignmentEngine(apps ApplicationStore, officers OfficerStore, ledger *Ledger, cfg config.Workflow) *AssignmentEngine {
	return &AssignmentEngine{apps: apps, officers: officers, ledger: ledger, cfg: cfg}
}

type candidate struct {
	officer  models.Officer
	workload int
}

// rank returns the officers below cap ordered by (workload, officer id). The
// id tiebreak keeps selection deterministic for a fixed workload snapshot.
func (e *AssignmentEngine) rank(ctx context.Context, pool []models.Officer, compliance bool, active []models.ApplicationStatus, cap int) ([]candidate, error) {
	candidates := make([]candidate, 0, len(pool))
	for _, o := range pool {
		n, err := e.apps.CountAssigned(ctx, o.OfficerID, compliance, active)
		if err != nil {
			return nil, err
		}
		if n < cap {
			candidates = append(candidates, candidate{officer: o, workload: n})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].workload != candidates[j].workload {
			return candidates[i].workload < candidates[j].workload
		}
		return candidates[i].officer.OfficerID < candidates[j].officer.OfficerID
	})
	return candidates, nil
}

// tryAssign attempts the atomic assignment write for one candidate, reverting
// the in-memory aggregate when the store reports the officer filled up.
func (e *AssignmentEngine) tryAssign(ctx context.Context, app *models.LoanApplication, officer *models.Officer, p AssignParams, actorID *int64, comment string) error {
	prevStatus := app.Status
	prevUpdated := app.UpdatedAt
	prevOfficer := app.AssignedOfficerID
	prevCompliance := app.AssignedComplianceOfficerID

	if p.TransitionTo != nil {
		entry, err := e.ledger.Prepare(app, *p.TransitionTo, actorID, comment)
		if err != nil {
			return err
		}
		p.Entry = entry
	}
	if p.Compliance {
		id := officer.OfficerID
		app.AssignedComplianceOfficerID = &id
	} else {
		id := officer.OfficerID
		app.AssignedOfficerID = &id
	}

	if err := e.apps.AssignOfficer(ctx, app, officer, p); err != nil {
		app.Status = prevStatus
		app.UpdatedAt = prevUpdated
		app.AssignedOfficerID = prevOfficer
		app.AssignedComplianceOfficerID = prevCompliance
		return err
	}
	if p.Entry != nil {
		e.ledger.Committed(ctx, p.Entry)
	}
	return nil
}

func (e *AssignmentEngine) assignFromPools(ctx context.Context, app *models.LoanApplication, pools []models.OfficerRole, p AssignParams, comment string) (*models.Officer, error) {
	for _, role := range pools {
		pool, err := e.officers.ListActive(ctx, role)
		if err != nil {
			return nil, err
		}
		candidates, err := e.rank(ctx, pool, p.Compliance, p.ActiveStatuses, p.Cap)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			officer := candidates[i].officer
			err := e.tryAssign(ctx, app, &officer, p, nil, comment)
			if errors.Is(err, ErrOfficerAtCapacity) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return &officer, nil
		}
	}
	return nil, nil
}

// AssignLoanOfficer routes a freshly submitted application to a loan officer.
// Applications above the senior review threshold prefer the senior pool; the
// regular pool is the fallback. On success the application moves
// SUBMITTED -> UNDER_REVIEW.
func (e *AssignmentEngine) AssignLoanOfficer(ctx context.Context, app *models.LoanApplication) (*models.Officer, error) {
	if app.Status != models.StatusSubmitted {
		return nil, InvalidState("application %d must be SUBMITTED for officer assignment, got %s", app.ApplicationID, app.Status)
	}

	pools := []models.OfficerRole{models.RoleLoanOfficer}
	if app.RequestedAmount.Cmp(e.cfg.SeniorReviewThreshold) > 0 {
		pools = []models.OfficerRole{models.RoleSeniorLoanOfficer, models.RoleLoanOfficer}
	}

	to := models.StatusUnderReview
	officer, err := e.assignFromPools(ctx, app, pools, AssignParams{
		Cap:            e.cfg.LoanOfficerCap,
		ActiveStatuses: models.LoanOfficerActiveStatuses,
		TransitionTo:   &to,
	}, "assigned for review")
	if err != nil {
		return nil, err
	}
	if officer == nil {
		return nil, NoCapacity("no loan officer available under the workload cap")
	}
	return officer, nil
}

// AssignComplianceOfficer routes a flagged application to a compliance
// officer. HIGH and CRITICAL priority cases prefer the senior pool, which
// carries a higher cap. The application status is not changed here; the flag
// transition has already been recorded by the caller.
func (e *AssignmentEngine) AssignComplianceOfficer(ctx context.Context, app *models.LoanApplication, priority models.Priority) (*models.Officer, error) {
	if app.Status != models.StatusFlaggedForCompliance {
		return nil, InvalidState("application %d must be FLAGGED_FOR_COMPLIANCE for compliance assignment, got %s", app.ApplicationID, app.Status)
	}

	type pool struct {
		role models.OfficerRole
		cap  int
	}
	pools := []pool{{models.RoleComplianceOfficer, e.cfg.ComplianceOfficerCap}}
	if priority.Urgent() {
		pools = []pool{
			{models.RoleSeniorComplianceOfficer, e.cfg.SeniorComplianceOfficerCap},
			{models.RoleComplianceOfficer, e.cfg.ComplianceOfficerCap},
		}
	}

	for _, pl := range pools {
		officer, err := e.assignFromPools(ctx, app, []models.OfficerRole{pl.role}, AssignParams{
			Compliance:     true,
			Cap:            pl.cap,
			ActiveStatuses: models.ComplianceActiveStatuses,
		}, "")
		if err != nil {
			return nil, err
		}
		if officer != nil {
			return officer, nil
		}
	}
	return nil, NoCapacity("no compliance officer available under the workload cap")
}

// EscalateToSenior reassigns the compliance side of an application to a
// senior compliance officer. Only the assignment changes; the status does
// not.
func (e *AssignmentEngine) EscalateToSenior(ctx context.Context, app *models.LoanApplication) (*models.Officer, error) {
	if !inCompliancePhase(app.Status) {
		return nil, InvalidState("application %d is not in compliance review (status %s)", app.ApplicationID, app.Status)
	}

	officer, err := e.assignFromPools(ctx, app, []models.OfficerRole{models.RoleSeniorComplianceOfficer}, AssignParams{
		Compliance:     true,
		Cap:            e.cfg.SeniorComplianceOfficerCap,
		ActiveStatuses: models.ComplianceActiveStatuses,
	}, "")
	if err != nil {
		return nil, err
	}
	if officer == nil {
		return nil, NoCapacity("no senior compliance officer available under the workload cap")
	}
	return officer, nil
}

func inCompliancePhase(s models.ApplicationStatus) bool {
	switch s {
	case models.StatusFlaggedForCompliance,
		models.StatusComplianceReview,
		models.StatusPendingComplianceDocs,
		models.StatusUnderInvestigation,
		models.StatusAwaitingComplianceDecision:
		return true
	}
	return false
}
