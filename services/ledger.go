package services

import (
	"context"
	"log"
	"time"

	"loan-review-api/models"
)

// Ledger validates status transitions against the guard table and records
// every committed one. The append itself is done by the store in the same
// transaction as the status write; the ledger builds the entry, applies the
// in-memory mutation, and forwards a summary to the audit sink afterwards.
type Ledger struct {
	apps  ApplicationStore
	audit AuditSink
}

func NewLedger(apps ApplicationStore, audit AuditSink) *Ledger {
	return &Ledger{apps: apps, audit: audit}
}

// Prepare consults the transition guard and, if the move is legal, mutates
// the application in memory and returns the matching ledger entry. The caller
// hands both to a store method that commits them atomically.
func (l *Ledger) Prepare(app *models.LoanApplication, to models.ApplicationStatus, actorID *int64, comment string) (*models.WorkflowEntry, error) {
	from := app.Status
	if !to.Valid() {
		return nil, Invalid("unknown status %q", to)
	}
	if !from.CanTransitionTo(to) {
		if from.Terminal() {
			return nil, InvalidState("application %d is %s, which accepts no further transitions", app.ApplicationID, from)
		}
		return nil, InvalidState("transition %s -> %s is not allowed", from, to)
	}

	now := time.Now()
	app.Status = to
	app.UpdatedAt = now

	entry := &models.WorkflowEntry{
		ApplicationID: app.ApplicationID,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if comment != "" {
		entry.Comment = &comment
	}
	return entry, nil
}

// Transition is the common single-write path: guard check, status mutation,
// atomic persist of application plus entry, then the audit forward.
func (l *Ledger) Transition(ctx context.Context, app *models.LoanApplication, to models.ApplicationStatus, actorID *int64, comment string) error {
	entry, err := l.Prepare(app, to, actorID, comment)
	if err != nil {
		return err
	}
	if err := l.apps.Update(ctx, app, entry); err != nil {
		return err
	}
	l.Committed(ctx, entry)
	return nil
}

// Committed forwards a transition summary to the audit sink. Audit failures
// are logged and swallowed; they never roll back the transition.
func (l *Ledger) Committed(ctx context.Context, entry *models.WorkflowEntry) {
	if l.audit == nil {
		return
	}
	details := map[string]any{
		"from": string(entry.FromStatus),
		"to":   string(entry.ToStatus),
	}
	if entry.Comment != nil {
		details["comment"] = *entry.Comment
	}
	if err := l.audit.Record(ctx, entry.ActorID, "status_transition", "loan_application", entry.ApplicationID, details); err != nil {
		log.Printf("audit record failed for application %d: %v", entry.ApplicationID, err)
	}
}
