package models

// ApplicationStatus is the lifecycle state of a loan application.
type ApplicationStatus string

const (
	StatusDraft                       ApplicationStatus = "DRAFT"
	StatusSubmitted                   ApplicationStatus = "SUBMITTED"
	StatusUnderReview                 ApplicationStatus = "UNDER_REVIEW"
	StatusDocumentVerification        ApplicationStatus = "DOCUMENT_VERIFICATION"
	StatusDocumentIncomplete          ApplicationStatus = "DOCUMENT_INCOMPLETE"
	StatusPendingExternalVerification ApplicationStatus = "PENDING_EXTERNAL_VERIFICATION"
	StatusFraudCheck                  ApplicationStatus = "FRAUD_CHECK"
	StatusReadyForDecision            ApplicationStatus = "READY_FOR_DECISION"
	StatusApproved                    ApplicationStatus = "APPROVED"
	StatusRejected                    ApplicationStatus = "REJECTED"
	StatusDisbursed                   ApplicationStatus = "DISBURSED"
	StatusFlaggedForCompliance        ApplicationStatus = "FLAGGED_FOR_COMPLIANCE"
	StatusComplianceReview            ApplicationStatus = "COMPLIANCE_REVIEW"
	StatusPendingComplianceDocs       ApplicationStatus = "PENDING_COMPLIANCE_DOCS"
	StatusUnderInvestigation          ApplicationStatus = "UNDER_INVESTIGATION"
	StatusAwaitingComplianceDecision  ApplicationStatus = "AWAITING_COMPLIANCE_DECISION"
	StatusComplianceTimeout           ApplicationStatus = "COMPLIANCE_TIMEOUT"
)

// statusTransitions is the single source of truth for legal status changes.
// Every caller must consult CanTransitionTo before mutating an application's
// status. Statuses with no outgoing edges are terminal.
var statusTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:                       {StatusSubmitted},
	StatusSubmitted:                   {StatusUnderReview, StatusRejected},
	StatusUnderReview:                 {StatusDocumentVerification},
	StatusDocumentVerification:        {StatusPendingExternalVerification, StatusDocumentIncomplete},
	StatusDocumentIncomplete:          {StatusDocumentVerification, StatusRejected},
	StatusPendingExternalVerification: {StatusFraudCheck},
	StatusFraudCheck:                  {StatusReadyForDecision},
	StatusReadyForDecision:            {StatusApproved, StatusRejected, StatusFlaggedForCompliance},
	StatusApproved:                    {StatusDisbursed},
	StatusFlaggedForCompliance:        {StatusComplianceReview, StatusReadyForDecision, StatusRejected},
	StatusComplianceReview:            {StatusPendingComplianceDocs, StatusRejected},
	StatusPendingComplianceDocs:       {StatusUnderInvestigation, StatusComplianceTimeout},
	StatusUnderInvestigation:          {StatusPendingComplianceDocs, StatusAwaitingComplianceDecision},
	StatusAwaitingComplianceDecision:  {StatusReadyForDecision},
	StatusRejected:                    {},
	StatusDisbursed:                   {},
	StatusComplianceTimeout:           {},
}

// Valid reports whether s is a member of the status enumeration.
func (s ApplicationStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether s -> to is a legal transition.
func (s ApplicationStatus) CanTransitionTo(to ApplicationStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s ApplicationStatus) Terminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

// NextStatuses returns the legal targets from s.
func NextStatuses(s ApplicationStatus) []ApplicationStatus {
	next := statusTransitions[s]
	out := make([]ApplicationStatus, len(next))
	copy(out, next)
	return out
}

// LoanOfficerActiveStatuses is the status set that counts toward a loan
// officer's workload.
var LoanOfficerActiveStatuses = []ApplicationStatus{
	StatusUnderReview,
	StatusPendingExternalVerification,
	StatusReadyForDecision,
}

// ComplianceActiveStatuses is the status set that counts toward a compliance
// officer's workload.
var ComplianceActiveStatuses = []ApplicationStatus{
	StatusFlaggedForCompliance,
	StatusComplianceReview,
	StatusPendingComplianceDocs,
}

// Priority is the review priority attached to an application.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Urgent reports whether p routes compliance work to the senior pool.
func (p Priority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}
