package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Workflow holds the review pipeline tuning values. It is built once at
// startup and passed explicitly into the services that need it; nothing in
// the codebase mutates it after LoadWorkflow returns.
type Workflow struct {
	// SeniorReviewThreshold routes applications above this amount to the
	// senior loan officer pool.
	SeniorReviewThreshold decimal.Decimal

	// Workload caps per role. Assignment fails with a capacity error when no
	// eligible officer sits below the cap.
	LoanOfficerCap             int
	ComplianceOfficerCap       int
	SeniorComplianceOfficerCap int

	// DefaultDocDeadlineDays is used when a compliance document request does
	// not specify a deadline.
	DefaultDocDeadlineDays int

	// ComplianceTimeout is how long an application may sit in
	// PENDING_COMPLIANCE_DOCS before the timeout sweep expires it.
	ComplianceTimeout time.Duration
}

// LoadWorkflow builds the workflow configuration from the environment with
// production defaults.
func LoadWorkflow() Workflow {
	w := Workflow{
		SeniorReviewThreshold:      decimal.NewFromInt(1_000_000),
		LoanOfficerCap:             10,
		ComplianceOfficerCap:       10,
		SeniorComplianceOfficerCap: 15,
		DefaultDocDeadlineDays:     7,
		ComplianceTimeout:          7 * 24 * time.Hour,
	}

	if v := os.Getenv("WORKFLOW_SENIOR_THRESHOLD"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			w.SeniorReviewThreshold = d
		}
	}
	if n := envInt("WORKFLOW_LOAN_OFFICER_CAP"); n > 0 {
		w.LoanOfficerCap = n
	}
	if n := envInt("WORKFLOW_COMPLIANCE_OFFICER_CAP"); n > 0 {
		w.ComplianceOfficerCap = n
	}
	if n := envInt("WORKFLOW_SENIOR_COMPLIANCE_CAP"); n > 0 {
		w.SeniorComplianceOfficerCap = n
	}
	if n := envInt("WORKFLOW_DOC_DEADLINE_DAYS"); n > 0 {
		w.DefaultDocDeadlineDays = n
	}
	if n := envInt("WORKFLOW_COMPLIANCE_TIMEOUT_DAYS"); n > 0 {
		w.ComplianceTimeout = time.Duration(n) * 24 * time.Hour
	}

	return w
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}
