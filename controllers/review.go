package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"loan-review-api/models"
	"loan-review-api/services"
)

// AssignApplication retries loan officer assignment for a SUBMITTED
// application that could not be assigned at submission time.
func AssignApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, officer, err := deps.Review.Assign(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"application": app,
		"officer":     officer,
		"message":     "Application assigned to " + officer.FullName(),
	})
}

// StartDocumentVerification moves the application into document verification.
func StartDocumentVerification(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := deps.Review.StartDocumentVerification(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type documentOutcome struct {
	DocumentID int64  `json:"document_id" binding:"required"`
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason"`
}

type CompleteVerificationRequest struct {
	Documents          []documentOutcome `json:"documents"`
	IdentityVerified   bool              `json:"identity_verified"`
	EmploymentVerified bool              `json:"employment_verified"`
	IncomeVerified     bool              `json:"income_verified"`
	BankVerified       bool              `json:"bank_verified"`
	OverallPassed      bool              `json:"overall_passed"`
	Comment            string            `json:"comment"`
}

// CompleteDocumentVerification applies the batch verification outcome.
func CompleteDocumentVerification(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CompleteVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.VerificationInput{
		Results:            toDocumentResults(req.Documents),
		IdentityVerified:   req.IdentityVerified,
		EmploymentVerified: req.EmploymentVerified,
		IncomeVerified:     req.IncomeVerified,
		BankVerified:       req.BankVerified,
		OverallPassed:      req.OverallPassed,
		Comment:            req.Comment,
	}
	app, err := deps.Review.CompleteDocumentVerification(c.Request.Context(), applicationID, currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type ResubmissionRequest struct {
	Documents    []documentOutcome `json:"documents" binding:"required"`
	DeadlineDays int               `json:"deadline_days"`
}

// RequestResubmission rejects documents and asks the applicant to re-upload.
func RequestResubmission(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ResubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := deps.Review.RequestResubmission(c.Request.Context(), applicationID, currentUserID(c),
		toDocumentResults(req.Documents), req.DeadlineDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// TriggerExternalVerification starts the fraud check stage.
func TriggerExternalVerification(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := deps.Review.TriggerExternalVerification(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// CompleteExternalVerification pulls the credit report and records the risk
// assessment. A bureau outage degrades to a conservative default instead of
// failing.
func CompleteExternalVerification(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := deps.Review.CompleteExternalVerification(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"application":     app,
		"risk_assessment": app.RiskAssessment,
	})
}

type DecideRequest struct {
	Approve        bool    `json:"approve"`
	Reason         string  `json:"reason" binding:"required"`
	ApprovedAmount *string `json:"approved_amount"`
	InterestRate   *string `json:"interest_rate"`
	TermMonths     *int    `json:"term_months"`
}

// DecideApplication records the final approve or reject decision.
func DecideApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.DecideInput{
		Approve:    req.Approve,
		Reason:     req.Reason,
		TermMonths: req.TermMonths,
	}
	if req.ApprovedAmount != nil {
		amount, err := decimal.NewFromString(*req.ApprovedAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approved_amount"})
			return
		}
		in.ApprovedAmount = &amount
	}
	if req.InterestRate != nil {
		rate, err := decimal.NewFromString(*req.InterestRate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interest_rate"})
			return
		}
		in.InterestRate = &rate
	}

	app, err := deps.Review.Decide(c.Request.Context(), applicationID, currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"application": app,
		"decision":    app.Decision,
	})
}

type FlagComplianceRequest struct {
	Reason   string `json:"reason" binding:"required"`
	Priority string `json:"priority" binding:"required"`
}

// FlagForCompliance diverts the application into the compliance sub-workflow.
func FlagForCompliance(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req FlagComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := models.Priority(strings.ToUpper(req.Priority))
	app, err := deps.Review.FlagForCompliance(c.Request.Context(), applicationID, currentUserID(c), req.Reason, priority)
	if err != nil {
		if app != nil && services.IsKind(err, services.KindNoCapacity) {
			c.JSON(http.StatusAccepted, gin.H{
				"application": app,
				"message":     "Application flagged; compliance assignment is pending",
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// DisburseApplication releases funds for an approved application.
func DisburseApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := deps.Review.Disburse(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func toDocumentResults(outcomes []documentOutcome) []services.DocumentResult {
	results := make([]services.DocumentResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = services.DocumentResult{
			DocumentID: o.DocumentID,
			Verified:   o.Verified,
			Reason:     o.Reason,
		}
	}
	return results
}
