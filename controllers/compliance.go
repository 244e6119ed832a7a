package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loan-review-api/services"
)

// StartInvestigation opens the compliance review on a flagged application.
func StartInvestigation(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := deps.Compliance.StartInvestigation(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type RequestDocumentsRequest struct {
	Types        []string `json:"types" binding:"required"`
	Reason       string   `json:"reason" binding:"required"`
	DeadlineDays int      `json:"deadline_days"`
	Mandatory    bool     `json:"mandatory"`
}

// RequestComplianceDocuments asks the applicant for additional documents.
func RequestComplianceDocuments(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RequestDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := deps.Compliance.RequestDocuments(c.Request.Context(), applicationID, currentUserID(c),
		services.DocumentRequestInput{
			Types:        req.Types,
			Reason:       req.Reason,
			DeadlineDays: req.DeadlineDays,
			Mandatory:    req.Mandatory,
		})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// VerifyComplianceDocument marks one requested document as verified.
func VerifyComplianceDocument(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	if err := deps.Compliance.VerifyDocument(c.Request.Context(), applicationID, documentID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document verified"})
}

type RejectDocumentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectComplianceDocument rejects one requested document and reopens the
// document loop when the investigation had already resumed.
func RejectComplianceDocument(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(c, "documentId")
	if !ok {
		return
	}
	var req RejectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := deps.Compliance.RejectDocument(c.Request.Context(), applicationID, documentID, currentUserID(c), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document rejected"})
}

type TriggerDecisionRequest struct {
	Summary string `json:"summary"`
}

// TriggerComplianceDecision closes the investigation phase.
func TriggerComplianceDecision(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TriggerDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, err := deps.Compliance.TriggerDecision(c.Request.Context(), applicationID, currentUserID(c), req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type ComplianceDecisionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" binding:"required"`
}

// SubmitComplianceDecision records the recommendation and returns the case to
// the loan officer.
func SubmitComplianceDecision(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ComplianceDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := deps.Compliance.SubmitDecision(c.Request.Context(), applicationID, currentUserID(c), req.Approve, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type QuickClearRequest struct {
	Comment string `json:"comment"`
}

// QuickClearApplication skips the investigation and clears the flag.
func QuickClearApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req QuickClearRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, err := deps.Compliance.QuickClear(c.Request.Context(), applicationID, currentUserID(c), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type QuickRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// QuickRejectApplication skips the investigation and rejects outright.
func QuickRejectApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req QuickRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, err := deps.Compliance.QuickReject(c.Request.Context(), applicationID, currentUserID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// EscalateCompliance moves the case to a senior compliance officer.
func EscalateCompliance(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	senior, err := deps.Compliance.Escalate(c.Request.Context(), applicationID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"officer": senior,
		"message": "Escalated to senior compliance officer",
	})
}

// SweepComplianceTimeouts expires every application that sat in
// PENDING_COMPLIANCE_DOCS past the deadline.
func SweepComplianceTimeouts(c *gin.Context) {
	expired, err := deps.Compliance.SweepTimeouts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expired": expired,
		"message": "Timeout sweep complete",
	})
}
