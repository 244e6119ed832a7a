package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loan-review-api/config"
	"loan-review-api/middleware"
	"loan-review-api/models"
	"loan-review-api/services"
)

const maxDocumentSize = 10 << 20 // 10 MB

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type SubmitApplicationRequest struct {
	Amount     string  `json:"amount" binding:"required"`
	TermMonths int     `json:"term_months" binding:"required,min=1"`
	Purpose    string  `json:"purpose" binding:"required"`
	Priority   *string `json:"priority"`
}

// SubmitApplication creates and submits a new loan application for the
// authenticated applicant. When no officer has free capacity the application
// is accepted anyway and assignment is retried later.
func SubmitApplication(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	var applicant models.Applicant
	if err := config.DB.First(&applicant, "applicant_id = ?", currentUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
		return
	}

	in := services.SubmitInput{
		Amount:     amount,
		TermMonths: req.TermMonths,
		Purpose:    req.Purpose,
	}
	if req.Priority != nil {
		in.Priority = models.Priority(strings.ToUpper(*req.Priority))
	}

	app, err := deps.Review.Submit(c.Request.Context(), &applicant, in)
	if err != nil {
		if app != nil && services.IsKind(err, services.KindNoCapacity) {
			// Accepted but unassigned.
			c.JSON(http.StatusAccepted, gin.H{
				"application": app,
				"message":     "Application submitted; officer assignment is pending",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"application": app,
		"message":     "Application submitted",
	})
}

// ListApplications returns applications visible to the caller: applicants see
// their own, officers see their assigned queue. An optional status query
// narrows the result.
func ListApplications(c *gin.Context) {
	userID := currentUserID(c)
	kind, _ := c.Get("kind")
	role, _ := c.Get("role")

	var filter services.ApplicationFilter
	if kind == middleware.KindApplicant {
		filter.ApplicantID = &userID
	} else if models.OfficerRole(role.(string)).Compliance() {
		filter.ComplianceOfficerID = &userID
	} else {
		filter.OfficerID = &userID
	}

	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.ApplicationStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw})
			return
		}
		filter.Status = &status
	}

	apps, err := deps.Apps.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"total":        len(apps),
	})
}

// GetApplication returns one application with its phase records.
func GetApplication(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := loadVisibleApplication(c, applicationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

// GetApplicationHistory returns the workflow ledger, newest first.
func GetApplicationHistory(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := loadVisibleApplication(c, applicationID); err != nil {
		respondError(c, err)
		return
	}

	entries, err := deps.Apps.History(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"total":   len(entries),
	})
}

// UploadDocument stores one uploaded file against an application. A document
// uploaded while the application waits on a compliance request for its type
// is tagged against that request, and intake runs once all requested types
// are present.
func UploadDocument(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := loadVisibleApplication(c, applicationID)
	if err != nil {
		respondError(c, err)
		return
	}
	if app.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "application is closed"})
		return
	}

	typeCode := strings.ToUpper(strings.TrimSpace(c.PostForm("document_type_code")))
	if typeCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_type_code is required"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 10 MB limit"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedDocumentExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type " + ext})
		return
	}

	uploadDir := filepath.Join("uploads", "applications", fmt.Sprintf("%d", applicationID))
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare upload directory"})
		return
	}
	storedName := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(uploadDir, storedName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	doc := models.ApplicationDocument{
		ApplicationID:      applicationID,
		DocumentTypeCode:   typeCode,
		OriginalFilename:   file.Filename,
		StoredFilename:     storedName,
		FileType:           ext,
		FileSize:           file.Size,
		UploadedBy:         currentUserID(c),
		VerificationStatus: models.DocumentPending,
		UploadedAt:         time.Now(),
	}

	// Tag against the open compliance request when its required types cover
	// this upload.
	if app.Status == models.StatusPendingComplianceDocs {
		var req models.ComplianceDocumentRequest
		err := config.DB.
			Where("application_id = ? AND status IN ?", applicationID,
				[]string{string(models.RequestPending), string(models.RequestReceived)}).
			Order("created_at DESC").
			First(&req).Error
		if err == nil {
			for _, required := range req.RequiredTypes() {
				if required == typeCode {
					doc.ComplianceRequestID = &req.RequestID
					break
				}
			}
		}
	}

	if err := config.DB.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record document"})
		return
	}

	if doc.ComplianceTagged() {
		actor := currentUserID(c)
		if err := deps.Compliance.DocumentsReceived(c.Request.Context(), applicationID, &actor); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"document": doc,
		"message":  "Document uploaded",
	})
}

// ListDocuments returns all documents attached to an application.
func ListDocuments(c *gin.Context) {
	applicationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := loadVisibleApplication(c, applicationID); err != nil {
		respondError(c, err)
		return
	}

	docs, err := deps.Docs.ListByApplication(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// loadVisibleApplication enforces per-role visibility: applicants see their
// own applications, officers see the ones assigned to them.
func loadVisibleApplication(c *gin.Context, applicationID int64) (*models.LoanApplication, error) {
	app, err := deps.Apps.Get(c.Request.Context(), applicationID)
	if err != nil {
		return nil, err
	}

	userID := currentUserID(c)
	kind, _ := c.Get("kind")
	if kind == middleware.KindApplicant {
		if app.ApplicantID != userID {
			return nil, services.Unauthorized("application %d does not belong to applicant %d", applicationID, userID)
		}
		return app, nil
	}

	if app.AssignedOfficerID != nil && *app.AssignedOfficerID == userID {
		return app, nil
	}
	if app.AssignedComplianceOfficerID != nil && *app.AssignedComplianceOfficerID == userID {
		return app, nil
	}
	return nil, services.Unauthorized("officer %d is not assigned to application %d", userID, applicationID)
}
