package models

import "time"

// DocumentVerificationStatus is the review outcome of a single uploaded
// document.
type DocumentVerificationStatus string

const (
	DocumentPending  DocumentVerificationStatus = "PENDING"
	DocumentVerified DocumentVerificationStatus = "VERIFIED"
	DocumentRejected DocumentVerificationStatus = "REJECTED"
)

// Terminal reports whether the document needs no further review.
func (s DocumentVerificationStatus) Terminal() bool {
	return s == DocumentVerified || s == DocumentRejected
}

// ApplicationDocument is an uploaded file attached to an application. A
// non-nil ComplianceRequestID marks the document as compliance-tagged: it was
// uploaded in response to a compliance document request rather than the
// ordinary application checklist.
type ApplicationDocument struct {
	DocumentID          int64                      `gorm:"primaryKey;column:document_id" json:"document_id"`
	ApplicationID       int64                      `gorm:"column:application_id" json:"application_id"`
	DocumentTypeCode    string                     `gorm:"column:document_type_code" json:"document_type_code"`
	OriginalFilename    string                     `gorm:"column:original_filename" json:"original_filename"`
	StoredFilename      string                     `gorm:"column:stored_filename" json:"stored_filename"`
	FileType            string                     `gorm:"column:file_type" json:"file_type"`
	FileSize            int64                      `gorm:"column:file_size" json:"file_size"`
	UploadedBy          int64                      `gorm:"column:uploaded_by" json:"uploaded_by"`
	ComplianceRequestID *int64                     `gorm:"column:compliance_request_id" json:"compliance_request_id,omitempty"`
	VerificationStatus  DocumentVerificationStatus `gorm:"column:verification_status" json:"verification_status"`
	RejectionReason     *string                    `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	VerifiedBy          *int64                     `gorm:"column:verified_by" json:"verified_by,omitempty"`
	VerifiedAt          *time.Time                 `gorm:"column:verified_at" json:"verified_at,omitempty"`
	UploadedAt          time.Time                  `gorm:"column:uploaded_at" json:"uploaded_at"`
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}

// ComplianceTagged reports whether the document answers a compliance request.
func (d *ApplicationDocument) ComplianceTagged() bool {
	return d.ComplianceRequestID != nil
}
