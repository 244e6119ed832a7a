package models

import (
	"encoding/json"
	"time"
)

// ComplianceRequestStatus tracks one outstanding document request.
type ComplianceRequestStatus string

const (
	RequestPending   ComplianceRequestStatus = "PENDING"
	RequestReceived  ComplianceRequestStatus = "RECEIVED"
	RequestFulfilled ComplianceRequestStatus = "FULFILLED"
	RequestExpired   ComplianceRequestStatus = "EXPIRED"
)

// Open reports whether the request still blocks a new document request.
func (s ComplianceRequestStatus) Open() bool {
	return s == RequestPending || s == RequestReceived
}

// ComplianceDocumentRequest is one ask for extra documents during compliance
// review. At most one request per application may be open at a time; the
// compliance workflow enforces this, not the database.
type ComplianceDocumentRequest struct {
	RequestID     int64                   `gorm:"primaryKey;column:request_id" json:"request_id"`
	ApplicationID int64                   `gorm:"column:application_id" json:"application_id"`
	RequestedBy   int64                   `gorm:"column:requested_by" json:"requested_by"`
	DocumentTypes string                  `gorm:"column:document_types" json:"-"` // JSON array of type codes
	Reason        string                  `gorm:"column:reason" json:"reason"`
	DeadlineDays  int                     `gorm:"column:deadline_days" json:"deadline_days"`
	Mandatory     bool                    `gorm:"column:mandatory" json:"mandatory"`
	Status        ComplianceRequestStatus `gorm:"column:status" json:"status"`
	CreatedAt     time.Time               `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time               `gorm:"column:updated_at" json:"updated_at"`
}

func (ComplianceDocumentRequest) TableName() string {
	return "compliance_document_requests"
}

// RequiredTypes decodes the requested document type codes.
func (r *ComplianceDocumentRequest) RequiredTypes() []string {
	var types []string
	if err := json.Unmarshal([]byte(r.DocumentTypes), &types); err != nil {
		return nil
	}
	return types
}

// SetRequiredTypes encodes the requested document type codes.
func (r *ComplianceDocumentRequest) SetRequiredTypes(types []string) error {
	raw, err := json.Marshal(types)
	if err != nil {
		return err
	}
	r.DocumentTypes = string(raw)
	return nil
}

// ComplianceInvestigation retains the opaque payload returned by the
// investigation service so a later compliance decision can forward it.
type ComplianceInvestigation struct {
	InvestigationID string    `gorm:"primaryKey;column:investigation_id" json:"investigation_id"`
	ApplicationID   int64     `gorm:"column:application_id" json:"application_id"`
	Findings        []byte    `gorm:"column:findings" json:"findings,omitempty"` // stored verbatim
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ComplianceInvestigation) TableName() string {
	return "compliance_investigations"
}
