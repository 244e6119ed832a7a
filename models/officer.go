package models

import "time"

// OfficerRole identifies the pool an officer belongs to.
type OfficerRole string

const (
	RoleLoanOfficer             OfficerRole = "LOAN_OFFICER"
	RoleSeniorLoanOfficer       OfficerRole = "SENIOR_LOAN_OFFICER"
	RoleComplianceOfficer       OfficerRole = "COMPLIANCE_OFFICER"
	RoleSeniorComplianceOfficer OfficerRole = "SENIOR_COMPLIANCE_OFFICER"
)

// Valid reports whether r is a known officer role.
func (r OfficerRole) Valid() bool {
	switch r {
	case RoleLoanOfficer, RoleSeniorLoanOfficer, RoleComplianceOfficer, RoleSeniorComplianceOfficer:
		return true
	}
	return false
}

// Compliance reports whether r handles compliance work.
func (r OfficerRole) Compliance() bool {
	return r == RoleComplianceOfficer || r == RoleSeniorComplianceOfficer
}

// Officer represents a review worker. Workload is derived from the
// applications table, never stored here.
type Officer struct {
	OfficerID int64       `gorm:"primaryKey;column:officer_id" json:"officer_id"`
	FirstName string      `gorm:"column:first_name" json:"first_name"`
	LastName  string      `gorm:"column:last_name" json:"last_name"`
	Email     string      `gorm:"column:email;unique" json:"email"`
	Password  string      `gorm:"column:password" json:"-"`
	Role      OfficerRole `gorm:"column:role" json:"role"`
	IsActive  bool        `gorm:"column:is_active" json:"is_active"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (Officer) TableName() string {
	return "officers"
}

// FullName returns the officer's display name.
func (o *Officer) FullName() string {
	return o.FirstName + " " + o.LastName
}
