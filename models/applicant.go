package models

import "time"

// Applicant represents the person requesting a loan. NationalID and TaxID
// together form the identity key consumed by the external verification
// services.
type Applicant struct {
	ApplicantID int64     `gorm:"primaryKey;column:applicant_id" json:"applicant_id"`
	FirstName   string    `gorm:"column:first_name" json:"first_name"`
	LastName    string    `gorm:"column:last_name" json:"last_name"`
	Email       string    `gorm:"column:email;unique" json:"email"`
	Password    string    `gorm:"column:password" json:"-"`
	NationalID  string    `gorm:"column:national_id" json:"national_id"`
	TaxID       string    `gorm:"column:tax_id" json:"tax_id"`
	Phone       *string   `gorm:"column:phone" json:"phone,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Applicant) TableName() string {
	return "applicants"
}
