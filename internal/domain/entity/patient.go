package entity

import (
	"time"

	"github.com/google/uuid"
)

// Patient represents a patient in the clinic directory
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string    `gorm:"type:varchar(200);not null" json:"full_name"`
	CPF         string    `gorm:"type:varchar(14);uniqueIndex;not null" json:"cpf"`
	DateOfBirth string    `gorm:"type:varchar(10);not null" json:"date_of_birth"`
	Phone       string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email       string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	Address     string    `gorm:"type:text" json:"address,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}
