package entity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor represents a doctor in the clinic directory
type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(200);not null" json:"full_name"`
	CRM       string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"crm"`
	Specialty string    `gorm:"type:varchar(100);not null;index" json:"specialty"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email     string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}
