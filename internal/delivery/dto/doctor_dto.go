package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateDoctorRequest struct {
	FullName  string `json:"full_name" validate:"required,min=3,max=200"`
	CRM       string `json:"crm" validate:"required,max=20"`
	Specialty string `json:"specialty" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type UpdateDoctorRequest struct {
	FullName  string `json:"full_name" validate:"omitempty,min=3,max=200"`
	Specialty string `json:"specialty" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

// Response DTOs

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	CRM       string    `json:"crm"`
	Specialty string    `json:"specialty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}
