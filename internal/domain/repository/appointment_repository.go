package repository

import (
	"time"

	"clinic-agenda/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	// UpdateSchedule writes start, duration and notes, guarded so a
	// concurrently finished appointment is never touched. Zero rows
	// affected means the appointment is gone or turned terminal.
	UpdateSchedule(db *gorm.DB, appointment *entity.Appointment) (int64, error)
	// UpdateStatus applies a status change only if the stored status still
	// matches from, so racing transitions cannot overwrite each other.
	UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	// FindByDoctorAndDate returns the doctor's non-cancelled appointments
	// whose start falls on the given calendar day, ordered by start time.
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, day time.Time) ([]entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindScheduled(db *gorm.DB) ([]entity.Appointment, error)
	FindAll(db *gorm.DB) ([]entity.Appointment, error)
}
