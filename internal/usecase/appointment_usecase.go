package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-agenda/internal/converter"
	"clinic-agenda/internal/delivery/dto"
	"clinic-agenda/internal/domain/entity"
	"clinic-agenda/internal/domain/repository"
	"clinic-agenda/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorInactive      = errors.New("doctor is inactive")
	ErrPatientInactive     = errors.New("patient is inactive")
	ErrInvalidStartTime    = errors.New("invalid start time format, use YYYY-MM-DDTHH:MM")
	ErrInvalidDate         = errors.New("invalid date format, use YYYY-MM-DD")
	ErrStartTimeInPast     = errors.New("start time is in the past")
	ErrInvalidDuration     = errors.New("duration must be between 15 and 240 minutes")
	ErrInvalidStatus       = errors.New("unknown appointment status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
)

const (
	appointmentTimeLayout = "2006-01-02T15:04"
	appointmentDateLayout = "2006-01-02"

	minDurationMinutes = 15
	maxDurationMinutes = 240
)

// SlotCache is the availability cache consumed by the coordinator. All
// methods are best-effort: a failing cache must degrade to store reads.
type SlotCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, bool)
	Set(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []string)
	Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time)
}

type AppointmentUsecase interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	Transition(ctx context.Context, id uuid.UUID, target entity.AppointmentStatus) (*dto.AppointmentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error)
	ListAll(ctx context.Context) (*dto.AppointmentListResponse, error)
	ListScheduled(ctx context.Context) (*dto.AppointmentListResponse, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	locks           *service.DoctorLockService
	availability    *service.AvailabilityService
	slotCache       SlotCache
	gracePeriod     time.Duration
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	locks *service.DoctorLockService,
	availability *service.AvailabilityService,
	slotCache SlotCache,
	gracePeriod time.Duration,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		locks:           locks,
		availability:    availability,
		slotCache:       slotCache,
		gracePeriod:     gracePeriod,
	}
}

// Create books a new appointment.
//
// Flow:
// 1. Local validation (start time format, duration bounds)
// 2. Validate doctor and patient resolve to active directory records
// 3. Validate start is within the grace window
// 4. Acquire the doctor's exclusion lock
// 5. Load the doctor's non-cancelled appointments for that day, scan for overlap
// 6. Conflict -> reject with the colliding window, nothing written
// 7. Otherwise persist as scheduled and drop the cached grid for that day
//
// The lock spans steps 5-7 so no other request for the same doctor can
// interleave between the conflict check and the write.
func (u *appointmentUsecase) Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	// Clinic-local wall time; parsing in UTC would shift the grace check
	// by the host's zone offset
	start, err := time.ParseInLocation(appointmentTimeLayout, req.StartTime, time.Local)
	if err != nil {
		return nil, ErrInvalidStartTime
	}
	if req.DurationMinutes < minDurationMinutes || req.DurationMinutes > maxDurationMinutes {
		return nil, ErrInvalidDuration
	}

	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !doctor.IsActive {
		return nil, ErrDoctorInactive
	}

	patient, err := u.patientRepo.FindByID(u.db.WithContext(ctx), req.PatientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", req.PatientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	if !patient.IsActive {
		return nil, ErrPatientInactive
	}

	if start.Before(time.Now().Add(-u.gracePeriod)) {
		return nil, ErrStartTimeInPast
	}

	// Critical section: conflict check and write are atomic per doctor
	lock := u.locks.Acquire(req.DoctorID)
	defer lock.Unlock()

	existing, err := u.appointmentRepo.FindByDoctorAndDate(u.db.WithContext(ctx), req.DoctorID, start)
	if err != nil {
		u.log.Warnf("Failed to load appointments for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}

	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	if hit := findConflict(existing, start, end, uuid.Nil); hit != nil {
		u.log.Warnf("Scheduling conflict for doctor %s: candidate %s collides with %s",
			req.DoctorID, start.Format(appointmentTimeLayout), hit.StartTime.Format(appointmentTimeLayout))
		return nil, &ConflictError{Start: hit.StartTime, End: hit.EndTime()}
	}

	appointment := &entity.Appointment{
		ID:              uuid.New(),
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Status:          entity.AppointmentStatusScheduled,
		Notes:           req.Notes,
	}

	if err := u.appointmentRepo.Create(u.db.WithContext(ctx), appointment); err != nil {
		u.log.Errorf("Failed to insert appointment: %+v", err)
		return nil, err
	}

	u.slotCache.Invalidate(ctx, req.DoctorID, start)

	u.log.Infof("Appointment created: id=%s, doctor=%s, start=%s, duration=%dm",
		appointment.ID, req.DoctorID, start.Format(appointmentTimeLayout), req.DurationMinutes)
	return converter.AppointmentToResponse(appointment), nil
}

// Reschedule moves an appointment to a new start and/or duration. The
// appointment is re-read under the doctor lock so the terminal check runs
// against current state, and the write is status-guarded so a cancel
// committing mid-flight is never overwritten. The conflict check excludes
// the appointment itself, so moving it onto its own slot succeeds.
func (u *appointmentUsecase) Reschedule(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	// First read only resolves the doctor for lock acquisition
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	lock := u.locks.Acquire(appointment.DoctorID)
	defer lock.Unlock()

	appointment, err = u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	newStart := appointment.StartTime
	if req.StartTime != nil {
		newStart, err = time.ParseInLocation(appointmentTimeLayout, *req.StartTime, time.Local)
		if err != nil {
			return nil, ErrInvalidStartTime
		}
	}

	newDuration := appointment.DurationMinutes
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < minDurationMinutes || *req.DurationMinutes > maxDurationMinutes {
			return nil, ErrInvalidDuration
		}
		newDuration = *req.DurationMinutes
	}

	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}

	windowChanged := !newStart.Equal(appointment.StartTime) || newDuration != appointment.DurationMinutes
	if !windowChanged && req.Notes == nil {
		return converter.AppointmentToResponse(appointment), nil
	}

	if windowChanged {
		if newStart.Before(time.Now().Add(-u.gracePeriod)) {
			return nil, ErrStartTimeInPast
		}

		existing, err := u.appointmentRepo.FindByDoctorAndDate(u.db.WithContext(ctx), appointment.DoctorID, newStart)
		if err != nil {
			u.log.Warnf("Failed to load appointments for doctor %s: %+v", appointment.DoctorID, err)
			return nil, err
		}

		newEnd := newStart.Add(time.Duration(newDuration) * time.Minute)
		if hit := findConflict(existing, newStart, newEnd, appointment.ID); hit != nil {
			return nil, &ConflictError{Start: hit.StartTime, End: hit.EndTime()}
		}
	}

	oldDay := appointment.StartTime
	appointment.StartTime = newStart
	appointment.DurationMinutes = newDuration

	affected, err := u.appointmentRepo.UpdateSchedule(u.db.WithContext(ctx), appointment)
	if err != nil {
		u.log.Errorf("Failed to update appointment %s: %+v", id, err)
		return nil, err
	}
	if affected == 0 {
		// A lock-free transition finished the appointment between our
		// read and the guarded write
		current, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrAppointmentNotFound
		}
		return nil, ErrInvalidTransition
	}

	u.slotCache.Invalidate(ctx, appointment.DoctorID, oldDay)
	u.slotCache.Invalidate(ctx, appointment.DoctorID, newStart)

	u.log.Infof("Appointment rescheduled: id=%s, start=%s, duration=%dm",
		id, newStart.Format(appointmentTimeLayout), newDuration)
	return converter.AppointmentToResponse(appointment), nil
}

// Transition applies a status change through the transition table. Status
// changes never introduce an overlap, so no doctor lock is taken.
func (u *appointmentUsecase) Transition(ctx context.Context, id uuid.UUID, target entity.AppointmentStatus) (*dto.AppointmentResponse, error) {
	if !target.IsValid() {
		return nil, ErrInvalidStatus
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if !appointment.CanTransitionTo(target) {
		u.log.Warnf("Rejected transition %s -> %s for appointment %s", appointment.Status, target, id)
		return nil, ErrInvalidTransition
	}

	// Compare-and-set on the stored status; a racing transition that
	// committed first wins and this one is rejected
	affected, err := u.appointmentRepo.UpdateStatus(u.db.WithContext(ctx), id, appointment.Status, target)
	if err != nil {
		u.log.Errorf("Failed to update appointment %s: %+v", id, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}
	appointment.Status = target

	// Cancellation frees the occupied slots
	if target == entity.AppointmentStatusCancelled {
		u.slotCache.Invalidate(ctx, appointment.DoctorID, appointment.StartTime)
	}

	u.log.Infof("Appointment %s transitioned to %s", id, target)
	return converter.AppointmentToResponse(appointment), nil
}

// Delete hard-removes an appointment (admin purge). No state-machine
// constraint and no lock: removal can only widen availability.
func (u *appointmentUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	affected, err := u.appointmentRepo.Delete(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Errorf("Failed to delete appointment %s: %+v", id, err)
		return err
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}

	u.slotCache.Invalidate(ctx, appointment.DoctorID, appointment.StartTime)

	u.log.Infof("Appointment deleted: id=%s", id)
	return nil
}

func (u *appointmentUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

// AvailableSlots lists the free grid slots for a doctor and day. Inactive
// doctors have no bookable slots. The cached grid is consulted first; the
// conflict path never depends on it.
func (u *appointmentUsecase) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error) {
	day, err := time.ParseInLocation(appointmentDateLayout, date, time.Local)
	if err != nil {
		return nil, ErrInvalidDate
	}

	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !doctor.IsActive {
		return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date, Slots: []string{}}, nil
	}

	if slots, ok := u.slotCache.Get(ctx, doctorID, day); ok {
		return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date, Slots: slots}, nil
	}

	appointments, err := u.appointmentRepo.FindByDoctorAndDate(u.db.WithContext(ctx), doctorID, day)
	if err != nil {
		u.log.Warnf("Failed to load appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	slots := u.availability.Slots(appointments)
	u.slotCache.Set(ctx, doctorID, day, slots)

	return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date, Slots: slots}, nil
}

func (u *appointmentUsecase) ListAll(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, err
	}
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) ListScheduled(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindScheduled(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to list scheduled appointments: %+v", err)
		return nil, err
	}
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) ListByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to list appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) ListByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to list appointments for patient %s: %+v", patientID, err)
		return nil, err
	}
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}
