package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clinic-agenda/config"
	"clinic-agenda/internal/delivery/dto"
	"clinic-agenda/internal/domain/entity"
	"clinic-agenda/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeAppointmentRepo is an in-memory, thread-safe stand-in for the gorm
// repository. The *gorm.DB argument is ignored. An optional read delay
// widens the check-then-act window so races would surface without the
// per-doctor lock.
type fakeAppointmentRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]entity.Appointment
	readDelay time.Duration
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[uuid.UUID]entity.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ *gorm.DB, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[appointment.ID] = *appointment
	return nil
}

func (r *fakeAppointmentRepo) UpdateSchedule(_ *gorm.DB, appointment *entity.Appointment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[appointment.ID]
	if !ok || current.Status.IsTerminal() {
		return 0, nil
	}
	current.StartTime = appointment.StartTime
	current.DurationMinutes = appointment.DurationMinutes
	current.Notes = appointment.Notes
	r.items[appointment.ID] = current
	return 1, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok || current.Status != from {
		return 0, nil
	}
	current.Status = to
	r.items[id] = current
	return 1, nil
}

func (r *fakeAppointmentRepo) Delete(_ *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return 0, nil
	}
	delete(r.items, id)
	return 1, nil
}

func (r *fakeAppointmentRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appt, ok := r.items[id]; ok {
		return &appt, nil
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) FindByDoctorAndDate(_ *gorm.DB, doctorID uuid.UUID, day time.Time) ([]entity.Appointment, error) {
	r.mu.Lock()
	var result []entity.Appointment
	for _, appt := range r.items {
		if appt.DoctorID != doctorID || appt.IsCancelled() {
			continue
		}
		y1, m1, d1 := appt.StartTime.Date()
		y2, m2, d2 := day.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			result = append(result, appt)
		}
	}
	r.mu.Unlock()

	if r.readDelay > 0 {
		time.Sleep(r.readDelay)
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindByDoctorID(_ *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.Appointment
	for _, appt := range r.items {
		if appt.DoctorID == doctorID {
			result = append(result, appt)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindByPatientID(_ *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.Appointment
	for _, appt := range r.items {
		if appt.PatientID == patientID {
			result = append(result, appt)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindScheduled(_ *gorm.DB) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.Appointment
	for _, appt := range r.items {
		if appt.Status == entity.AppointmentStatusScheduled {
			result = append(result, appt)
		}
	}
	return result, nil
}

func (r *fakeAppointmentRepo) FindAll(_ *gorm.DB) ([]entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]entity.Appointment, 0, len(r.items))
	for _, appt := range r.items {
		result = append(result, appt)
	}
	return result, nil
}

type fakeDoctorRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]entity.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{items: make(map[uuid.UUID]entity.Doctor)}
}

func (r *fakeDoctorRepo) Create(_ *gorm.DB, doctor *entity.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[doctor.ID] = *doctor
	return nil
}

func (r *fakeDoctorRepo) Update(_ *gorm.DB, doctor *entity.Doctor) error {
	return r.Create(nil, doctor)
}

func (r *fakeDoctorRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doctor, ok := r.items[id]; ok {
		return &doctor, nil
	}
	return nil, nil
}

func (r *fakeDoctorRepo) FindAll(_ *gorm.DB) ([]entity.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]entity.Doctor, 0, len(r.items))
	for _, doctor := range r.items {
		result = append(result, doctor)
	}
	return result, nil
}

type fakePatientRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]entity.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{items: make(map[uuid.UUID]entity.Patient)}
}

func (r *fakePatientRepo) Create(_ *gorm.DB, patient *entity.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[patient.ID] = *patient
	return nil
}

func (r *fakePatientRepo) Update(_ *gorm.DB, patient *entity.Patient) error {
	return r.Create(nil, patient)
}

func (r *fakePatientRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if patient, ok := r.items[id]; ok {
		return &patient, nil
	}
	return nil, nil
}

func (r *fakePatientRepo) FindAll(_ *gorm.DB) ([]entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]entity.Patient, 0, len(r.items))
	for _, patient := range r.items {
		result = append(result, patient)
	}
	return result, nil
}

// noopSlotCache always misses, so availability is recomputed from the repo
type noopSlotCache struct{}

func (noopSlotCache) Get(context.Context, uuid.UUID, time.Time) ([]string, bool) { return nil, false }
func (noopSlotCache) Set(context.Context, uuid.UUID, time.Time, []string)        {}
func (noopSlotCache) Invalidate(context.Context, uuid.UUID, time.Time)           {}

// testDB is a connection-less gorm handle. WithContext only clones the
// config and statement, so the fake repositories never touch a real pool.
// The Statement must be populated or the clone dereferences nil.
func testDB() *gorm.DB {
	db := &gorm.DB{Config: &gorm.Config{}}
	db.Statement = &gorm.Statement{DB: db}
	return db
}

type fixture struct {
	usecase   AppointmentUsecase
	appts     *fakeAppointmentRepo
	doctors   *fakeDoctorRepo
	patients  *fakePatientRepo
	doctorID  uuid.UUID
	patientID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	appts := newFakeAppointmentRepo()
	doctors := newFakeDoctorRepo()
	patients := newFakePatientRepo()

	doctorID := uuid.New()
	patientID := uuid.New()
	require.NoError(t, doctors.Create(nil, &entity.Doctor{ID: doctorID, FullName: "Dr. Helena Souza", CRM: "CRM-12345", Specialty: "Cardiology", IsActive: true}))
	require.NoError(t, patients.Create(nil, &entity.Patient{ID: patientID, FullName: "João Ferreira", CPF: "123.456.789-00", IsActive: true}))

	locks := service.NewDoctorLockService(log)
	t.Cleanup(locks.Stop)

	availability := service.NewAvailabilityService(config.ClinicConfig{OpenHour: 8, CloseHour: 18, SlotMinutes: 30})

	uc := NewAppointmentUsecase(testDB(), log, appts, doctors, patients, locks, availability, noopSlotCache{}, time.Hour)

	return &fixture{
		usecase:   uc,
		appts:     appts,
		doctors:   doctors,
		patients:  patients,
		doctorID:  doctorID,
		patientID: patientID,
	}
}

// bookingDayAt formats tomorrow at HH:MM, comfortably ahead of the grace
// window. Start strings are interpreted as local clinic time.
func bookingDayAt(hhmm string) string {
	return bookingDay() + "T" + hhmm
}

func bookingDay() string {
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

func (f *fixture) create(t *testing.T, hhmm string, duration int) *dto.AppointmentResponse {
	t.Helper()
	appt, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       bookingDayAt(hhmm),
		DurationMinutes: duration,
	})
	require.NoError(t, err)
	require.NotNil(t, appt)
	return appt
}

func Test_Create_books_a_free_slot(t *testing.T) {
	f := newFixture(t)

	appt := f.create(t, "09:00", 30)

	assert.Equal(t, string(entity.AppointmentStatusScheduled), appt.Status)
	assert.Equal(t, bookingDayAt("09:00"), appt.StartTime)
	assert.Equal(t, bookingDayAt("09:30"), appt.EndTime)
	assert.NotEqual(t, uuid.Nil, appt.ID)
}

func Test_Create_rejects_overlap_and_names_the_colliding_window(t *testing.T) {
	f := newFixture(t)
	f.create(t, "09:00", 30)

	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "09:00", conflict.Start.Format("15:04"))
	assert.Equal(t, "09:30", conflict.End.Format("15:04"))
}

func Test_Create_allows_touching_intervals(t *testing.T) {
	f := newFixture(t)

	f.create(t, "09:00", 30)
	appt := f.create(t, "09:30", 30)

	assert.Equal(t, bookingDayAt("09:30"), appt.StartTime)
}

func Test_Create_detects_partial_and_containing_overlaps(t *testing.T) {
	f := newFixture(t)
	f.create(t, "10:00", 60)

	for _, candidate := range []struct {
		hhmm     string
		duration int
	}{
		{"09:30", 60},  // overlaps the front
		{"10:30", 60},  // overlaps the back
		{"09:30", 180}, // swallows the existing one
		{"10:15", 30},  // inside the existing one
	} {
		_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
			DoctorID:        f.doctorID,
			PatientID:       f.patientID,
			StartTime:       bookingDayAt(candidate.hhmm),
			DurationMinutes: candidate.duration,
		})
		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict, "candidate %s/%dm should conflict", candidate.hhmm, candidate.duration)
	}
}

func Test_Create_ignores_cancelled_appointments(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCancelled)
	require.NoError(t, err)

	rebooked := f.create(t, "09:00", 30)
	assert.Equal(t, bookingDayAt("09:00"), rebooked.StartTime)
}

func Test_Create_validates_directory_references(t *testing.T) {
	f := newFixture(t)

	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        uuid.New(),
		PatientID:       f.patientID,
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       uuid.New(),
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func Test_Create_rejects_inactive_directory_entries(t *testing.T) {
	f := newFixture(t)

	inactiveDoctor := uuid.New()
	inactivePatient := uuid.New()
	require.NoError(t, f.doctors.Create(nil, &entity.Doctor{ID: inactiveDoctor, CRM: "CRM-99999", IsActive: false}))
	require.NoError(t, f.patients.Create(nil, &entity.Patient{ID: inactivePatient, CPF: "999.999.999-99", IsActive: false}))

	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        inactiveDoctor,
		PatientID:       f.patientID,
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrDoctorInactive)

	_, err = f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       inactivePatient,
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrPatientInactive)
}

func Test_Create_rejects_start_beyond_grace_window(t *testing.T) {
	f := newFixture(t)

	past := time.Now().Add(-2 * time.Hour).Format("2006-01-02T15:04")
	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       past,
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrStartTimeInPast)
}

// Start strings carry no zone, so they must be read as local wall time: a
// visit 90 minutes from now is bookable on any host regardless of its
// offset from UTC.
func Test_Create_accepts_near_future_start_in_local_time(t *testing.T) {
	f := newFixture(t)

	soon := time.Now().Add(90 * time.Minute).Format("2006-01-02T15:04")
	appt, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       soon,
		DurationMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, soon, appt.StartTime)
}

func Test_Create_accepts_start_within_grace_window(t *testing.T) {
	f := newFixture(t)

	recent := time.Now().Add(-30 * time.Minute).Format("2006-01-02T15:04")
	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       recent,
		DurationMinutes: 30,
	})

	require.NoError(t, err)
}

func Test_Create_rejects_duration_out_of_bounds(t *testing.T) {
	f := newFixture(t)

	for _, duration := range []int{0, 10, 241, 480} {
		_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
			DoctorID:        f.doctorID,
			PatientID:       f.patientID,
			StartTime:       bookingDayAt("09:00"),
			DurationMinutes: duration,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", duration)
	}
}

func Test_Create_rejects_malformed_start_time(t *testing.T) {
	f := newFixture(t)

	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       "next tuesday",
		DurationMinutes: 30,
	})
	assert.ErrorIs(t, err, ErrInvalidStartTime)
}

func Test_Reschedule_to_own_interval_has_no_self_conflict(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	start := bookingDayAt("09:00")
	duration := 30
	updated, err := f.usecase.Reschedule(context.Background(), appt.ID, &dto.UpdateAppointmentRequest{
		StartTime:       &start,
		DurationMinutes: &duration,
	})

	require.NoError(t, err)
	assert.Equal(t, bookingDayAt("09:00"), updated.StartTime)
}

func Test_Reschedule_extending_over_own_slot_succeeds(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	duration := 60
	updated, err := f.usecase.Reschedule(context.Background(), appt.ID, &dto.UpdateAppointmentRequest{
		DurationMinutes: &duration,
	})

	require.NoError(t, err)
	assert.Equal(t, bookingDayAt("10:00"), updated.EndTime)
}

func Test_Reschedule_onto_another_appointment_fails(t *testing.T) {
	f := newFixture(t)
	f.create(t, "09:00", 30)
	victim := f.create(t, "10:00", 30)

	start := bookingDayAt("09:00")
	_, err := f.usecase.Reschedule(context.Background(), victim.ID, &dto.UpdateAppointmentRequest{
		StartTime: &start,
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "09:00", conflict.Start.Format("15:04"))
}

func Test_Reschedule_terminal_appointment_is_rejected(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCancelled)
	require.NoError(t, err)

	start := bookingDayAt("11:00")
	_, err = f.usecase.Reschedule(context.Background(), appt.ID, &dto.UpdateAppointmentRequest{StartTime: &start})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// A cancel that commits while a reschedule is inside its critical section
// must win: the guarded write touches no terminal row, so the cancelled
// appointment keeps its status and window.
func Test_Reschedule_loses_against_concurrent_cancel(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)
	f.appts.readDelay = 100 * time.Millisecond // hold the reschedule inside its conflict scan

	start := bookingDayAt("11:00")
	rescheduleErr := make(chan error, 1)
	go func() {
		_, err := f.usecase.Reschedule(context.Background(), appt.ID, &dto.UpdateAppointmentRequest{StartTime: &start})
		rescheduleErr <- err
	}()

	time.Sleep(30 * time.Millisecond)
	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCancelled)
	require.NoError(t, err)

	assert.ErrorIs(t, <-rescheduleErr, ErrInvalidTransition)

	current, err := f.usecase.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusCancelled), current.Status)
	assert.Equal(t, bookingDayAt("09:00"), current.StartTime)
}

func Test_Transition_concurrent_requests_admit_exactly_one(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	targets := []entity.AppointmentStatus{entity.AppointmentStatusCancelled, entity.AppointmentStatusNoShow}
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target entity.AppointmentStatus) {
			defer wg.Done()
			_, errs[i] = f.usecase.Transition(context.Background(), appt.ID, target)
		}(i, target)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func Test_Reschedule_unknown_appointment(t *testing.T) {
	f := newFixture(t)

	start := bookingDayAt("11:00")
	_, err := f.usecase.Reschedule(context.Background(), uuid.New(), &dto.UpdateAppointmentRequest{StartTime: &start})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func Test_Transition_follows_the_state_machine(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	confirmed, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), confirmed.Status)

	completed, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusCompleted), completed.Status)
}

func Test_Transition_rejects_illegal_moves(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	// scheduled cannot jump straight to completed
	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusConfirmed)
	require.NoError(t, err)
	_, err = f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCompleted)
	require.NoError(t, err)

	// terminal states cannot be resurrected
	_, err = f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func Test_Transition_rejects_unknown_status(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func Test_AvailableSlots_renders_the_grid_minus_occupied(t *testing.T) {
	f := newFixture(t)
	f.create(t, "09:00", 60)

	resp, err := f.usecase.AvailableSlots(context.Background(), f.doctorID, bookingDay())
	require.NoError(t, err)

	// 20-slot grid minus the two occupied by the 60-minute visit
	assert.Len(t, resp.Slots, 18)
	assert.NotContains(t, resp.Slots, "09:00")
	assert.NotContains(t, resp.Slots, "09:30")
	assert.Contains(t, resp.Slots, "08:30")
	assert.Contains(t, resp.Slots, "10:00")
}

func Test_AvailableSlots_cancelling_frees_the_slots(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 60)

	_, err := f.usecase.Transition(context.Background(), appt.ID, entity.AppointmentStatusCancelled)
	require.NoError(t, err)

	resp, err := f.usecase.AvailableSlots(context.Background(), f.doctorID, bookingDay())
	require.NoError(t, err)
	assert.Len(t, resp.Slots, 20)
	assert.Contains(t, resp.Slots, "09:00")
	assert.Contains(t, resp.Slots, "09:30")
}

func Test_AvailableSlots_inactive_doctor_has_none(t *testing.T) {
	f := newFixture(t)

	_, err := f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
		DoctorID:        f.doctorID,
		PatientID:       f.patientID,
		StartTime:       bookingDayAt("09:00"),
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	err = NewDoctorUsecase(testDB(), logrus.New(), f.doctors).Deactivate(context.Background(), f.doctorID)
	require.NoError(t, err)

	resp, err := f.usecase.AvailableSlots(context.Background(), f.doctorID, bookingDay())
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func Test_AvailableSlots_unknown_doctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.usecase.AvailableSlots(context.Background(), uuid.New(), bookingDay())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func Test_AvailableSlots_bad_date(t *testing.T) {
	f := newFixture(t)

	_, err := f.usecase.AvailableSlots(context.Background(), f.doctorID, "31-12-2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func Test_Delete_hard_removes_and_frees_the_slot(t *testing.T) {
	f := newFixture(t)
	appt := f.create(t, "09:00", 30)

	require.NoError(t, f.usecase.Delete(context.Background(), appt.ID))

	_, err := f.usecase.Get(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	resp, err := f.usecase.AvailableSlots(context.Background(), f.doctorID, bookingDay())
	require.NoError(t, err)
	assert.Contains(t, resp.Slots, "09:00")

	assert.ErrorIs(t, f.usecase.Delete(context.Background(), appt.ID), ErrAppointmentNotFound)
}

func Test_Concurrent_creates_for_one_doctor_admit_exactly_one(t *testing.T) {
	f := newFixture(t)
	f.appts.readDelay = 10 * time.Millisecond // widen the check-then-act window

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
				DoctorID:        f.doctorID,
				PatientID:       f.patientID,
				StartTime:       bookingDayAt("09:00"),
				DurationMinutes: 30,
			})
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		var conflict *ConflictError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &conflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicted)
}

func Test_Concurrent_creates_for_different_doctors_all_succeed(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	appts := newFakeAppointmentRepo()
	appts.readDelay = 10 * time.Millisecond
	doctors := newFakeDoctorRepo()
	patients := newFakePatientRepo()

	patientID := uuid.New()
	require.NoError(t, patients.Create(nil, &entity.Patient{ID: patientID, IsActive: true}))

	const doctorCount = 6
	doctorIDs := make([]uuid.UUID, doctorCount)
	for i := range doctorIDs {
		doctorIDs[i] = uuid.New()
		require.NoError(t, doctors.Create(nil, &entity.Doctor{ID: doctorIDs[i], CRM: fmt.Sprintf("CRM-%d", i), IsActive: true}))
	}

	locks := service.NewDoctorLockService(log)
	t.Cleanup(locks.Stop)
	availability := service.NewAvailabilityService(config.ClinicConfig{OpenHour: 8, CloseHour: 18, SlotMinutes: 30})
	uc := NewAppointmentUsecase(testDB(), log, appts, doctors, patients, locks, availability, noopSlotCache{}, time.Hour)

	errs := make([]error, doctorCount)
	var wg sync.WaitGroup
	for i, doctorID := range doctorIDs {
		wg.Add(1)
		go func(i int, doctorID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = uc.Create(context.Background(), &dto.CreateAppointmentRequest{
				DoctorID:        doctorID,
				PatientID:       patientID,
				StartTime:       bookingDayAt("09:00"),
				DurationMinutes: 30,
			})
		}(i, doctorID)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "doctor %d", i)
	}
}

// Overlap invariant: after a storm of concurrent creates against one
// doctor, the surviving non-cancelled appointments are pairwise disjoint.
func Test_Concurrent_mixed_windows_preserve_the_overlap_invariant(t *testing.T) {
	f := newFixture(t)
	f.appts.readDelay = 5 * time.Millisecond

	starts := []string{"09:00", "09:30", "09:00", "10:00", "09:30", "10:30", "09:00", "10:00"}

	var wg sync.WaitGroup
	for _, hhmm := range starts {
		wg.Add(1)
		go func(hhmm string) {
			defer wg.Done()
			_, _ = f.usecase.Create(context.Background(), &dto.CreateAppointmentRequest{
				DoctorID:        f.doctorID,
				PatientID:       f.patientID,
				StartTime:       bookingDayAt(hhmm),
				DurationMinutes: 60,
			})
		}(hhmm)
	}
	wg.Wait()

	day := time.Now().AddDate(0, 0, 1)
	survivors, err := f.appts.FindByDoctorAndDate(nil, f.doctorID, day)
	require.NoError(t, err)
	require.NotEmpty(t, survivors)

	for i := range survivors {
		for j := i + 1; j < len(survivors); j++ {
			a, b := survivors[i], survivors[j]
			assert.False(t, a.Overlaps(b.StartTime, b.EndTime()),
				"appointments %s and %s overlap", a.StartTime.Format("15:04"), b.StartTime.Format("15:04"))
		}
	}
}
