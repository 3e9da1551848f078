package service

import (
	"testing"
	"time"

	"clinic-agenda/config"
	"clinic-agenda/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func newTestAvailability() *AvailabilityService {
	return NewAvailabilityService(config.ClinicConfig{OpenHour: 8, CloseHour: 18, SlotMinutes: 30})
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", "2026-09-15T"+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func Test_Slots_empty_day_yields_the_full_grid(t *testing.T) {
	svc := newTestAvailability()

	slots := svc.Slots(nil)

	assert.Len(t, slots, 20)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "17:30", slots[len(slots)-1])
	assert.NotContains(t, slots, "18:00")
}

func Test_Slots_sixty_minute_visit_blocks_two_slots(t *testing.T) {
	svc := newTestAvailability()

	slots := svc.Slots([]entity.Appointment{
		{StartTime: at("09:00"), DurationMinutes: 60, Status: entity.AppointmentStatusScheduled},
	})

	assert.Len(t, slots, 18)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "09:30")
	assert.Contains(t, slots, "08:30")
	assert.Contains(t, slots, "10:00")
}

func Test_Slots_duration_rounds_up_to_whole_slots(t *testing.T) {
	svc := newTestAvailability()

	// 45 minutes spills into the second slot
	slots := svc.Slots([]entity.Appointment{
		{StartTime: at("14:00"), DurationMinutes: 45, Status: entity.AppointmentStatusConfirmed},
	})

	assert.NotContains(t, slots, "14:00")
	assert.NotContains(t, slots, "14:30")
	assert.Contains(t, slots, "15:00")
}

func Test_Slots_cancelled_appointments_do_not_occupy(t *testing.T) {
	svc := newTestAvailability()

	slots := svc.Slots([]entity.Appointment{
		{StartTime: at("09:00"), DurationMinutes: 60, Status: entity.AppointmentStatusCancelled},
	})

	assert.Len(t, slots, 20)
	assert.Contains(t, slots, "09:00")
	assert.Contains(t, slots, "09:30")
}

func Test_Slots_multiple_appointments_accumulate(t *testing.T) {
	svc := newTestAvailability()

	slots := svc.Slots([]entity.Appointment{
		{StartTime: at("08:00"), DurationMinutes: 30, Status: entity.AppointmentStatusScheduled},
		{StartTime: at("10:00"), DurationMinutes: 90, Status: entity.AppointmentStatusConfirmed},
		{StartTime: at("17:30"), DurationMinutes: 30, Status: entity.AppointmentStatusScheduled},
	})

	assert.Len(t, slots, 15)
	assert.NotContains(t, slots, "08:00")
	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "10:30")
	assert.NotContains(t, slots, "11:00")
	assert.NotContains(t, slots, "17:30")
	assert.Contains(t, slots, "08:30")
	assert.Contains(t, slots, "11:30")
}

func Test_Slots_fully_booked_day_is_empty(t *testing.T) {
	svc := newTestAvailability()

	var appointments []entity.Appointment
	for hour := 8; hour < 18; hour++ {
		appointments = append(appointments, entity.Appointment{
			StartTime:       time.Date(2026, 9, 15, hour, 0, 0, 0, time.UTC),
			DurationMinutes: 60,
			Status:          entity.AppointmentStatusScheduled,
		})
	}

	assert.Empty(t, svc.Slots(appointments))
}

func Test_Slots_respects_custom_hours_and_step(t *testing.T) {
	svc := NewAvailabilityService(config.ClinicConfig{OpenHour: 9, CloseHour: 12, SlotMinutes: 60})

	slots := svc.Slots(nil)

	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots)
}
