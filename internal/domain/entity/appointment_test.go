package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_AppointmentStatus_IsValid(t *testing.T) {
	for _, status := range []AppointmentStatus{
		AppointmentStatusScheduled,
		AppointmentStatusConfirmed,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusNoShow,
	} {
		assert.True(t, status.IsValid(), string(status))
	}

	assert.False(t, AppointmentStatus("pending").IsValid())
	assert.False(t, AppointmentStatus("").IsValid())
}

func Test_AppointmentStatus_transition_table(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{AppointmentStatusScheduled, AppointmentStatusConfirmed, true},
		{AppointmentStatusScheduled, AppointmentStatusCancelled, true},
		{AppointmentStatusScheduled, AppointmentStatusNoShow, true},
		{AppointmentStatusScheduled, AppointmentStatusCompleted, false},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, AppointmentStatusNoShow, true},
		{AppointmentStatusConfirmed, AppointmentStatusScheduled, false},
		{AppointmentStatusCompleted, AppointmentStatusScheduled, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusScheduled, false},
		{AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{AppointmentStatusNoShow, AppointmentStatusScheduled, false},
	}

	for _, c := range cases {
		appt := Appointment{Status: c.from}
		assert.Equal(t, c.allowed, appt.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func Test_AppointmentStatus_terminal_states(t *testing.T) {
	assert.False(t, AppointmentStatusScheduled.IsTerminal())
	assert.False(t, AppointmentStatusConfirmed.IsTerminal())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())

	for _, status := range TerminalStatuses() {
		assert.True(t, status.IsTerminal(), string(status))
	}
	assert.Len(t, TerminalStatuses(), 3)
}

func Test_Appointment_EndTime(t *testing.T) {
	start := time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	appt := Appointment{StartTime: start, DurationMinutes: 45}

	assert.Equal(t, time.Date(2026, 9, 15, 9, 45, 0, 0, time.UTC), appt.EndTime())
}

func Test_Appointment_Overlaps_half_open_intervals(t *testing.T) {
	start := time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	appt := Appointment{StartTime: start, DurationMinutes: 60} // 09:00-10:00

	window := func(hhmmFrom, hhmmTo string) (time.Time, time.Time) {
		from, _ := time.Parse("2006-01-02T15:04", "2026-09-15T"+hhmmFrom)
		to, _ := time.Parse("2006-01-02T15:04", "2026-09-15T"+hhmmTo)
		return from, to
	}

	// touching at either endpoint is not a conflict
	from, to := window("08:00", "09:00")
	assert.False(t, appt.Overlaps(from, to))
	from, to = window("10:00", "11:00")
	assert.False(t, appt.Overlaps(from, to))

	// any shared minute is
	from, to = window("08:30", "09:01")
	assert.True(t, appt.Overlaps(from, to))
	from, to = window("09:59", "10:30")
	assert.True(t, appt.Overlaps(from, to))
	from, to = window("09:15", "09:45")
	assert.True(t, appt.Overlaps(from, to))
	from, to = window("08:00", "11:00")
	assert.True(t, appt.Overlaps(from, to))
	from, to = window("09:00", "10:00")
	assert.True(t, appt.Overlaps(from, to))

	// disjoint windows are not
	from, to = window("07:00", "08:00")
	assert.False(t, appt.Overlaps(from, to))
	from, to = window("11:00", "12:00")
	assert.False(t, appt.Overlaps(from, to))
}

func Test_Appointment_IsCancelled(t *testing.T) {
	cancelled := Appointment{Status: AppointmentStatusCancelled}
	scheduled := Appointment{Status: AppointmentStatusScheduled}

	assert.True(t, cancelled.IsCancelled())
	assert.False(t, scheduled.IsCancelled())
}
