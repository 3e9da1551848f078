package service

import (
	"time"

	"clinic-agenda/config"
	"clinic-agenda/internal/domain/entity"
)

// AvailabilityService renders the bookable slot grid for one doctor and day.
// The grid runs from OpenHour to CloseHour in SlotMinutes steps; every
// non-cancelled appointment occupies ceil(duration/step) consecutive slots
// starting at its own start time. Appointment starts are assumed to be
// grid-aligned; alignment is a caller concern and is not enforced here.
type AvailabilityService struct {
	openHour    int
	closeHour   int
	slotMinutes int
}

func NewAvailabilityService(cfg config.ClinicConfig) *AvailabilityService {
	return &AvailabilityService{
		openHour:    cfg.OpenHour,
		closeHour:   cfg.CloseHour,
		slotMinutes: cfg.SlotMinutes,
	}
}

// Slots returns the free "HH:MM" slots in ascending order. Pure function of
// the appointment set: same input, same output, no side effects.
func (s *AvailabilityService) Slots(appointments []entity.Appointment) []string {
	occupied := s.occupiedSlots(appointments)

	grid := []string{}
	step := time.Duration(s.slotMinutes) * time.Minute
	dayStart := time.Date(2000, 1, 1, s.openHour, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2000, 1, 1, s.closeHour, 0, 0, 0, time.UTC)

	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		slot := t.Format("15:04")
		if _, taken := occupied[slot]; !taken {
			grid = append(grid, slot)
		}
	}

	return grid
}

func (s *AvailabilityService) occupiedSlots(appointments []entity.Appointment) map[string]struct{} {
	occupied := make(map[string]struct{})
	step := time.Duration(s.slotMinutes) * time.Minute

	for i := range appointments {
		appt := &appointments[i]
		if appt.IsCancelled() {
			continue
		}

		// Round up so a 45-minute visit blocks two 30-minute slots
		count := (appt.DurationMinutes + s.slotMinutes - 1) / s.slotMinutes
		if count < 1 {
			count = 1
		}

		at := appt.StartTime
		for j := 0; j < count; j++ {
			occupied[at.Format("15:04")] = struct{}{}
			at = at.Add(step)
		}
	}

	return occupied
}
