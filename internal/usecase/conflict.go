package usecase

import (
	"fmt"
	"time"

	"clinic-agenda/internal/domain/entity"

	"github.com/google/uuid"
)

// ConflictError reports a rejected booking together with the colliding
// window so callers can render a useful message.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("doctor already has an appointment from %s to %s",
		e.Start.Format("15:04"), e.End.Format("15:04"))
}

// findConflict scans the doctor's existing appointments for one whose
// window intersects [start, end). Windows are half-open, so an appointment
// ending exactly when the candidate starts does not conflict. Cancelled
// appointments and the appointment identified by excludeID (the one being
// rescheduled) are skipped. Returns the first colliding appointment, or nil.
func findConflict(existing []entity.Appointment, start, end time.Time, excludeID uuid.UUID) *entity.Appointment {
	for i := range existing {
		appt := &existing[i]
		if appt.ID == excludeID {
			continue
		}
		if appt.IsCancelled() {
			continue
		}
		if appt.Overlaps(start, end) {
			return appt
		}
	}
	return nil
}
