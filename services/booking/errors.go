package booking

import (
	"fmt"

	"bookflow/models"
)

// Conflict error codes.
const (
	ConflictCodeTimeConflict      = "time_conflict"
	ConflictCodeDoubleBooking     = "double_booking"
	ConflictCodeProviderConflict  = "calendly_conflict"
	ConflictCodeAvailabilityError = "availability_error"
)

// ConflictError is raised when a requested slot collides with existing
// bookings or provider-side availability. It carries the conflicting
// bookings and suggested alternatives so callers can render them back to
// the user instead of a generic failure.
type ConflictError struct {
	Code         string
	Message      string
	Conflicts    []models.BookingRecord
	Alternatives []models.TimeSlotSuggestion
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidRecoveryError is raised when recovery is attempted on a booking
// that is not in the error state.
type InvalidRecoveryError struct {
	BookingID string
	State     models.BookingState
}

func (e *InvalidRecoveryError) Error() string {
	return fmt.Sprintf("booking %s cannot be recovered from state %s", e.BookingID, e.State)
}
