package booking

import (
	"context"

	"bookflow/database/repository"
	"bookflow/models"
	"bookflow/services/webhook"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// OrchestrationService is the façade over the booking lifecycle: it creates
// bookings, applies transitions, recovers from error states, and dispatches
// webhook-derived events to the state machine.
type OrchestrationService interface {
	CreateBooking(ctx context.Context, initial models.BookingStateData) (*models.BookingContext, error)
	TransitionBooking(ctx context.Context, bookingID string, event models.BookingEvent, patch models.BookingStateData) (*models.TransitionResult, error)
	RecoverBooking(ctx context.Context, bookingID string, target models.BookingState, patch models.BookingStateData) (*models.TransitionResult, error)
	CancelBooking(ctx context.Context, bookingID, reason, cancelledBy string) (*models.TransitionResult, RefundDecision, error)
	HandleSchedulingWebhook(ctx context.Context, eventType string, body []byte) (*models.TransitionResult, error)
	HandlePaymentWebhook(ctx context.Context, event stripe.Event) (*models.TransitionResult, error)
	GetBooking(ctx context.Context, bookingID string) (*models.BookingContext, error)
	GetHistory(ctx context.Context, bookingID string) ([]models.TransitionResult, error)
}

// ReminderScheduler enqueues a session reminder for a confirmed booking.
// Delivery itself is an external collaborator.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, bc models.BookingContext) error
}

// DefaultOrchestrationService implements OrchestrationService.
type DefaultOrchestrationService struct {
	Machine   *StateMachine
	Store     repository.StateStore
	Repo      repository.BookingRepository // optional: flattened records for conflict queries
	Mapper    *webhook.EventMapper
	Conflicts *ConflictDetector // optional: pre-creation validation
	Refunds   *RefundEngine
	Reminders ReminderScheduler // optional
	Logger    *zap.Logger
}
