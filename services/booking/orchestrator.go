package booking

import (
	"context"
	"fmt"
	"time"

	"bookflow/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// CreateBooking allocates a booking id if absent, sets the initial Idle
// state, persists the context, and records the creation in history.
func (s *DefaultOrchestrationService) CreateBooking(ctx context.Context, initial models.BookingStateData) (*models.BookingContext, error) {
	if initial.BookingID == "" {
		initial.BookingID = uuid.New().String()
	}
	initial.BookingStatus, initial.PaymentStatus = DeriveStatuses(models.StateIdle)

	bc := &models.BookingContext{
		BookingID: initial.BookingID,
		State:     models.StateIdle,
		StateData: initial,
	}

	if s.Conflicts != nil && initial.BuilderID != "" && !initial.ScheduledStart.IsZero() {
		if err := s.Conflicts.ValidateBookingRequest(ctx, initial.BuilderID, initial.ScheduledStart, initial.ScheduledEnd, "", ""); err != nil {
			return nil, err
		}
	}

	if err := s.Store.SaveContext(ctx, bc); err != nil {
		return nil, err
	}
	creation := models.TransitionResult{
		Success:       true,
		PreviousState: models.StateIdle,
		CurrentState:  models.StateIdle,
		StateData:     bc.StateData,
		Timestamp:     time.Now().UTC(),
		Event:         models.EventBookingCreated,
	}
	if err := s.Store.AppendHistory(ctx, bc.BookingID, creation); err != nil {
		return nil, err
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", bc.BookingID),
		zap.String("sessionTypeId", initial.SessionTypeID),
		zap.String("clientId", initial.ClientID))
	return bc, nil
}

// TransitionBooking loads the booking under its per-key lock, executes the
// transition, and persists the result. A rejected transition is captured in
// history and, unless the event was itself ErrorOccurred, followed by an
// automatic ErrorOccurred transition so the booking lands observably in the
// error state instead of silently sticking.
func (s *DefaultOrchestrationService) TransitionBooking(ctx context.Context, bookingID string, event models.BookingEvent, patch models.BookingStateData) (*models.TransitionResult, error) {
	var result models.TransitionResult
	err := s.Store.WithLock(ctx, bookingID, func() (lockErr error) {
		bc, err := s.Store.GetContext(ctx, bookingID)
		if err != nil {
			return err
		}

		// An unexpected panic inside a transition must not leave the
		// booking unobservable; convert it into an error transition.
		defer func() {
			if r := recover(); r != nil {
				lockErr = s.panicToError(ctx, bc, event, r, &result)
			}
		}()

		result = s.Machine.Transition(bc, event, patch)
		if err := s.Store.AppendHistory(ctx, bookingID, result); err != nil {
			return err
		}
		if result.Success {
			if err := s.Store.SaveContext(ctx, bc); err != nil {
				return err
			}
			// Absorbed redeliveries keep the booking in place; re-running
			// the side effects would double-schedule reminders.
			if result.CurrentState != result.PreviousState {
				s.afterTransition(ctx, bc)
			}
			return nil
		}

		s.Logger.Warn("booking transition rejected",
			zap.String("bookingId", bookingID),
			zap.String("event", string(event)),
			zap.String("state", string(result.PreviousState)),
			zap.String("reason", result.Error))

		if event == models.EventErrorOccurred {
			return nil
		}
		return s.raiseError(ctx, bc, models.LastError{
			Code:    "invalid_transition",
			Message: result.Error,
			At:      time.Now().UTC(),
			Source:  "state_machine",
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecoverBooking is only legal from the error state: it clears the error
// via the Recover transition and then force-sets the operationally chosen
// target state, which is not derivable from the table alone.
func (s *DefaultOrchestrationService) RecoverBooking(ctx context.Context, bookingID string, target models.BookingState, patch models.BookingStateData) (*models.TransitionResult, error) {
	if !IsValidState(target) {
		return nil, fmt.Errorf("unknown recovery target state %q", target)
	}

	var result models.TransitionResult
	err := s.Store.WithLock(ctx, bookingID, func() error {
		bc, err := s.Store.GetContext(ctx, bookingID)
		if err != nil {
			return err
		}
		if bc.State != models.StateError {
			return &InvalidRecoveryError{BookingID: bookingID, State: bc.State}
		}

		result = s.Machine.Transition(bc, models.EventRecover, patch)
		if !result.Success {
			return fmt.Errorf("recovery transition failed: %s", result.Error)
		}

		bc.State = target
		bc.StateData.BookingStatus, bc.StateData.PaymentStatus = DeriveStatuses(target)
		result.CurrentState = target
		result.StateData = bc.StateData

		if err := s.Store.SaveContext(ctx, bc); err != nil {
			return err
		}
		return s.Store.AppendHistory(ctx, bookingID, result)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("booking recovered",
		zap.String("bookingId", bookingID),
		zap.String("targetState", string(target)))
	return &result, nil
}

// CancelBooking computes the refund policy for the booking and drives the
// cancellation transitions accordingly.
func (s *DefaultOrchestrationService) CancelBooking(ctx context.Context, bookingID, reason, cancelledBy string) (*models.TransitionResult, RefundDecision, error) {
	bc, err := s.Store.GetContext(ctx, bookingID)
	if err != nil {
		return nil, RefundDecision{}, err
	}
	decision := s.Refunds.CalculateRefundPolicy(bc.StateData.ScheduledStart, bc.StateData.PaymentStatus, bc.StateData.Amount)

	result, err := s.TransitionBooking(ctx, bookingID, models.EventRequestCancellation, models.BookingStateData{
		CancellationReason: reason,
		CancelledBy:        cancelledBy,
	})
	if err != nil || !result.Success {
		return result, decision, err
	}

	if decision.Policy == RefundNone {
		result, err = s.TransitionBooking(ctx, bookingID, models.EventMarkCompleted, models.BookingStateData{})
		return result, decision, err
	}
	result, err = s.TransitionBooking(ctx, bookingID, models.EventProcessRefund, models.BookingStateData{
		RefundAmount: decision.Amount,
	})
	return result, decision, err
}

// HandleSchedulingWebhook dispatches a scheduling-provider webhook to the
// state machine. Webhooks without an extractable booking id are
// acknowledged but ignored: unrelated events must not error the endpoint.
func (s *DefaultOrchestrationService) HandleSchedulingWebhook(ctx context.Context, eventType string, body []byte) (*models.TransitionResult, error) {
	mapped, err := s.Mapper.MapSchedulingEvent(eventType, body)
	if err != nil {
		return nil, err
	}
	if mapped == nil {
		return nil, nil
	}
	return s.TransitionBooking(ctx, mapped.BookingID, mapped.Event, mapped.Patch)
}

// HandlePaymentWebhook dispatches a payment-provider webhook event.
func (s *DefaultOrchestrationService) HandlePaymentWebhook(ctx context.Context, event stripe.Event) (*models.TransitionResult, error) {
	mapped, err := s.Mapper.MapPaymentEvent(event)
	if err != nil {
		return nil, err
	}
	if mapped == nil {
		return nil, nil
	}
	return s.TransitionBooking(ctx, mapped.BookingID, mapped.Event, mapped.Patch)
}

// GetBooking loads the authoritative context for a booking.
func (s *DefaultOrchestrationService) GetBooking(ctx context.Context, bookingID string) (*models.BookingContext, error) {
	return s.Store.GetContext(ctx, bookingID)
}

// GetHistory returns the append-only transition history for a booking.
func (s *DefaultOrchestrationService) GetHistory(ctx context.Context, bookingID string) ([]models.TransitionResult, error) {
	return s.Store.GetHistory(ctx, bookingID)
}

// raiseError executes and persists an ErrorOccurred transition carrying the
// failure details. Called with the booking lock held.
func (s *DefaultOrchestrationService) raiseError(ctx context.Context, bc *models.BookingContext, lastErr models.LastError) error {
	errResult := s.Machine.Transition(bc, models.EventErrorOccurred, models.BookingStateData{LastError: &lastErr})
	if !errResult.Success {
		// Already in the error state; nothing further to record.
		return nil
	}
	if err := s.Store.SaveContext(ctx, bc); err != nil {
		return err
	}
	return s.Store.AppendHistory(ctx, bc.BookingID, errResult)
}

func (s *DefaultOrchestrationService) panicToError(ctx context.Context, bc *models.BookingContext, event models.BookingEvent, recovered interface{}, result *models.TransitionResult) error {
	s.Logger.Error("panic during booking transition",
		zap.String("bookingId", bc.BookingID),
		zap.String("event", string(event)),
		zap.Any("panic", recovered))
	*result = models.TransitionResult{
		Success:       false,
		PreviousState: bc.State,
		CurrentState:  bc.State,
		StateData:     bc.StateData,
		Timestamp:     time.Now().UTC(),
		Event:         event,
		Error:         fmt.Sprintf("panic: %v", recovered),
	}
	return s.raiseError(ctx, bc, models.LastError{
		Code:    "internal_error",
		Message: fmt.Sprintf("panic during transition: %v", recovered),
		At:      time.Now().UTC(),
		Source:  "orchestrator",
	})
}

// afterTransition syncs the flattened booking record and schedules
// reminders. Failures here are logged, never propagated: the authoritative
// state is already persisted.
func (s *DefaultOrchestrationService) afterTransition(ctx context.Context, bc *models.BookingContext) {
	if s.Repo != nil {
		switch bc.State {
		case models.StateEventScheduled:
			s.syncRecord(ctx, bc, models.BookingStatusPending)
		case models.StateConfirmed:
			s.syncRecord(ctx, bc, models.BookingStatusConfirmed)
		case models.StateCompleted:
			s.syncRecord(ctx, bc, models.BookingStatusCompleted)
		case models.StateCancellationProcessing, models.StateCancellationCompleted,
			models.StateRefundRequired, models.StateRefundProcessing, models.StateRefundCompleted:
			s.syncRecord(ctx, bc, models.BookingStatusCancelled)
		}
	}

	if s.Reminders != nil && bc.State == models.StateConfirmed {
		if err := s.Reminders.ScheduleReminder(ctx, *bc); err != nil {
			s.Logger.Warn("failed to schedule session reminder",
				zap.String("bookingId", bc.BookingID), zap.Error(err))
		}
	}
}

func (s *DefaultOrchestrationService) syncRecord(ctx context.Context, bc *models.BookingContext, status models.BookingStatus) {
	record := models.BookingRecord{
		ID:        bc.BookingID,
		BuilderID: bc.StateData.BuilderID,
		ClientID:  bc.StateData.ClientID,
		Start:     bc.StateData.ScheduledStart,
		End:       bc.StateData.ScheduledEnd,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Upsert(ctx, record); err != nil {
		s.Logger.Warn("failed to sync booking record",
			zap.String("bookingId", bc.BookingID), zap.Error(err))
	}
}
