package booking

import (
	"context"
	"testing"
	"time"

	"bookflow/database/repository"
	"bookflow/models"
	"bookflow/services/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*DefaultOrchestrationService, *repository.MemoryStateStore) {
	t.Helper()
	store := repository.NewMemoryStateStore()
	svc := &DefaultOrchestrationService{
		Machine: NewStateMachine(),
		Store:   store,
		Repo:    repository.NewMemoryBookingRepo(),
		Mapper:  webhook.NewEventMapper(zap.NewNop()),
		Refunds: NewRefundEngine(),
		Logger:  zap.NewNop(),
	}
	return svc, store
}

func TestHappyPathEndsConfirmedWithFullHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)
	require.NotEmpty(t, bc.BookingID)
	assert.Equal(t, models.StateIdle, bc.State)

	start := time.Now().Add(48 * time.Hour).UTC()
	steps := []struct {
		event models.BookingEvent
		patch models.BookingStateData
	}{
		{models.EventInitiateScheduling, models.BookingStateData{}},
		{models.EventSchedulingWebhookReceived, models.BookingStateData{
			SchedulingEventID: "e1",
			ScheduledStart:    start,
			ScheduledEnd:      start.Add(time.Hour),
		}},
		{models.EventInitiatePayment, models.BookingStateData{}},
		{models.EventPaymentSucceeded, models.BookingStateData{PaymentSessionID: "pay1"}},
	}
	for _, step := range steps {
		result, err := svc.TransitionBooking(ctx, bc.BookingID, step.event, step.patch)
		require.NoError(t, err)
		require.True(t, result.Success, "event %s rejected: %s", step.event, result.Error)
	}

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, final.State)
	assert.Equal(t, models.BookingStatusConfirmed, final.StateData.BookingStatus)
	assert.Equal(t, models.PaymentStatusPaid, final.StateData.PaymentStatus)
	assert.Equal(t, "pay1", final.StateData.PaymentSessionID)

	history, err := svc.GetHistory(ctx, bc.BookingID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, models.EventBookingCreated, history[0].Event)
	assert.Equal(t, models.StateConfirmed, history[4].CurrentState)
}

func TestRejectedTransitionLandsInErrorState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)

	// MarkCompleted is not legal from Idle.
	result, err := svc.TransitionBooking(ctx, bc.BookingID, models.EventMarkCompleted, models.BookingStateData{})
	require.NoError(t, err)
	assert.False(t, result.Success)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateError, final.State)
	require.NotNil(t, final.StateData.LastError)
	assert.Equal(t, "invalid_transition", final.StateData.LastError.Code)

	// History holds the failed attempt plus the automatic error transition.
	history, err := svc.GetHistory(ctx, bc.BookingID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.False(t, history[1].Success)
	assert.Equal(t, models.EventErrorOccurred, history[2].Event)
}

func TestRecoverBooking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)

	// Not recoverable before entering the error state.
	_, err = svc.RecoverBooking(ctx, bc.BookingID, models.StateIdle, models.BookingStateData{})
	var recoveryErr *InvalidRecoveryError
	require.ErrorAs(t, err, &recoveryErr)

	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventErrorOccurred, models.BookingStateData{
		LastError: &models.LastError{Code: "boom", Message: "it broke"},
	})
	require.NoError(t, err)

	result, err := svc.RecoverBooking(ctx, bc.BookingID, models.StateEventScheduled, models.BookingStateData{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.StateEventScheduled, result.CurrentState)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEventScheduled, final.State)
	assert.Nil(t, final.StateData.LastError)
	assert.Equal(t, models.BookingStatusPending, final.StateData.BookingStatus)
}

func TestRecoverRejectsUnknownTarget(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecoverBooking(context.Background(), "bk-x", models.BookingState("NOT_A_STATE"), models.BookingStateData{})
	require.Error(t, err)
}

func TestSchedulingWebhookWithoutBookingIDIsIgnored(t *testing.T) {
	svc, _ := newTestService(t)

	body := []byte(`{"event":"invitee.created","payload":{"uri":"inv-1","tracking":{}}}`)
	result, err := svc.HandleSchedulingWebhook(context.Background(), "invitee.created", body)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSchedulingWebhookDrivesTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiateScheduling, models.BookingStateData{})
	require.NoError(t, err)

	start := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(73 * time.Hour).UTC().Format(time.RFC3339)
	body := []byte(`{
		"event": "invitee.created",
		"payload": {
			"uri": "inv-1",
			"scheduled_event": {"uri": "evt-1", "start_time": "` + start + `", "end_time": "` + end + `"},
			"tracking": {"utm_content": "` + bc.BookingID + `"}
		}
	}`)

	result, err := svc.HandleSchedulingWebhook(ctx, "invitee.created", body)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.Success)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEventScheduled, final.State)
	assert.Equal(t, "evt-1", final.StateData.SchedulingEventID)
}

func TestRedeliveredSchedulingWebhookKeepsBookingConfirmed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiateScheduling, models.BookingStateData{})
	require.NoError(t, err)

	start := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(73 * time.Hour).UTC().Format(time.RFC3339)
	body := []byte(`{
		"event": "invitee.created",
		"payload": {
			"uri": "inv-1",
			"scheduled_event": {"uri": "evt-1", "start_time": "` + start + `", "end_time": "` + end + `"},
			"tracking": {"utm_content": "` + bc.BookingID + `"}
		}
	}`)

	result, err := svc.HandleSchedulingWebhook(ctx, "invitee.created", body)
	require.NoError(t, err)
	require.True(t, result.Success)

	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiatePayment, models.BookingStateData{})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventPaymentSucceeded, models.BookingStateData{PaymentSessionID: "pay1"})
	require.NoError(t, err)

	// The provider redelivers the identical invitee.created payload after
	// the booking has been paid and confirmed.
	result, err = svc.HandleSchedulingWebhook(ctx, "invitee.created", body)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, models.StateConfirmed, result.PreviousState)
	assert.Equal(t, models.StateConfirmed, result.CurrentState)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, final.State)
	assert.Equal(t, models.BookingStatusConfirmed, final.StateData.BookingStatus)
	assert.Equal(t, models.PaymentStatusPaid, final.StateData.PaymentStatus)
	assert.Nil(t, final.StateData.LastError)
}

func TestCancelWebhookAfterAPICancelDoesNotErrorBooking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)

	start := time.Now().Add(72 * time.Hour).UTC()
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiateScheduling, models.BookingStateData{})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventSchedulingWebhookReceived, models.BookingStateData{
		SchedulingEventID: "e1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiatePayment, models.BookingStateData{})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventPaymentSucceeded, models.BookingStateData{Amount: 100})
	require.NoError(t, err)

	_, _, err = svc.CancelBooking(ctx, bc.BookingID, "schedule change", "client")
	require.NoError(t, err)

	// The provider's own cancel webhook arrives after the API-side cancel
	// has already moved the booking into the refund phase.
	body := []byte(`{
		"event": "invitee.canceled",
		"payload": {
			"uri": "inv-1",
			"tracking": {"utm_content": "` + bc.BookingID + `"},
			"cancellation": {"canceled_by": "client", "reason": "schedule change"}
		}
	}`)
	result, err := svc.HandleSchedulingWebhook(ctx, "invitee.canceled", body)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, models.StateRefundRequired, result.CurrentState)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRefundRequired, final.State)
	assert.Equal(t, models.BookingStatusCancelled, final.StateData.BookingStatus)
	assert.Nil(t, final.StateData.LastError)
}

func TestCancelBookingWithFullRefund(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)

	start := time.Now().Add(72 * time.Hour).UTC()
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiateScheduling, models.BookingStateData{})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventSchedulingWebhookReceived, models.BookingStateData{
		SchedulingEventID: "e1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiatePayment, models.BookingStateData{})
	require.NoError(t, err)
	_, err = svc.TransitionBooking(ctx, bc.BookingID, models.EventPaymentSucceeded, models.BookingStateData{Amount: 100})
	require.NoError(t, err)

	result, decision, err := svc.CancelBooking(ctx, bc.BookingID, "schedule change", "client")
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, RefundFull, decision.Policy)
	assert.Equal(t, 100.0, decision.Amount)

	final, err := svc.GetBooking(ctx, bc.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRefundRequired, final.State)
	assert.Equal(t, models.BookingStatusCancelled, final.StateData.BookingStatus)
	assert.Equal(t, "schedule change", final.StateData.CancellationReason)
}

func TestConcurrentTransitionsAreSerialized(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bc, err := svc.CreateBooking(ctx, models.BookingStateData{SessionTypeID: "s1", ClientID: "c1"})
	require.NoError(t, err)

	// Two racing attempts of the same event: exactly one must win.
	done := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			result, err := svc.TransitionBooking(ctx, bc.BookingID, models.EventInitiateScheduling, models.BookingStateData{})
			done <- err == nil && result.Success
		}()
	}
	first, second := <-done, <-done
	assert.True(t, first != second, "exactly one racing transition should succeed")
}
