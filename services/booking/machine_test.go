package booking

import (
	"testing"
	"time"

	"bookflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(state models.BookingState) *models.BookingContext {
	data := models.BookingStateData{
		BookingID:     "bk-1",
		SessionTypeID: "s1",
		ClientID:      "c1",
	}
	data.BookingStatus, data.PaymentStatus = DeriveStatuses(state)
	return &models.BookingContext{BookingID: "bk-1", State: state, StateData: data}
}

func TestValidateTables(t *testing.T) {
	require.NoError(t, ValidateTables())
}

func TestTransitionRejectsUnknownPairs(t *testing.T) {
	machine := NewStateMachine()

	cases := []struct {
		state models.BookingState
		event models.BookingEvent
	}{
		{models.StateIdle, models.EventPaymentSucceeded},
		{models.StateIdle, models.EventMarkCompleted},
		{models.StateConfirmed, models.EventInitiatePayment},
		{models.StateCompleted, models.EventInitiatePayment},
		{models.StateError, models.EventInitiateScheduling},
	}
	for _, tc := range cases {
		bc := newContext(tc.state)
		before := bc.StateData

		result := machine.Transition(bc, tc.event, models.BookingStateData{})

		assert.False(t, result.Success, "(%s, %s) should be rejected", tc.state, tc.event)
		assert.Equal(t, tc.state, result.CurrentState)
		assert.Equal(t, tc.state, bc.State, "context must be untouched")
		assert.Equal(t, before, bc.StateData, "state data must be untouched")
		assert.Contains(t, result.Error, "invalid transition")
	}
}

func TestRedeliveredWebhookEventsAreAbsorbedInPlace(t *testing.T) {
	machine := NewStateMachine()

	cases := []struct {
		state models.BookingState
		event models.BookingEvent
	}{
		{models.StateConfirmed, models.EventSchedulingWebhookReceived},
		{models.StateCompleted, models.EventSchedulingWebhookReceived},
		{models.StateConfirmed, models.EventPaymentWebhookReceived},
		{models.StateConfirmed, models.EventPaymentSucceeded},
		{models.StateCancellationProcessing, models.EventRequestCancellation},
		{models.StateRefundRequired, models.EventRequestCancellation},
		{models.StateRefundCompleted, models.EventRefundProcessed},
	}
	for _, tc := range cases {
		bc := newContext(tc.state)

		result := machine.Transition(bc, tc.event, models.BookingStateData{})

		assert.True(t, result.Success, "(%s, %s) should be absorbed", tc.state, tc.event)
		assert.Equal(t, tc.state, result.CurrentState)
		assert.Equal(t, tc.state, bc.State, "booking must stay in place")
	}
}

func TestProviderCancelWebhookConfirmsRequestedCancellation(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StateCancellationRequested)

	result := machine.Transition(bc, models.EventRequestCancellation, models.BookingStateData{})

	require.True(t, result.Success)
	assert.Equal(t, models.StateCancellationProcessing, bc.State)
	assert.Equal(t, models.BookingStatusCancelled, bc.StateData.BookingStatus)
}

func TestTransitionMergesPatchAndDerivesStatuses(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StateSchedulingInitiated)

	start := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	result := machine.Transition(bc, models.EventSchedulingWebhookReceived, models.BookingStateData{
		SchedulingEventID: "evt-1",
		ScheduledStart:    start,
		ScheduledEnd:      start.Add(time.Hour),
	})

	require.True(t, result.Success)
	assert.Equal(t, models.StateEventScheduled, bc.State)
	assert.Equal(t, "evt-1", bc.StateData.SchedulingEventID)
	assert.Equal(t, start, bc.StateData.ScheduledStart)
	assert.Equal(t, models.BookingStatusPending, bc.StateData.BookingStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, bc.StateData.PaymentStatus)
}

func TestGuardRejectsSchedulingWebhookWithoutEvent(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StateSchedulingInitiated)

	result := machine.Transition(bc, models.EventSchedulingWebhookReceived, models.BookingStateData{})

	assert.False(t, result.Success)
	assert.Equal(t, models.StateSchedulingInitiated, bc.State)
	assert.Contains(t, result.Error, "guard")
}

func TestGuardRejectsSchedulingWithoutSessionType(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StateIdle)
	bc.StateData.SessionTypeID = ""

	result := machine.Transition(bc, models.EventInitiateScheduling, models.BookingStateData{})
	assert.False(t, result.Success)

	// Supplying the session type in the patch satisfies the guard.
	result = machine.Transition(bc, models.EventInitiateScheduling, models.BookingStateData{SessionTypeID: "s1"})
	assert.True(t, result.Success)
	assert.Equal(t, models.StateSchedulingInitiated, bc.State)
}

func TestDerivedStatusMapping(t *testing.T) {
	cases := map[models.BookingState]struct {
		booking models.BookingStatus
		payment models.PaymentStatus
	}{
		models.StateIdle:                  {models.BookingStatusPending, models.PaymentStatusUnpaid},
		models.StatePaymentPending:        {models.BookingStatusPending, models.PaymentStatusPending},
		models.StatePaymentSucceeded:      {models.BookingStatusConfirmed, models.PaymentStatusPaid},
		models.StatePaymentFailed:         {models.BookingStatusPending, models.PaymentStatusFailed},
		models.StateConfirmed:             {models.BookingStatusConfirmed, models.PaymentStatusPaid},
		models.StateCompleted:             {models.BookingStatusCompleted, models.PaymentStatusPaid},
		models.StateCancellationCompleted: {models.BookingStatusCancelled, models.PaymentStatusRefunded},
		models.StateRefundProcessing:      {models.BookingStatusCancelled, models.PaymentStatusRefunding},
		models.StateRefundCompleted:       {models.BookingStatusCancelled, models.PaymentStatusRefunded},
		models.StateError:                 {models.BookingStatusFailed, models.PaymentStatusFailed},
	}
	for state, want := range cases {
		bookingStatus, paymentStatus := DeriveStatuses(state)
		assert.Equal(t, want.booking, bookingStatus, "booking status for %s", state)
		assert.Equal(t, want.payment, paymentStatus, "payment status for %s", state)
	}

	// Every state has a mapping entry.
	for _, state := range models.AllBookingStates {
		assert.True(t, IsValidState(state), "state %s must be mapped", state)
	}
}

func TestErrorReachableFromEverywhere(t *testing.T) {
	machine := NewStateMachine()
	for _, state := range models.AllBookingStates {
		if state == models.StateError {
			continue
		}
		bc := newContext(state)
		result := machine.Transition(bc, models.EventErrorOccurred, models.BookingStateData{
			LastError: &models.LastError{Code: "boom", Message: "it broke", At: time.Now(), Source: "test"},
		})
		require.True(t, result.Success, "ErrorOccurred must be legal from %s", state)
		assert.Equal(t, models.StateError, bc.State)
		require.NotNil(t, bc.StateData.LastError)
		assert.Equal(t, "boom", bc.StateData.LastError.Code)
	}
}

func TestRecoverClearsLastError(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StateError)
	bc.StateData.LastError = &models.LastError{Code: "boom", Message: "it broke"}

	result := machine.Transition(bc, models.EventRecover, models.BookingStateData{})

	require.True(t, result.Success)
	assert.Nil(t, bc.StateData.LastError)
}

func TestConfirmedEntryHookStampsConfirmedAt(t *testing.T) {
	machine := NewStateMachine()
	bc := newContext(models.StatePaymentPending)

	result := machine.Transition(bc, models.EventPaymentSucceeded, models.BookingStateData{PaymentSessionID: "pay1"})

	require.True(t, result.Success)
	assert.Equal(t, models.StateConfirmed, bc.State)
	assert.False(t, bc.StateData.ConfirmedAt.IsZero())
}
