package booking

import (
	"fmt"

	"bookflow/models"
)

// statusPair is the externally visible (bookingStatus, paymentStatus)
// derived for a state.
type statusPair struct {
	Booking models.BookingStatus
	Payment models.PaymentStatus
}

// stateStatusMap is the only source of derived statuses. Every state must
// have an entry; ValidateTables enforces this at startup so status drift is
// impossible.
var stateStatusMap = map[models.BookingState]statusPair{
	models.StateIdle:                {models.BookingStatusPending, models.PaymentStatusUnpaid},
	models.StateSessionTypeSelected: {models.BookingStatusPending, models.PaymentStatusUnpaid},
	models.StateSchedulingInitiated: {models.BookingStatusPending, models.PaymentStatusUnpaid},
	models.StateEventScheduled:      {models.BookingStatusPending, models.PaymentStatusUnpaid},
	models.StatePaymentRequired:     {models.BookingStatusPending, models.PaymentStatusUnpaid},
	models.StatePaymentPending:      {models.BookingStatusPending, models.PaymentStatusPending},
	models.StatePaymentProcessing:   {models.BookingStatusPending, models.PaymentStatusProcessing},
	models.StatePaymentSucceeded:    {models.BookingStatusConfirmed, models.PaymentStatusPaid},
	models.StatePaymentFailed:       {models.BookingStatusPending, models.PaymentStatusFailed},
	models.StateConfirmed:           {models.BookingStatusConfirmed, models.PaymentStatusPaid},
	models.StateCompleted:           {models.BookingStatusCompleted, models.PaymentStatusPaid},

	models.StateCancellationRequested:  {models.BookingStatusConfirmed, models.PaymentStatusPaid},
	models.StateCancellationProcessing: {models.BookingStatusCancelled, models.PaymentStatusPaid},
	models.StateCancellationCompleted:  {models.BookingStatusCancelled, models.PaymentStatusRefunded},

	models.StateRefundRequired:   {models.BookingStatusCancelled, models.PaymentStatusPaid},
	models.StateRefundProcessing: {models.BookingStatusCancelled, models.PaymentStatusRefunding},
	models.StateRefundCompleted:  {models.BookingStatusCancelled, models.PaymentStatusRefunded},

	models.StateError: {models.BookingStatusFailed, models.PaymentStatusFailed},
}

// transitionKey identifies one edge of the state machine.
type transitionKey struct {
	From  models.BookingState
	Event models.BookingEvent
}

// guardFn decides whether a transition may fire. Evaluated against the
// state data with the patch already merged.
type guardFn func(models.BookingStateData) bool

// stateTransition is one legal edge, optionally guarded.
type stateTransition struct {
	To    models.BookingState
	Guard guardFn
}

func hasSessionType(d models.BookingStateData) bool { return d.SessionTypeID != "" }
func hasScheduledEvent(d models.BookingStateData) bool {
	return d.SchedulingEventID != "" && !d.ScheduledStart.IsZero()
}

// transitionTable is the single source of truth for legality: an event not
// present for the current state is rejected, never silently ignored.
var transitionTable = buildTransitionTable()

func buildTransitionTable() map[transitionKey]stateTransition {
	t := map[transitionKey]stateTransition{
		// Session-type selection / scheduling kickoff.
		{models.StateIdle, models.EventSelectSessionType}:                 {To: models.StateSessionTypeSelected},
		{models.StateIdle, models.EventInitiateScheduling}:                {To: models.StateSchedulingInitiated, Guard: hasSessionType},
		{models.StateSessionTypeSelected, models.EventInitiateScheduling}: {To: models.StateSchedulingInitiated},

		// Scheduling-provider phases.
		{models.StateSchedulingInitiated, models.EventScheduleEvent}:             {To: models.StateEventScheduled},
		{models.StateSchedulingInitiated, models.EventSchedulingWebhookReceived}: {To: models.StateEventScheduled, Guard: hasScheduledEvent},

		// Payment phases.
		{models.StateEventScheduled, models.EventInitiatePayment}:          {To: models.StatePaymentPending},
		{models.StatePaymentRequired, models.EventInitiatePayment}:         {To: models.StatePaymentPending},
		{models.StatePaymentFailed, models.EventInitiatePayment}:           {To: models.StatePaymentPending},
		{models.StateEventScheduled, models.EventPaymentWebhookReceived}:   {To: models.StatePaymentProcessing},
		{models.StatePaymentPending, models.EventPaymentWebhookReceived}:   {To: models.StatePaymentProcessing},
		{models.StatePaymentPending, models.EventPaymentSucceeded}:         {To: models.StateConfirmed},
		{models.StatePaymentProcessing, models.EventPaymentSucceeded}:      {To: models.StateConfirmed},
		{models.StatePaymentPending, models.EventPaymentFailed}:            {To: models.StatePaymentFailed},
		{models.StatePaymentProcessing, models.EventPaymentFailed}:         {To: models.StatePaymentFailed},
		{models.StatePaymentSucceeded, models.EventPaymentWebhookReceived}: {To: models.StateConfirmed},

		// Completion.
		{models.StateConfirmed, models.EventMarkCompleted}: {To: models.StateCompleted},

		// Cancellation phases. The provider's invitee cancel webhook maps to
		// RequestCancellation, so arriving after an API-side cancel it confirms
		// the requested cancellation instead of re-requesting it.
		{models.StateEventScheduled, models.EventRequestCancellation}:        {To: models.StateCancellationRequested},
		{models.StatePaymentPending, models.EventRequestCancellation}:        {To: models.StateCancellationRequested},
		{models.StateConfirmed, models.EventRequestCancellation}:             {To: models.StateCancellationRequested},
		{models.StateCancellationRequested, models.EventRequestCancellation}: {To: models.StateCancellationProcessing},
		{models.StateCancellationRequested, models.EventMarkCompleted}:       {To: models.StateCancellationCompleted},
		{models.StateCancellationProcessing, models.EventMarkCompleted}:      {To: models.StateCancellationCompleted},

		// Refund phases.
		{models.StateCancellationRequested, models.EventProcessRefund}:   {To: models.StateRefundRequired},
		{models.StateCancellationProcessing, models.EventProcessRefund}:  {To: models.StateRefundRequired},
		{models.StateRefundRequired, models.EventPaymentWebhookReceived}: {To: models.StateRefundProcessing},
		{models.StateRefundRequired, models.EventProcessRefund}:          {To: models.StateRefundProcessing},
		{models.StateRefundProcessing, models.EventRefundProcessed}:      {To: models.StateRefundCompleted},

		// Recovery; the orchestrator force-sets the operational target
		// state afterwards.
		{models.StateError, models.EventRecover}: {To: models.StateIdle},
	}

	// Error is reachable from every non-error state.
	for _, state := range models.AllBookingStates {
		if state == models.StateError {
			continue
		}
		t[transitionKey{state, models.EventErrorOccurred}] = stateTransition{To: models.StateError}
	}

	// Providers redeliver webhooks. In a state the webhook-borne event has
	// already advanced past, a redelivery is absorbed in place instead of
	// erroring the booking.
	absorbed := map[models.BookingEvent][]models.BookingState{
		models.EventSchedulingWebhookReceived: {
			models.StateEventScheduled, models.StatePaymentRequired,
			models.StatePaymentPending, models.StatePaymentProcessing,
			models.StatePaymentSucceeded, models.StatePaymentFailed,
			models.StateConfirmed, models.StateCompleted,
			models.StateCancellationRequested, models.StateCancellationProcessing,
			models.StateCancellationCompleted, models.StateRefundRequired,
			models.StateRefundProcessing, models.StateRefundCompleted,
		},
		models.EventPaymentWebhookReceived: {
			models.StatePaymentProcessing, models.StateConfirmed,
			models.StateCompleted, models.StateCancellationRequested,
			models.StateCancellationProcessing, models.StateCancellationCompleted,
			models.StateRefundProcessing, models.StateRefundCompleted,
		},
		models.EventPaymentSucceeded: {
			models.StateConfirmed, models.StateCompleted,
		},
		models.EventPaymentFailed: {
			models.StatePaymentFailed, models.StateConfirmed, models.StateCompleted,
		},
		models.EventRequestCancellation: {
			models.StateCompleted, models.StateCancellationProcessing,
			models.StateCancellationCompleted, models.StateRefundRequired,
			models.StateRefundProcessing, models.StateRefundCompleted,
		},
		models.EventRefundProcessed: {
			models.StateRefundCompleted,
		},
	}
	for event, states := range absorbed {
		for _, state := range states {
			key := transitionKey{state, event}
			if _, ok := t[key]; !ok {
				t[key] = stateTransition{To: state}
			}
		}
	}
	return t
}

// ValidateTables verifies at startup that the status mapping covers every
// state and that every transition targets a mapped state.
func ValidateTables() error {
	for _, state := range models.AllBookingStates {
		if _, ok := stateStatusMap[state]; !ok {
			return fmt.Errorf("state %s has no status mapping", state)
		}
	}
	for key, tr := range transitionTable {
		if _, ok := stateStatusMap[tr.To]; !ok {
			return fmt.Errorf("transition (%s, %s) targets unmapped state %s", key.From, key.Event, tr.To)
		}
	}
	return nil
}

// IsValidState reports whether the state is part of the lifecycle.
func IsValidState(state models.BookingState) bool {
	_, ok := stateStatusMap[state]
	return ok
}

// DeriveStatuses returns the externally visible statuses for a state.
func DeriveStatuses(state models.BookingState) (models.BookingStatus, models.PaymentStatus) {
	pair := stateStatusMap[state]
	return pair.Booking, pair.Payment
}
