package models

import "time"

// BookingStateData is the mutable payload carried alongside a booking's
// state. The derived BookingStatus/PaymentStatus fields are recomputed from
// the state on every transition and must never be set independently.
type BookingStateData struct {
	BookingID     string `bson:"booking_id" json:"bookingId"`
	BuilderID     string `bson:"builder_id" json:"builderId"` // provider-side actor being booked
	ClientID      string `bson:"client_id" json:"clientId"`
	SessionTypeID string `bson:"session_type_id" json:"sessionTypeId"`

	ScheduledStart time.Time `bson:"scheduled_start,omitempty" json:"scheduledStart,omitempty"`
	ScheduledEnd   time.Time `bson:"scheduled_end,omitempty" json:"scheduledEnd,omitempty"`
	Timezone       string    `bson:"timezone,omitempty" json:"timezone,omitempty"`

	// Scheduling-provider references.
	SchedulingEventID   string `bson:"scheduling_event_id,omitempty" json:"schedulingEventId,omitempty"`
	SchedulingInviteeID string `bson:"scheduling_invitee_id,omitempty" json:"schedulingInviteeId,omitempty"`

	// Payment-provider references.
	PaymentSessionID string  `bson:"payment_session_id,omitempty" json:"paymentSessionId,omitempty"`
	PaymentIntentID  string  `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	Amount           float64 `bson:"amount,omitempty" json:"amount,omitempty"`
	Currency         string  `bson:"currency,omitempty" json:"currency,omitempty"`

	// Derived statuses; pure functions of the booking state.
	BookingStatus BookingStatus `bson:"booking_status" json:"bookingStatus"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"paymentStatus"`

	// Cancellation metadata.
	CancellationReason string    `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	CancelledBy        string    `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`
	CancelledAt        time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`

	// Refund metadata.
	RefundAmount float64 `bson:"refund_amount,omitempty" json:"refundAmount,omitempty"`
	RefundID     string  `bson:"refund_id,omitempty" json:"refundId,omitempty"`

	ConfirmedAt time.Time  `bson:"confirmed_at,omitempty" json:"confirmedAt,omitempty"`
	LastError   *LastError `bson:"last_error,omitempty" json:"lastError,omitempty"`
}

// LastError captures the most recent failure observed for a booking.
type LastError struct {
	Code    string    `bson:"code" json:"code"`
	Message string    `bson:"message" json:"message"`
	At      time.Time `bson:"at" json:"at"`
	Source  string    `bson:"source" json:"source"` // "scheduling", "payment", "state_machine", ...
}

// BookingContext is the authoritative unit the orchestration service owns
// for a single booking during a transition. The state store is the only
// long-lived holder between requests.
type BookingContext struct {
	BookingID string           `bson:"booking_id" json:"bookingId"`
	State     BookingState     `bson:"state" json:"state"`
	StateData BookingStateData `bson:"state_data" json:"stateData"`
}

// TransitionResult is returned by every transition attempt, successful or
// not, and is the unit appended to the booking's history.
type TransitionResult struct {
	Success       bool             `bson:"success" json:"success"`
	PreviousState BookingState     `bson:"previous_state" json:"previousState"`
	CurrentState  BookingState     `bson:"current_state" json:"currentState"`
	StateData     BookingStateData `bson:"state_data" json:"stateData"`
	Timestamp     time.Time        `bson:"timestamp" json:"timestamp"`
	Event         BookingEvent     `bson:"event" json:"event"`
	Error         string           `bson:"error,omitempty" json:"error,omitempty"`
}

// BookingRecord is the flattened booking row persisted for conflict
// queries. Written when a booking reaches Confirmed and updated as the
// lifecycle progresses.
type BookingRecord struct {
	ID        string        `bson:"id" json:"id"`
	BuilderID string        `bson:"builder_id" json:"builderId"`
	ClientID  string        `bson:"client_id" json:"clientId"`
	Start     time.Time     `bson:"start" json:"start"`
	End       time.Time     `bson:"end" json:"end"`
	Status    BookingStatus `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}
