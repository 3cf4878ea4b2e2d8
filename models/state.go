package models

// BookingState is the internal lifecycle phase of a booking. Transitions
// between states are owned exclusively by the booking state machine.
type BookingState string

const (
	// Initial phases.
	StateIdle                BookingState = "IDLE"
	StateSessionTypeSelected BookingState = "SESSION_TYPE_SELECTED"

	// Scheduling-provider phases.
	StateSchedulingInitiated BookingState = "SCHEDULING_INITIATED"
	StateEventScheduled      BookingState = "EVENT_SCHEDULED"

	// Payment phases.
	StatePaymentRequired   BookingState = "PAYMENT_REQUIRED"
	StatePaymentPending    BookingState = "PAYMENT_PENDING"
	StatePaymentProcessing BookingState = "PAYMENT_PROCESSING"
	StatePaymentSucceeded  BookingState = "PAYMENT_SUCCEEDED"
	StatePaymentFailed     BookingState = "PAYMENT_FAILED"

	// Confirmation phases.
	StateConfirmed BookingState = "CONFIRMED"
	StateCompleted BookingState = "COMPLETED"

	// Cancellation phases.
	StateCancellationRequested  BookingState = "CANCELLATION_REQUESTED"
	StateCancellationProcessing BookingState = "CANCELLATION_PROCESSING"
	StateCancellationCompleted  BookingState = "CANCELLATION_COMPLETED"

	// Refund phases.
	StateRefundRequired   BookingState = "REFUND_REQUIRED"
	StateRefundProcessing BookingState = "REFUND_PROCESSING"
	StateRefundCompleted  BookingState = "REFUND_COMPLETED"

	// Terminal error state, reachable from anywhere.
	StateError BookingState = "ERROR"
)

// AllBookingStates lists every state; used to validate the status mapping
// and to generate the error edges of the transition table.
var AllBookingStates = []BookingState{
	StateIdle, StateSessionTypeSelected,
	StateSchedulingInitiated, StateEventScheduled,
	StatePaymentRequired, StatePaymentPending, StatePaymentProcessing,
	StatePaymentSucceeded, StatePaymentFailed,
	StateConfirmed, StateCompleted,
	StateCancellationRequested, StateCancellationProcessing, StateCancellationCompleted,
	StateRefundRequired, StateRefundProcessing, StateRefundCompleted,
	StateError,
}

// BookingEvent triggers a state transition.
type BookingEvent string

const (
	// User-initiated events.
	EventSelectSessionType   BookingEvent = "SELECT_SESSION_TYPE"
	EventInitiateScheduling  BookingEvent = "INITIATE_SCHEDULING"
	EventScheduleEvent       BookingEvent = "SCHEDULE_EVENT"
	EventInitiatePayment     BookingEvent = "INITIATE_PAYMENT"
	EventRequestCancellation BookingEvent = "REQUEST_CANCELLATION"

	// System-triggered events.
	EventPaymentSucceeded          BookingEvent = "PAYMENT_SUCCEEDED"
	EventPaymentFailed             BookingEvent = "PAYMENT_FAILED"
	EventSchedulingWebhookReceived BookingEvent = "SCHEDULING_WEBHOOK_RECEIVED"
	EventPaymentWebhookReceived    BookingEvent = "PAYMENT_WEBHOOK_RECEIVED"
	EventMarkCompleted             BookingEvent = "MARK_COMPLETED"
	EventProcessRefund             BookingEvent = "PROCESS_REFUND"
	EventRefundProcessed           BookingEvent = "REFUND_PROCESSED"
	EventErrorOccurred             BookingEvent = "ERROR_OCCURRED"
	EventRecover                   BookingEvent = "RECOVER"

	// EventBookingCreated is never part of the transition table; it marks
	// the creation record in the append-only history.
	EventBookingCreated BookingEvent = "BOOKING_CREATED"
)

// BookingStatus is the externally visible booking status, always derived
// from BookingState.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusFailed    BookingStatus = "failed"
)

// PaymentStatus is the externally visible payment status, always derived
// from BookingState.
type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunding  PaymentStatus = "refunding"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)
