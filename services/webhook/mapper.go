package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookflow/models"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// Recognized provider event types.
const (
	SchedulingInviteeCreated  = "invitee.created"
	SchedulingInviteeCanceled = "invitee.canceled"

	PaymentCheckoutCompleted = "checkout.session.completed"
	PaymentCheckoutExpired   = "checkout.session.expired"
	PaymentIntentSucceeded   = "payment_intent.succeeded"
	PaymentIntentFailed      = "payment_intent.payment_failed"
)

// bookingRefQuestion is the fallback custom question carrying the booking
// id when tracking parameters were stripped from the scheduling link.
const bookingRefQuestion = "booking reference"

// MappedEvent is the internal translation of a raw provider webhook: the
// state-machine event plus the state-data fragment extracted from the
// payload. A nil MappedEvent means the webhook is acknowledged but not
// actionable.
type MappedEvent struct {
	BookingID string
	Event     models.BookingEvent
	Patch     models.BookingStateData
	Source    string
}

// EventMapper translates raw provider payloads into internal state-machine
// events. The state machine never sees provider shapes.
type EventMapper struct {
	logger *zap.Logger
}

func NewEventMapper(logger *zap.Logger) *EventMapper {
	return &EventMapper{logger: logger}
}

// MapSchedulingEvent translates a scheduling-provider webhook. The booking
// id is recovered from the UTM tracking parameters embedded in the
// scheduling link, with a custom question/answer pair as fallback.
func (m *EventMapper) MapSchedulingEvent(eventType string, body []byte) (*MappedEvent, error) {
	var hook models.SchedulingWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("failed to parse scheduling webhook: %w", err)
	}
	if eventType == "" {
		eventType = hook.Event
	}

	bookingID := extractBookingID(hook.Payload)
	if bookingID == "" {
		m.logger.Info("scheduling webhook without booking correlation, ignoring",
			zap.String("eventType", eventType))
		return nil, nil
	}

	switch eventType {
	case SchedulingInviteeCreated:
		return &MappedEvent{
			BookingID: bookingID,
			Event:     models.EventSchedulingWebhookReceived,
			Source:    "scheduling",
			Patch: models.BookingStateData{
				SchedulingEventID:   hook.Payload.ScheduledEvent.URI,
				SchedulingInviteeID: hook.Payload.URI,
				ScheduledStart:      hook.Payload.ScheduledEvent.StartTime,
				ScheduledEnd:        hook.Payload.ScheduledEvent.EndTime,
				Timezone:            hook.Payload.Timezone,
			},
		}, nil
	case SchedulingInviteeCanceled:
		patch := models.BookingStateData{CancelledAt: time.Now().UTC()}
		if c := hook.Payload.Cancellation; c != nil {
			patch.CancellationReason = c.Reason
			patch.CancelledBy = c.CanceledBy
		}
		return &MappedEvent{
			BookingID: bookingID,
			Event:     models.EventRequestCancellation,
			Source:    "scheduling",
			Patch:     patch,
		}, nil
	default:
		m.logger.Info("unrecognized scheduling webhook event, ignoring",
			zap.String("eventType", eventType))
		return nil, nil
	}
}

// MapPaymentEvent translates a payment-provider webhook event. The booking
// id is recovered from payment metadata.
func (m *EventMapper) MapPaymentEvent(event stripe.Event) (*MappedEvent, error) {
	switch event.Type {
	case PaymentCheckoutCompleted, PaymentCheckoutExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		bookingID := session.Metadata["booking_id"]
		if bookingID == "" {
			m.logger.Info("payment webhook without booking metadata, ignoring",
				zap.String("eventType", string(event.Type)))
			return nil, nil
		}
		patch := models.BookingStateData{
			PaymentSessionID: session.ID,
			Amount:           float64(session.AmountTotal) / 100,
			Currency:         string(session.Currency),
		}
		if session.PaymentIntent != nil {
			patch.PaymentIntentID = session.PaymentIntent.ID
		}
		mappedEvent := models.EventPaymentWebhookReceived
		if event.Type == PaymentCheckoutExpired {
			mappedEvent = models.EventPaymentFailed
			patch.LastError = &models.LastError{
				Code:    "checkout_expired",
				Message: "checkout session expired before completion",
				At:      time.Now().UTC(),
				Source:  "payment",
			}
		}
		return &MappedEvent{BookingID: bookingID, Event: mappedEvent, Patch: patch, Source: "payment"}, nil

	case PaymentIntentSucceeded, PaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		bookingID := intent.Metadata["booking_id"]
		if bookingID == "" {
			m.logger.Info("payment webhook without booking metadata, ignoring",
				zap.String("eventType", string(event.Type)))
			return nil, nil
		}
		patch := models.BookingStateData{
			PaymentIntentID: intent.ID,
			Amount:          float64(intent.Amount) / 100,
			Currency:        string(intent.Currency),
		}
		if event.Type == PaymentIntentSucceeded {
			return &MappedEvent{BookingID: bookingID, Event: models.EventPaymentSucceeded, Patch: patch, Source: "payment"}, nil
		}
		patch.LastError = &models.LastError{
			Code:    "payment_failed",
			Message: paymentFailureMessage(&intent),
			At:      time.Now().UTC(),
			Source:  "payment",
		}
		return &MappedEvent{BookingID: bookingID, Event: models.EventPaymentFailed, Patch: patch, Source: "payment"}, nil

	default:
		m.logger.Info("unrecognized payment webhook event, ignoring",
			zap.String("eventType", string(event.Type)))
		return nil, nil
	}
}

func extractBookingID(payload models.SchedulingWebhookPayload) string {
	if id := strings.TrimSpace(payload.Tracking.UTMContent); id != "" {
		return id
	}
	for _, qa := range payload.QuestionsAndAnswers {
		if strings.EqualFold(strings.TrimSpace(qa.Question), bookingRefQuestion) {
			return strings.TrimSpace(qa.Answer)
		}
	}
	return ""
}

func paymentFailureMessage(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment intent failed"
}
