package booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"bookflow/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// CheckoutService creates hosted payment sessions for bookings. The booking
// id travels in the session and payment-intent metadata so the payment
// webhooks can be correlated back.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, bc *models.BookingContext, req CheckoutRequest) (*CheckoutSession, error)
}

// CheckoutRequest describes what the client is paying for.
type CheckoutRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	SuccessURL  string  `json:"successUrl" binding:"required"`
	CancelURL   string  `json:"cancelUrl" binding:"required"`
}

// CheckoutSession is the hosted payment page handed back to the client.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// StripeCheckoutService creates Stripe Checkout sessions.
type StripeCheckoutService struct {
	logger *zap.Logger
}

func NewStripeCheckoutService(logger *zap.Logger) *StripeCheckoutService {
	return &StripeCheckoutService{logger: logger}
}

func (s *StripeCheckoutService) CreateCheckoutSession(ctx context.Context, bc *models.BookingContext, req CheckoutRequest) (*CheckoutSession, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return nil, fmt.Errorf("invalid checkout request: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	description := req.Description
	if description == "" {
		description = "Booking " + bc.BookingID
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(amountToCents(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"booking_id": bc.BookingID},
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", bc.BookingID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("bookingId", bc.BookingID),
		zap.String("sessionId", sess.ID),
		zap.Float64("amount", req.Amount),
		zap.String("currency", currency))
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// amountToCents converts a major-unit amount to integer cents. Rounding
// rather than truncating keeps values like 19.99 exact despite the
// float representation.
func amountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func validateCheckoutRequest(req CheckoutRequest) error {
	if req.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		return errors.New("success and cancel URLs are required")
	}
	return nil
}
