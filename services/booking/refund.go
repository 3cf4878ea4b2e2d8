package booking

import (
	"time"

	"bookflow/models"
)

// RefundPolicy is the tier a cancellation qualifies for.
type RefundPolicy string

const (
	RefundFull    RefundPolicy = "full"
	RefundPartial RefundPolicy = "partial"
	RefundNone    RefundPolicy = "none"
)

// Refund tier boundaries in hours before the session start.
const (
	fullRefundHours    = 24
	partialRefundHours = 12
	partialRefundRate  = 0.5
)

// RefundDecision is the outcome of the policy computation.
type RefundDecision struct {
	Policy RefundPolicy `json:"policy"`
	Amount float64      `json:"amount,omitempty"`
	Reason string       `json:"reason"`
}

// RefundEngine computes refund eligibility. Now is injectable so boundary
// values are directly testable.
type RefundEngine struct {
	Now func() time.Time
}

func NewRefundEngine() *RefundEngine {
	return &RefundEngine{Now: time.Now}
}

// CalculateRefundPolicy is deterministic given its inputs and the clock:
// no completed payment yields none; 24 hours or more of lead time yields a
// full refund; between 12 and 24 hours yields half; less than 12 yields
// none.
func (e *RefundEngine) CalculateRefundPolicy(startTime time.Time, paymentStatus models.PaymentStatus, amount float64) RefundDecision {
	if paymentStatus != models.PaymentStatusPaid {
		return RefundDecision{
			Policy: RefundNone,
			Reason: "payment was never completed",
		}
	}

	hoursUntilStart := startTime.Sub(e.Now()).Hours()
	switch {
	case hoursUntilStart >= fullRefundHours:
		return RefundDecision{
			Policy: RefundFull,
			Amount: amount,
			Reason: "cancelled 24 or more hours before start",
		}
	case hoursUntilStart >= partialRefundHours:
		return RefundDecision{
			Policy: RefundPartial,
			Amount: amount * partialRefundRate,
			Reason: "cancelled between 12 and 24 hours before start",
		}
	default:
		return RefundDecision{
			Policy: RefundNone,
			Reason: "cancelled less than 12 hours before start",
		}
	}
}
