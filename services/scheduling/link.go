package scheduling

import (
	"context"
	"fmt"
	"net/url"

	"bookflow/models"
	"bookflow/utils"
)

// Tracking parameter layout embedded in every scheduling link. The invitee
// webhook echoes these back, which is how a provider event is correlated to
// its originating booking.
const (
	utmSourceValue = "bookflow"
	utmMediumValue = "booking_engine"
)

// BuildSchedulingLink resolves the event type and composes a prefilled
// booking URL carrying the correlation parameters for bookingID.
func (c *Client) BuildSchedulingLink(ctx context.Context, bookingID string, req models.SchedulingLinkRequest) (*models.SchedulingLink, error) {
	eventType, err := c.GetEventType(ctx, req.EventTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve event type: %w", err)
	}
	if !eventType.Active {
		return nil, &RequestValidationError{Message: "event type is not active"}
	}

	base, err := url.Parse(eventType.SchedulingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling url for event type %s: %w", req.EventTypeID, err)
	}

	tz, err := utils.NormalizeTimezone(req.Timezone)
	if err != nil {
		return nil, &RequestValidationError{Message: err.Error()}
	}

	params := base.Query()
	params.Set("name", req.Name)
	params.Set("email", req.Email)
	params.Set("timezone", tz)
	params.Set("utm_source", utmSourceValue)
	params.Set("utm_medium", utmMediumValue)
	params.Set("utm_content", bookingID)
	params.Set("utm_campaign", req.SessionTypeID)
	params.Set("utm_term", req.ClientID)
	if req.ReturnURL != "" {
		params.Set("redirect_url", req.ReturnURL)
	}
	base.RawQuery = params.Encode()

	return &models.SchedulingLink{
		BookingURL:    base.String(),
		EventTypeID:   req.EventTypeID,
		SessionTypeID: req.SessionTypeID,
	}, nil
}
