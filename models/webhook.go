package models

import "time"

// Raw scheduling-provider webhook shapes. These stay at the boundary: the
// event mapper translates them into BookingEvent + BookingStateData
// fragments and the state machine never sees them.

// SchedulingWebhook is the envelope the scheduling provider posts.
type SchedulingWebhook struct {
	Event     string                   `json:"event"` // "invitee.created" | "invitee.canceled"
	CreatedAt time.Time                `json:"created_at"`
	Payload   SchedulingWebhookPayload `json:"payload"`
}

// SchedulingWebhookPayload is the invitee resource carried by both
// recognized event types.
type SchedulingWebhookPayload struct {
	URI                 string               `json:"uri"`
	Name                string               `json:"name"`
	Email               string               `json:"email"`
	Timezone            string               `json:"timezone"`
	ScheduledEvent      ScheduledEvent       `json:"scheduled_event"`
	Tracking            WebhookTracking      `json:"tracking"`
	QuestionsAndAnswers []QuestionAnswer     `json:"questions_and_answers"`
	Cancellation        *WebhookCancellation `json:"cancellation,omitempty"`
}

// WebhookTracking carries the UTM parameters embedded in the scheduling
// link at creation time. utm_content holds the booking id.
type WebhookTracking struct {
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
}

// QuestionAnswer is a custom form entry; used as the booking-id fallback
// when tracking parameters were stripped.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WebhookCancellation describes who cancelled an invitee and why.
type WebhookCancellation struct {
	CanceledBy   string `json:"canceled_by"`
	Reason       string `json:"reason"`
	CancelerType string `json:"canceler_type"`
}
