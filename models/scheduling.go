package models

import "time"

// Resource shapes for the scheduling provider's REST surface. Only the
// fields this system depends on are modeled.

// SchedulingUser is the authenticated provider-side account.
type SchedulingUser struct {
	URI           string `json:"uri"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	SchedulingURL string `json:"scheduling_url"`
	Timezone      string `json:"timezone"`
}

// EventType is a bookable session template on the scheduling provider.
type EventType struct {
	URI           string `json:"uri"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	Duration      int    `json:"duration"` // minutes
	SchedulingURL string `json:"scheduling_url"`
	Kind          string `json:"kind"`
}

// ScheduledEvent is a concrete calendar event created by an invitee.
type ScheduledEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Invitee is the person who booked a scheduled event.
type Invitee struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	Timezone string `json:"timezone"`
}

// AvailableTime is one bookable slot returned by the availability endpoint.
type AvailableTime struct {
	Status            string    `json:"status"`
	StartTime         time.Time `json:"start_time"`
	InviteesRemaining int       `json:"invitees_remaining"`
}

// SchedulingLinkRequest is the input for building a prefilled booking URL.
type SchedulingLinkRequest struct {
	EventTypeID   string `json:"eventTypeId" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	Timezone      string `json:"timezone,omitempty"`
	SessionTypeID string `json:"sessionTypeId" binding:"required"`
	ClientID      string `json:"clientId" binding:"required"`
	ReturnURL     string `json:"returnUrl,omitempty"`
}

// SchedulingLink is the prefilled booking URL handed to the booking UI.
// BookingURL embeds tracking parameters so the later invitee webhook can be
// correlated back to the originating booking.
type SchedulingLink struct {
	BookingURL    string `json:"bookingUrl"`
	EventTypeID   string `json:"eventTypeId"`
	SessionTypeID string `json:"sessionTypeId"`
}

// TimeSlotSuggestion is an alternative slot offered when a requested time
// conflicts with an existing booking.
type TimeSlotSuggestion struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}
