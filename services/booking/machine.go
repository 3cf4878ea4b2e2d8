package booking

import (
	"fmt"
	"time"

	"bookflow/models"
)

// hookFn is a pure entry/exit hook over state data. Hooks must not perform
// I/O; side effects belong to the orchestration service so the machine
// stays deterministic and unit-testable in isolation.
type hookFn func(models.BookingStateData) models.BookingStateData

// StateMachine validates and executes booking transitions. It is stateless
// and operates purely on the BookingContext passed in.
type StateMachine struct {
	onEnter map[models.BookingState]hookFn
	onExit  map[models.BookingState]hookFn
	now     func() time.Time
}

// NewStateMachine builds the machine with its fixed hook set.
func NewStateMachine() *StateMachine {
	m := &StateMachine{
		onEnter: make(map[models.BookingState]hookFn),
		onExit:  make(map[models.BookingState]hookFn),
		now:     time.Now,
	}

	m.onEnter[models.StateConfirmed] = func(d models.BookingStateData) models.BookingStateData {
		if d.ConfirmedAt.IsZero() {
			d.ConfirmedAt = m.now().UTC()
		}
		return d
	}
	m.onEnter[models.StateCancellationRequested] = func(d models.BookingStateData) models.BookingStateData {
		if d.CancelledAt.IsZero() {
			d.CancelledAt = m.now().UTC()
		}
		return d
	}
	// Leaving Error clears the recorded failure; Recover is the only exit.
	m.onExit[models.StateError] = func(d models.BookingStateData) models.BookingStateData {
		d.LastError = nil
		return d
	}
	return m
}

// Transition looks up (state, event) in the transition table. An unknown
// pair yields a failed result and leaves the context untouched; a legal
// pair merges the patch, runs hooks, recomputes the derived statuses for
// the destination state, and mutates the context.
func (m *StateMachine) Transition(bc *models.BookingContext, event models.BookingEvent, patch models.BookingStateData) models.TransitionResult {
	result := models.TransitionResult{
		PreviousState: bc.State,
		Event:         event,
		Timestamp:     m.now().UTC(),
	}

	tr, ok := transitionTable[transitionKey{bc.State, event}]
	if !ok {
		result.Success = false
		result.CurrentState = bc.State
		result.StateData = bc.StateData
		result.Error = fmt.Sprintf("invalid transition: event %s not legal in state %s", event, bc.State)
		return result
	}

	merged := mergePatch(bc.StateData, patch)
	if tr.Guard != nil && !tr.Guard(merged) {
		result.Success = false
		result.CurrentState = bc.State
		result.StateData = bc.StateData
		result.Error = fmt.Sprintf("invalid transition: guard rejected event %s in state %s", event, bc.State)
		return result
	}

	if exit, ok := m.onExit[bc.State]; ok {
		merged = exit(merged)
	}
	if enter, ok := m.onEnter[tr.To]; ok {
		merged = enter(merged)
	}
	merged.BookingStatus, merged.PaymentStatus = DeriveStatuses(tr.To)

	bc.State = tr.To
	bc.StateData = merged

	result.Success = true
	result.CurrentState = tr.To
	result.StateData = merged
	return result
}

// mergePatch overlays the non-zero fields of patch onto base.
func mergePatch(base, patch models.BookingStateData) models.BookingStateData {
	out := base
	if patch.BookingID != "" {
		out.BookingID = patch.BookingID
	}
	if patch.BuilderID != "" {
		out.BuilderID = patch.BuilderID
	}
	if patch.ClientID != "" {
		out.ClientID = patch.ClientID
	}
	if patch.SessionTypeID != "" {
		out.SessionTypeID = patch.SessionTypeID
	}
	if !patch.ScheduledStart.IsZero() {
		out.ScheduledStart = patch.ScheduledStart
	}
	if !patch.ScheduledEnd.IsZero() {
		out.ScheduledEnd = patch.ScheduledEnd
	}
	if patch.Timezone != "" {
		out.Timezone = patch.Timezone
	}
	if patch.SchedulingEventID != "" {
		out.SchedulingEventID = patch.SchedulingEventID
	}
	if patch.SchedulingInviteeID != "" {
		out.SchedulingInviteeID = patch.SchedulingInviteeID
	}
	if patch.PaymentSessionID != "" {
		out.PaymentSessionID = patch.PaymentSessionID
	}
	if patch.PaymentIntentID != "" {
		out.PaymentIntentID = patch.PaymentIntentID
	}
	if patch.Amount != 0 {
		out.Amount = patch.Amount
	}
	if patch.Currency != "" {
		out.Currency = patch.Currency
	}
	if patch.CancellationReason != "" {
		out.CancellationReason = patch.CancellationReason
	}
	if patch.CancelledBy != "" {
		out.CancelledBy = patch.CancelledBy
	}
	if !patch.CancelledAt.IsZero() {
		out.CancelledAt = patch.CancelledAt
	}
	if patch.RefundAmount != 0 {
		out.RefundAmount = patch.RefundAmount
	}
	if patch.RefundID != "" {
		out.RefundID = patch.RefundID
	}
	if !patch.ConfirmedAt.IsZero() {
		out.ConfirmedAt = patch.ConfirmedAt
	}
	if patch.LastError != nil {
		out.LastError = patch.LastError
	}
	return out
}
