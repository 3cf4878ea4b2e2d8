package booking

import (
	"context"
	"fmt"
	"time"

	"bookflow/database/repository"
	"bookflow/models"
	"bookflow/services/scheduling"

	"go.uber.org/zap"
)

// Suggestions past this hour of day are not offered for the same day.
const sameDayCutoffHour = 17

// ConflictDetector checks a proposed time range against persisted bookings
// and, optionally, the scheduling provider's live availability.
type ConflictDetector struct {
	Repo   repository.BookingRepository
	Client *scheduling.Client // optional live availability check
	Logger *zap.Logger

	Now func() time.Time
}

func NewConflictDetector(repo repository.BookingRepository, client *scheduling.Client, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{Repo: repo, Client: client, Logger: logger, Now: time.Now}
}

// HasConflict reports whether any pending or confirmed booking for the
// builder overlaps [start, end), along with the conflicting records.
func (d *ConflictDetector) HasConflict(ctx context.Context, builderID string, start, end time.Time, excludeBookingID string) (bool, []models.BookingRecord, error) {
	conflicts, err := d.Repo.FindOverlapping(ctx, builderID, start, end, excludeBookingID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return len(conflicts) > 0, conflicts, nil
}

// SuggestAlternatives proposes up to three candidate slots for a
// conflicting request: later the same day (when before the cutoff hour),
// the next day at the same time, and one week later. Each candidate is
// independently re-checked before being offered.
func (d *ConflictDetector) SuggestAlternatives(ctx context.Context, builderID string, start, end time.Time) ([]models.TimeSlotSuggestion, error) {
	duration := end.Sub(start)

	type candidate struct {
		start  time.Time
		reason string
	}
	var candidates []candidate

	laterSameDay := start.Add(2 * time.Hour)
	if laterSameDay.Hour() < sameDayCutoffHour && laterSameDay.Day() == start.Day() {
		candidates = append(candidates, candidate{laterSameDay, "later the same day"})
	}
	candidates = append(candidates,
		candidate{start.AddDate(0, 0, 1), "next day at the same time"},
		candidate{start.AddDate(0, 0, 7), "one week later at the same time"},
	)

	var suggestions []models.TimeSlotSuggestion
	for _, c := range candidates {
		conflict, _, err := d.HasConflict(ctx, builderID, c.start, c.start.Add(duration), "")
		if err != nil {
			return nil, err
		}
		if !conflict {
			suggestions = append(suggestions, models.TimeSlotSuggestion{
				Start:  c.start,
				End:    c.start.Add(duration),
				Reason: c.reason,
			})
		}
	}
	return suggestions, nil
}

// ValidateBookingRequest composes the local overlap check with an optional
// live availability check against the scheduling provider. On failure it
// raises a ConflictError carrying the conflicting bookings and suggested
// alternatives.
func (d *ConflictDetector) ValidateBookingRequest(ctx context.Context, builderID string, start, end time.Time, excludeBookingID, eventTypeURI string) error {
	conflict, conflicts, err := d.HasConflict(ctx, builderID, start, end, excludeBookingID)
	if err != nil {
		return err
	}
	if conflict {
		alternatives, altErr := d.SuggestAlternatives(ctx, builderID, start, end)
		if altErr != nil {
			d.Logger.Warn("failed to compute alternative slots", zap.Error(altErr))
		}
		return &ConflictError{
			Code:         ConflictCodeTimeConflict,
			Message:      fmt.Sprintf("requested slot overlaps %d existing booking(s)", len(conflicts)),
			Conflicts:    conflicts,
			Alternatives: alternatives,
		}
	}

	if d.Client != nil && eventTypeURI != "" {
		if err := d.checkProviderAvailability(ctx, builderID, start, end, eventTypeURI); err != nil {
			return err
		}
	}
	return nil
}

func (d *ConflictDetector) checkProviderAvailability(ctx context.Context, builderID string, start, end time.Time, eventTypeURI string) error {
	times, err := d.Client.GetAvailableTimes(ctx, eventTypeURI, start, end)
	if err != nil {
		return &ConflictError{
			Code:    ConflictCodeAvailabilityError,
			Message: fmt.Sprintf("failed to verify provider availability: %v", err),
		}
	}
	for _, t := range times {
		if t.Status == "available" && t.StartTime.Equal(start) {
			return nil
		}
	}

	alternatives, altErr := d.SuggestAlternatives(ctx, builderID, start, end)
	if altErr != nil {
		d.Logger.Warn("failed to compute alternative slots", zap.Error(altErr))
	}
	return &ConflictError{
		Code:         ConflictCodeProviderConflict,
		Message:      "requested slot is not available on the scheduling provider",
		Alternatives: alternatives,
	}
}
