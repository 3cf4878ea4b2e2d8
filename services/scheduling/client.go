package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bookflow/models"

	"go.uber.org/zap"
)

const (
	maxRetryAttempts = 3

	// Available-time queries are capped by the provider at one week.
	maxAvailabilitySpan = 7 * 24 * time.Hour
)

// Client wraps the scheduling provider's REST surface with credential
// failover and response caching for idempotent reads.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *CredentialManager
	cache   *ResponseCache
	logger  *zap.Logger

	now func() time.Time
}

// NewClient builds a scheduling API client. Every request runs under the
// http client's timeout.
func NewClient(baseURL string, creds *CredentialManager, cache *ResponseCache, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		creds:   creds,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

type resourceEnvelope struct {
	Resource json.RawMessage `json:"resource"`
}

type collectionEnvelope struct {
	Collection json.RawMessage `json:"collection"`
}

// GetCurrentUser fetches the authenticated provider-side account.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.SchedulingUser, error) {
	body, err := c.doGet(ctx, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var env resourceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse current user: %w", err)
	}
	var user models.SchedulingUser
	if err := json.Unmarshal(env.Resource, &user); err != nil {
		return nil, fmt.Errorf("failed to parse current user: %w", err)
	}
	return &user, nil
}

// GetEventTypes lists the bookable event types for a user. Cached.
func (c *Client) GetEventTypes(ctx context.Context, userURI string) ([]models.EventType, error) {
	cacheKey := "event_types:" + userURI
	if cached, ok := c.cache.Get(cacheKey); ok {
		if types, ok := cached.([]models.EventType); ok {
			return types, nil
		}
	}

	body, err := c.doGet(ctx, "/event_types", url.Values{"user": {userURI}})
	if err != nil {
		return nil, err
	}
	var env collectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event types: %w", err)
	}
	var types []models.EventType
	if err := json.Unmarshal(env.Collection, &types); err != nil {
		return nil, fmt.Errorf("failed to parse event types: %w", err)
	}
	c.cache.Set(cacheKey, types)
	return types, nil
}

// GetEventType fetches a single event type by id. Cached.
func (c *Client) GetEventType(ctx context.Context, eventTypeID string) (*models.EventType, error) {
	cacheKey := "event_type:" + eventTypeID
	if cached, ok := c.cache.Get(cacheKey); ok {
		if et, ok := cached.(*models.EventType); ok {
			return et, nil
		}
	}

	body, err := c.doGet(ctx, "/event_types/"+eventTypeID, nil)
	if err != nil {
		return nil, err
	}
	var env resourceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}
	var et models.EventType
	if err := json.Unmarshal(env.Resource, &et); err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}
	c.cache.Set(cacheKey, &et)
	return &et, nil
}

// GetEvents lists scheduled events for a user. Time-sensitive; not cached.
func (c *Client) GetEvents(ctx context.Context, userURI string, minStart, maxStart time.Time) ([]models.ScheduledEvent, error) {
	params := url.Values{"user": {userURI}}
	if !minStart.IsZero() {
		params.Set("min_start_time", minStart.UTC().Format(time.RFC3339))
	}
	if !maxStart.IsZero() {
		params.Set("max_start_time", maxStart.UTC().Format(time.RFC3339))
	}
	body, err := c.doGet(ctx, "/scheduled_events", params)
	if err != nil {
		return nil, err
	}
	var env collectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse scheduled events: %w", err)
	}
	var events []models.ScheduledEvent
	if err := json.Unmarshal(env.Collection, &events); err != nil {
		return nil, fmt.Errorf("failed to parse scheduled events: %w", err)
	}
	return events, nil
}

// GetEventInvitees lists invitees of a scheduled event. Not cached.
func (c *Client) GetEventInvitees(ctx context.Context, eventID string) ([]models.Invitee, error) {
	body, err := c.doGet(ctx, "/scheduled_events/"+eventID+"/invitees", nil)
	if err != nil {
		return nil, err
	}
	var env collectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse invitees: %w", err)
	}
	var invitees []models.Invitee
	if err := json.Unmarshal(env.Collection, &invitees); err != nil {
		return nil, fmt.Errorf("failed to parse invitees: %w", err)
	}
	return invitees, nil
}

// GetAvailableTimes queries bookable slots for an event type. The range
// must start in the future and span at most seven days; both are request
// validation errors raised before any network call. Not cached.
func (c *Client) GetAvailableTimes(ctx context.Context, eventTypeURI string, start, end time.Time) ([]models.AvailableTime, error) {
	if start.Before(c.now()) {
		return nil, &RequestValidationError{Message: "start time must not be in the past"}
	}
	if end.Sub(start) > maxAvailabilitySpan {
		return nil, &RequestValidationError{Message: "availability range must not exceed 7 days"}
	}

	params := url.Values{
		"event_type": {eventTypeURI},
		"start_time": {start.UTC().Format(time.RFC3339)},
		"end_time":   {end.UTC().Format(time.RFC3339)},
	}
	body, err := c.doGet(ctx, "/event_type_available_times", params)
	if err != nil {
		return nil, err
	}
	var env collectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse available times: %w", err)
	}
	var times []models.AvailableTime
	if err := json.Unmarshal(env.Collection, &times); err != nil {
		return nil, fmt.Errorf("failed to parse available times: %w", err)
	}
	return times, nil
}

// doGet executes an authenticated GET with bounded credential failover: a
// 401/403 marks the current credential invalid and the request is retried
// with the next available one.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		name, token, err := c.creds.GetToken(ctx)
		if err != nil {
			return nil, err
		}

		reqURL := c.baseURL + path
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("scheduling request failed: %w", err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read scheduling response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.creds.MarkFailed(name, TokenInvalid)
			lastErr = &APIError{
				StatusCode:  resp.StatusCode,
				Code:        "unauthenticated",
				Message:     "credential rejected by scheduling provider",
				IsAuthError: true,
			}
			c.logger.Warn("scheduling credential rejected, failing over",
				zap.String("credential", name),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}
		if resp.StatusCode >= 400 {
			var apiErr struct {
				Title   string `json:"title"`
				Message string `json:"message"`
			}
			_ = json.Unmarshal(body, &apiErr)
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Code:       apiErr.Title,
				Message:    apiErr.Message,
			}
		}
		return body, nil
	}
	return nil, lastErr
}
