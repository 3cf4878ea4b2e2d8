package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookflow/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrBookingNotFound is returned when no context exists for a booking id.
var ErrBookingNotFound = errors.New("booking not found")

// StateStore owns durable storage of booking contexts between requests and
// provides per-booking mutual exclusion: WithLock serializes concurrent
// transitions for the same booking id.
type StateStore interface {
	SaveContext(ctx context.Context, bc *models.BookingContext) error
	GetContext(ctx context.Context, bookingID string) (*models.BookingContext, error)
	AppendHistory(ctx context.Context, bookingID string, result models.TransitionResult) error
	GetHistory(ctx context.Context, bookingID string) ([]models.TransitionResult, error)
	WithLock(ctx context.Context, bookingID string, fn func() error) error
}

// --- Redis implementation ---

const (
	contextKeyPrefix = "booking:context:"
	historyKeyPrefix = "booking:history:"
	lockKeyPrefix    = "booking:lock:"

	lockTTL       = 10 * time.Second
	lockRetryWait = 50 * time.Millisecond
)

// RedisStateStore persists booking contexts as JSON values and history as
// an append-only list. Per-booking locks are SETNX leases.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) SaveContext(ctx context.Context, bc *models.BookingContext) error {
	data, err := json.Marshal(bc)
	if err != nil {
		return fmt.Errorf("failed to marshal booking context: %w", err)
	}
	if err := s.client.Set(ctx, contextKeyPrefix+bc.BookingID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store booking context: %w", err)
	}
	return nil
}

func (s *RedisStateStore) GetContext(ctx context.Context, bookingID string) (*models.BookingContext, error) {
	data, err := s.client.Get(ctx, contextKeyPrefix+bookingID).Result()
	if err == redis.Nil {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking context: %w", err)
	}
	var bc models.BookingContext
	if err := json.Unmarshal([]byte(data), &bc); err != nil {
		return nil, fmt.Errorf("failed to parse booking context: %w", err)
	}
	return &bc, nil
}

func (s *RedisStateStore) AppendHistory(ctx context.Context, bookingID string, result models.TransitionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal transition result: %w", err)
	}
	if err := s.client.RPush(ctx, historyKeyPrefix+bookingID, data).Err(); err != nil {
		return fmt.Errorf("failed to append transition history: %w", err)
	}
	return nil
}

func (s *RedisStateStore) GetHistory(ctx context.Context, bookingID string) ([]models.TransitionResult, error) {
	entries, err := s.client.LRange(ctx, historyKeyPrefix+bookingID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load transition history: %w", err)
	}
	results := make([]models.TransitionResult, 0, len(entries))
	for _, entry := range entries {
		var r models.TransitionResult
		if err := json.Unmarshal([]byte(entry), &r); err != nil {
			continue // skip corrupt entries
		}
		results = append(results, r)
	}
	return results, nil
}

// releaseLockScript deletes the lease only when this holder still owns it.
// A lease that expired mid-fn may have been re-acquired by another worker;
// an unconditional Del would release that worker's lock.
var releaseLockScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

// WithLock acquires a short lease on the booking id, polls while held
// elsewhere, and releases after fn returns. The lease TTL bounds the damage
// of a crashed holder; the lease value tags the owner so release cannot
// drop a lock taken over after expiry.
func (s *RedisStateStore) WithLock(ctx context.Context, bookingID string, fn func() error) error {
	key := lockKeyPrefix + bookingID
	token := uuid.New().String()
	for {
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	defer releaseLockScript.Run(context.Background(), s.client, []string{key}, token)
	return fn()
}

// --- In-memory implementation ---

// MemoryStateStore is the in-process store used by tests and local runs.
type MemoryStateStore struct {
	mu       sync.Mutex
	contexts map[string]models.BookingContext
	history  map[string][]models.TransitionResult
	locks    map[string]*sync.Mutex
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		contexts: make(map[string]models.BookingContext),
		history:  make(map[string][]models.TransitionResult),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStateStore) SaveContext(_ context.Context, bc *models.BookingContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[bc.BookingID] = *bc
	return nil
}

func (s *MemoryStateStore) GetContext(_ context.Context, bookingID string) (*models.BookingContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bc, ok := s.contexts[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &bc, nil
}

func (s *MemoryStateStore) AppendHistory(_ context.Context, bookingID string, result models.TransitionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[bookingID] = append(s.history[bookingID], result)
	return nil
}

func (s *MemoryStateStore) GetHistory(_ context.Context, bookingID string) ([]models.TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransitionResult, len(s.history[bookingID]))
	copy(out, s.history[bookingID])
	return out, nil
}

func (s *MemoryStateStore) WithLock(_ context.Context, bookingID string, fn func() error) error {
	s.mu.Lock()
	lock, ok := s.locks[bookingID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[bookingID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}
