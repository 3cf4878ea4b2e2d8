package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus is the latest snapshot of the backing services the booking
// engine depends on.
type HealthStatus struct {
	Database   bool      `json:"database"`
	StateStore bool      `json:"stateStore"`
	CheckedAt  time.Time `json:"checkedAt"`
}

var (
	currentHealth   HealthStatus
	currentHealthMu sync.RWMutex
)

// GetHealthStatus returns the latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	currentHealthMu.RLock()
	defer currentHealthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings the booking database and the Redis state store
// once a minute and updates the in-memory snapshot served by /health.
func StartHealthMonitor(stateStore *redis.Client, db *mongo.Client) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			snapshot := HealthStatus{
				Database:   db != nil && db.Ping(ctx, nil) == nil,
				StateStore: stateStore != nil && stateStore.Ping(ctx).Err() == nil,
				CheckedAt:  time.Now().UTC(),
			}
			cancel()

			currentHealthMu.Lock()
			currentHealth = snapshot
			currentHealthMu.Unlock()
		}
	}()
}
