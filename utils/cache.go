// File: utils/cache.go
package utils

import (
	"bookflow/config"
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// StateStoreClient is the Redis client backing the authoritative booking
// state store.
var StateStoreClient *redis.Client

// InitStateStore initializes the Redis client for the booking state store
// (using the state DB from AppConfig).
func InitStateStore() {
	StateStoreClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisStateDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := StateStoreClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (State Store): %v", err)
	}
}

// GetStateStoreClient returns the Redis client for the booking state store.
func GetStateStoreClient() *redis.Client {
	if StateStoreClient == nil {
		InitStateStore()
	}
	return StateStoreClient
}
