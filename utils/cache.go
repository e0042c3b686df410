// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"prbal/config"

	"github.com/go-redis/redis/v8"
)

// LockClient is the dedicated Redis client for per-booking mutexes. Booking
// and ledger reads are never cached: settlement decisions must see fresh
// state, so Redis here serves coordination, not caching.
var LockClient *redis.Client

// InitLockClient initializes the Redis client backing booking locks
// (using DB from AppConfig for lock keys).
func InitLockClient() {
	LockClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisLockDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := LockClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Locks): %v", err)
	}
}

// GetLockClient returns the Redis client for booking locks.
func GetLockClient() *redis.Client {
	if LockClient == nil {
		InitLockClient()
	}
	return LockClient
}
