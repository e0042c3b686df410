package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus reports reachability of the stores the settlement engine
// depends on. Mongo holds the bookings and ledger; the redis clients back
// the cache and the per-booking locks.
type HealthStatus struct {
	Mongo     bool            `json:"mongo"`
	Redis     map[string]bool `json:"redis"`
	CheckedAt time.Time       `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor performs periodic health checks and updates in-memory
// state. Checks are bounded so a hung store marks itself unhealthy instead
// of stalling the monitor.
func StartHealthMonitor(redisClients map[string]*redis.Client, mongoClient *mongo.Client) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

			redisHealth := make(map[string]bool, len(redisClients))
			for name, client := range redisClients {
				redisHealth[name] = client.Ping(ctx).Err() == nil
			}
			mongoHealthy := mongoClient.Ping(ctx, nil) == nil
			cancel()

			healthMu.Lock()
			currentHealth = HealthStatus{
				Mongo:     mongoHealthy,
				Redis:     redisHealth,
				CheckedAt: time.Now(),
			}
			healthMu.Unlock()
		}
	}()
}
