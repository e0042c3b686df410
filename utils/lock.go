// File: utils/lock.go
package utils

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisBookingLocker serializes mutations to a single booking using a
// SETNX-style mutex. Two concurrent settle/refund attempts for the same
// booking must not both reach the gateway; whoever acquires the key first
// proceeds, the other fails fast.
type RedisBookingLocker struct {
	Client *redis.Client
}

func NewRedisBookingLocker(client *redis.Client) *RedisBookingLocker {
	return &RedisBookingLocker{Client: client}
}

// Acquire takes the per-booking mutex and returns a release function. The
// release compares the stored token so an expired lock re-acquired by another
// caller is never deleted from under them.
func (l *RedisBookingLocker) Acquire(ctx context.Context, bookingID string) (func(), error) {
	key := BookingLockPrefix + bookingID
	token := uuid.New().String()

	ok, err := l.Client.SetNX(ctx, key, token, BookingLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire booking lock for %s: %w", bookingID, err)
	}
	if !ok {
		return nil, fmt.Errorf("booking %s is locked by another operation", bookingID)
	}

	release := func() {
		// Delete only if we still own the lock.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		l.Client.Eval(context.Background(), script, []string{key}, token)
	}
	return release, nil
}
