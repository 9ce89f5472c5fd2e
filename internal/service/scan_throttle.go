package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScanThrottle enforces a per-token cooldown between gate scans. Allow
// reports whether the scan may proceed; the first call inside an empty
// window is allowed and every later call within the window is rejected.
type ScanThrottle interface {
	Allow(ctx context.Context, token string) (bool, error)
}

type redisScanThrottle struct {
	client *redis.Client
	window time.Duration
}

// NewRedisScanThrottle builds a throttle backed by a redis counter per
// scanned token.
func NewRedisScanThrottle(client *redis.Client, window time.Duration) ScanThrottle {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &redisScanThrottle{client: client, window: window}
}

func (t *redisScanThrottle) Allow(ctx context.Context, token string) (bool, error) {
	// Key on a digest so the raw credential never reaches redis.
	digest := sha256.Sum256([]byte(token))
	key := fmt.Sprintf("scan:cooldown:%s", hex.EncodeToString(digest[:16]))

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check scan cooldown: %w", err)
	}

	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return false, fmt.Errorf("failed to arm scan cooldown: %w", err)
		}
		return true, nil
	}

	return false, nil
}
