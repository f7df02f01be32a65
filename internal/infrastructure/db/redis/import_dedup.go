package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartrent/rental-api/internal/core/ports"
)

const (
	importDedupTTL = 24 * time.Hour
	// importReserveTTL frees a key whose import never finished.
	importReserveTTL = 10 * time.Minute
)

// pendingMarker is stored under a reserved key until the result is known.
const pendingMarker = "pending"

// ImportDeduper stores bulk import results keyed by idempotency key.
// Key format: bulk:<user_id>:<idempotency_key>
type ImportDeduper struct {
	client     *redis.Client
	ttl        time.Duration
	reserveTTL time.Duration
}

// NewImportDeduper creates an ImportDeduper wrapping the given Redis client.
func NewImportDeduper(client *redis.Client) *ImportDeduper {
	return &ImportDeduper{client: client, ttl: importDedupTTL, reserveTTL: importReserveTTL}
}

// Reserve claims key with SET NX. When the key is taken it returns the stored
// result, or nil if the owning import has not finished yet.
func (d *ImportDeduper) Reserve(ctx context.Context, key string) (*ports.BulkResult, bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(key), pendingMarker, d.reserveTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("dedup reserve: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := d.client.Get(ctx, d.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released or expired between the two calls; the caller retries.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}
	res, err := decodeStored(raw)
	if err != nil {
		return nil, false, err
	}
	return res, false, nil
}

// Remember replaces the reservation for key with result (expires after 24h).
func (d *ImportDeduper) Remember(ctx context.Context, key string, result *ports.BulkResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("dedup encode: %w", err)
	}
	return d.client.Set(ctx, d.key(key), raw, d.ttl).Err()
}

// Release deletes the reservation for key.
func (d *ImportDeduper) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.key(key)).Err()
}

func (d *ImportDeduper) key(key string) string {
	return "bulk:" + key
}

// decodeStored returns nil for a key that is still reserved.
func decodeStored(raw []byte) (*ports.BulkResult, error) {
	if string(raw) == pendingMarker {
		return nil, nil
	}
	var res ports.BulkResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("dedup decode: %w", err)
	}
	return &res, nil
}
