package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook:delivery:"

// Deduper remembers gateway delivery ids so exact redeliveries can be
// acknowledged without touching the database.
type Deduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewDeduper(client redis.Cmdable, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// Claim returns true when the delivery id was not seen before.
func (d *Deduper) Claim(ctx context.Context, deliveryID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim delivery %s: %w", deliveryID, err)
	}
	return ok, nil
}

// Forget drops a claim so a retried delivery is processed again.
func (d *Deduper) Forget(ctx context.Context, deliveryID string) error {
	if err := d.client.Del(ctx, keyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("forget delivery %s: %w", deliveryID, err)
	}
	return nil
}

func (d *Deduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
