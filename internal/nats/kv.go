package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// SessionBucket is the name of the key-value bucket holding serialized
// conversation state, keyed by session handle.
const SessionBucket = "SESSIONS"

// EnsureSessionBucket returns the session bucket, creating it with the
// given TTL if it does not exist.
func (c *Client) EnsureSessionBucket(ctx context.Context, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := c.js.KeyValue(ctx, SessionBucket)
	if err == nil {
		return kv, nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionBucket,
		Description: "Serialized per-session conversation state",
		TTL:         ttl,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return kv, nil
}
