package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SchemaVersion bump whenever a cached payload changes shape; older envelopes become misses.
const SchemaVersion = 1

const namespace = "dia360:summary:"

// generations lives outside namespace so invalidating an account never deletes its own marker.
const generations = "dia360:generation:"

// initialGeneration of an account that was never invalidated
const initialGeneration = "0"

// Envelope what is actually written to the store
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Kind          string          `json:"kind"`
	StoredAt      time.Time       `json:"stored_at"`
	Payload       json.RawMessage `json:"payload"`
}

// AccountKey key of an entry owned by accountID at the given generation, so
// InvalidateAccount can find it.
func AccountKey(accountID, generation, suffix string) string {
	return accountID + ":" + generation + ":" + suffix
}

// SummaryCache versioned JSON envelopes over a Store
type SummaryCache struct {
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

func NewSummaryCache(store Store, ttl time.Duration, logger *logrus.Logger) *SummaryCache {
	return &SummaryCache{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Load decodes the payload stored under key into out. Entries written with another schema
// version or kind, or that no longer decode, are deleted and reported as a miss.
func (c *SummaryCache) Load(ctx context.Context, key, kind string, out any) (bool, error) {
	full := namespace + key
	raw, ok, err := c.store.Get(ctx, full)
	if err != nil || !ok {
		return false, err
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.SchemaVersion != SchemaVersion || env.Kind != kind {
		c.discard(ctx, full, "stale envelope")
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		c.discard(ctx, full, "undecodable payload")
		return false, nil
	}
	return true, nil
}

// Store wraps v in an envelope and writes it with the configured TTL.
func (c *SummaryCache) Store(ctx context.Context, key, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	raw, err := json.Marshal(Envelope{
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		StoredAt:      c.now().UTC(),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.store.Set(ctx, namespace+key, raw, c.ttl)
}

// Generation current generation of accountID. Read it before computing a value and key the
// value with it: a value computed across an invalidation lands under a retired generation
// and is never served.
func (c *SummaryCache) Generation(ctx context.Context, accountID string) (string, error) {
	raw, ok, err := c.store.Get(ctx, generations+accountID)
	if err != nil {
		return "", fmt.Errorf("generation of %s: %w", accountID, err)
	}
	if !ok || len(raw) == 0 {
		return initialGeneration, nil
	}
	return string(raw), nil
}

// InvalidateAccount moves accountID to a new generation, then drops every entry keyed
// with AccountKey(accountID, ...).
func (c *SummaryCache) InvalidateAccount(ctx context.Context, accountID string) error {
	if err := c.store.Set(ctx, generations+accountID, []byte(uuid.NewString()), 0); err != nil {
		return fmt.Errorf("invalidate %s: %w", accountID, err)
	}
	n, err := c.store.DeletePrefix(ctx, namespace+accountID+":")
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", accountID, err)
	}
	if n > 0 {
		c.logger.WithFields(logrus.Fields{"account_id": accountID, "entries": n}).Debug("summary cache invalidated")
	}
	return nil
}

func (c *SummaryCache) discard(ctx context.Context, key, reason string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("dropping cache entry failed")
		return
	}
	c.logger.WithFields(logrus.Fields{"key": key, "reason": reason}).Debug("cache entry dropped")
}
