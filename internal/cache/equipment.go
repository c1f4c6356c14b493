package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

// DefaultTTL bounds staleness of cached equipment holdings. Holdings change
// rarely (hardware installs), so minutes of staleness is acceptable.
const DefaultTTL = 5 * time.Minute

// EquipmentCache is a read-through decorator over an inventory source.
// Cache failures degrade to the underlying source, never to an error.
type EquipmentCache struct {
	inner routing.InventoryQuery
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewEquipmentCache(inner routing.InventoryQuery, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *EquipmentCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

var _ routing.InventoryQuery = (*EquipmentCache)(nil)

func key(siteID int64) string {
	return fmt.Sprintf("facilities:site:%d", siteID)
}

func (c *EquipmentCache) GetFacilitiesBySite(ctx context.Context, siteID int64) ([]*models.Facility, error) {
	raw, err := c.rdb.Get(ctx, key(siteID)).Result()
	if err == nil {
		var facilities []*models.Facility
		if err := json.Unmarshal([]byte(raw), &facilities); err == nil {
			return facilities, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.Int64("site_id", siteID))
	} else if err != redis.Nil {
		c.log.Warn("cache read failed, falling through", zap.Int64("site_id", siteID), zap.Error(err))
	}

	facilities, err := c.inner.GetFacilitiesBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(facilities); err == nil {
		if err := c.rdb.Set(ctx, key(siteID), encoded, c.ttl).Err(); err != nil {
			c.log.Warn("cache write failed", zap.Int64("site_id", siteID), zap.Error(err))
		}
	}
	return facilities, nil
}

// Invalidate drops the cached holdings for one site, for use after an
// equipment change.
func (c *EquipmentCache) Invalidate(ctx context.Context, siteID int64) error {
	return c.rdb.Del(ctx, key(siteID)).Err()
}
