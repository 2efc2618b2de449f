package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"yuva/server/internal/models"
)

const listingKeyPrefix = "listing:"

// ListingCache keeps recently fetched listings. Listings are never edited
// after creation, so entries only expire.
type ListingCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewListingCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached listing, or false on a miss or a cache failure.
func (c *ListingCache) Get(ctx context.Context, id string) (*models.Listing, bool) {
	var l models.Listing
	ok, err := GetJSON(ctx, c.rdb, listingKeyPrefix+id, &l)
	if err != nil {
		c.logger.Warn("Listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &l, true
}

// Put caches l. Failures are logged and ignored.
func (c *ListingCache) Put(ctx context.Context, l *models.Listing) {
	if c.ttl <= 0 {
		return
	}
	if err := SetJSON(ctx, c.rdb, listingKeyPrefix+l.ID, l, c.ttl); err != nil {
		c.logger.Warn("Listing cache write failed", zap.String("listing_id", l.ID), zap.Error(err))
	}
}
