package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "geocode:"

// Store is the subset of *redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cached remembers successful lookups in Redis for ttl. Redis errors are
// logged and the lookup falls through to the wrapped Geocoder.
type Cached struct {
	next   Geocoder
	store  Store
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCached(next Geocoder, store Store, ttl time.Duration, logger *zerolog.Logger) *Cached {
	return &Cached{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// cacheKey normalises place so spelling variants in case and spacing share
// an entry.
func cacheKey(place string) string {
	return cacheKeyPrefix + strings.Join(strings.Fields(strings.ToLower(place)), " ")
}

func (c *Cached) Geocode(ctx context.Context, place string) (*model.Location, error) {
	key := cacheKey(place)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var loc model.Location
		if err := json.Unmarshal(raw, &loc); err == nil {
			return &loc, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding unreadable geocode cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
	}

	loc, err := c.next.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(loc); err == nil {
		if err := c.store.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
		}
	}

	return loc, nil
}

func (c *Cached) Resolve(ctx context.Context, place string) (query.Point, error) {
	return resolve(ctx, c, place)
}
