package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
)

// RedisCache wraps an upstream Oracle and caches ToGBP results in Redis,
// the way the teacher's realtime price path treats Redis as a read-through
// cache in front of a slower source (internal/services/socket/realtime.go).
//
// A cache miss calls through to Upstream, derives the rate from it, stores
// that rate, and converts with it. Because amount varies per call while rate
// does not, the cache key and value are the *rate* itself (1 GBP = rate), not the converted
// amount; ToGBP recomputes the division locally so repeated calls for the
// same (currency, date) but different amounts still hit the cache.
type RedisCache struct {
	Client   *redis.Client
	Upstream Oracle
	Mode     Mode
	TTL      time.Duration
}

// NewRedisCache constructs a cache-fronted oracle. ttl of zero means the
// cached rate never expires for the lifetime of the Redis keyspace.
func NewRedisCache(client *redis.Client, upstream Oracle, mode Mode, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, Upstream: upstream, Mode: mode, TTL: ttl}
}

func (c *RedisCache) cacheKey(currency string, date calendar.DayKey) string {
	period := date.String()
	if c.Mode == Monthly {
		period = fmt.Sprintf("%04d-%02d", date.Time().Year(), date.Time().Month())
	} else {
		period = effectiveDailyDate(date).String()
	}
	return fmt.Sprintf("fx:%s:%s", currency, period)
}

// rate returns 1 GBP = rate for currency on date, reading through the Redis
// cache in front of c.Upstream.
func (c *RedisCache) rate(ctx context.Context, currency string, date calendar.DayKey) (dec.Decimal, error) {
	key := c.cacheKey(currency, date)

	cached, err := c.Client.Get(ctx, key).Result()
	if err == nil {
		return dec.New(cached)
	}
	if err != redis.Nil {
		return dec.Decimal{}, fmt.Errorf("fx: redis get %s: %w", key, err)
	}

	// Miss: derive the rate from the upstream by converting a unit amount
	// and inverting, since Oracle only exposes ToGBP rather than a raw
	// rate() call.
	one := dec.One
	gbp, err := c.Upstream.ToGBP(ctx, one, currency, date)
	if err != nil {
		return dec.Decimal{}, err
	}
	if gbp.IsZero() {
		return dec.Decimal{}, &RateMissingError{Currency: currency, Date: date}
	}
	rate := one.Div(gbp)

	if setErr := c.Client.Set(ctx, key, rate.String(), c.TTL).Err(); setErr != nil {
		// Caching is best-effort; a write failure must not fail the
		// conversion itself.
		return rate, nil
	}
	return rate, nil
}

// ToGBP implements Oracle.
func (c *RedisCache) ToGBP(ctx context.Context, amount dec.Decimal, currency string, date calendar.DayKey) (dec.Decimal, error) {
	rate, err := c.rate(ctx, currency, date)
	if err != nil {
		return dec.Decimal{}, err
	}
	return amount.Div(rate), nil
}
