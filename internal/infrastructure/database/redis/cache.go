package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

const cacheName = "fragments"

// FragmentCache memoises fragment tables in Redis.  Storage and decoding
// failures are logged and counted but never surface to the caller: a broken
// cache degrades to recomputation.
type FragmentCache struct {
	client  *Client
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	prefix  string
	ttl     time.Duration
	jitter  func(time.Duration) time.Duration
	group   singleflight.Group
}

var _ fragment.ResultCache = (*FragmentCache)(nil)

type CacheOption func(*FragmentCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *FragmentCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime; zero keeps entries forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *FragmentCache) { c.ttl = ttl }
}

func WithCacheMetrics(m *prometheus.AppMetrics) CacheOption {
	return func(c *FragmentCache) { c.metrics = m }
}

func NewFragmentCache(client *Client, log logging.Logger, opts ...CacheOption) *FragmentCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &FragmentCache{
		client: client,
		logger: log,
		prefix: "autofrag:",
		ttl:    24 * time.Hour,
		jitter: jitterTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key of a fragment table.  The source is hashed so
// that arbitrarily long structures give bounded keys.
func (c *FragmentCache) Key(key fragment.CacheKey) string {
	sum := sha256.Sum256([]byte(key.Source))
	return fmt.Sprintf("%sfrag:%s:r%d:%s", c.prefix, hex.EncodeToString(sum[:]), key.Radius, key.Variant)
}

// jitterTTL spreads expiries by +/- 10%.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// GetOrCompute returns the cached table for key or computes, stores and
// returns it.  Concurrent misses on the same key share one computation.
// Errors from compute are returned unchanged and are not cached.
func (c *FragmentCache) GetOrCompute(ctx context.Context, key fragment.CacheKey,
	compute func(ctx context.Context) (molecule.FragmentCountMap, error)) (molecule.FragmentCountMap, error) {
	fullKey := c.Key(key)
	if counts, ok := c.get(ctx, fullKey); ok {
		c.recordAccess(true)
		return counts, nil
	}
	c.recordAccess(false)

	v, err, _ := c.group.Do(fullKey, func() (interface{}, error) {
		counts, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, fullKey, counts)
		return counts, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCounts(v.(molecule.FragmentCountMap)), nil
}

// Invalidate removes the tables of keys.
func (c *FragmentCache) Invalidate(ctx context.Context, keys ...fragment.CacheKey) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.Key(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}

// Purge deletes every fragment table under the cache prefix and reports how
// many keys were removed.
func (c *FragmentCache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "frag:*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("fragment cache purged", logging.Int64("deleted", deleted))
	return deleted, nil
}

func (c *FragmentCache) get(ctx context.Context, fullKey string) (molecule.FragmentCountMap, bool) {
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.recordError("get", fullKey, err)
		return nil, false
	}
	var counts molecule.FragmentCountMap
	if err := json.Unmarshal(data, &counts); err != nil {
		c.recordError("decode", fullKey, err)
		return nil, false
	}
	if counts == nil {
		counts = molecule.FragmentCountMap{}
	}
	return counts, true
}

func (c *FragmentCache) set(ctx context.Context, fullKey string, counts molecule.FragmentCountMap) {
	data, err := json.Marshal(counts)
	if err != nil {
		c.recordError("encode", fullKey, err)
		return
	}
	if err := c.client.Set(ctx, fullKey, data, c.jitter(c.ttl)).Err(); err != nil {
		c.recordError("set", fullKey, err)
	}
}

func (c *FragmentCache) recordAccess(hit bool) {
	if c.metrics != nil {
		prometheus.RecordCacheAccess(c.metrics, cacheName, hit)
	}
}

func (c *FragmentCache) recordError(operation, key string, err error) {
	c.logger.Warn("fragment cache operation failed",
		logging.String("operation", operation),
		logging.String("key", key),
		logging.Err(err))
	if c.metrics != nil {
		prometheus.RecordCacheError(c.metrics, cacheName, operation)
	}
}

func cloneCounts(in molecule.FragmentCountMap) molecule.FragmentCountMap {
	out := make(molecule.FragmentCountMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

//Personal.AI order the ending
