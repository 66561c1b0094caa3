package rates

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/logging"
)

// Cache holds the last fetched USD price for the configured TTL. A fresh value
// is served without touching the source; once stale, the next read refetches.
// If the refetch fails, the stale value is served as a fallback so brief
// upstream outages do not surface to callers.
type Cache struct {
	source PriceSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	price     decimal.Decimal
	fetchedAt time.Time
	hasValue  bool
}

func NewCache(source PriceSource, ttl time.Duration) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// CurrentUSDPrice returns the cached or refetched price. The second return is
// false only when no price has ever been fetched and the source is failing.
func (c *Cache) CurrentUSDPrice(ctx context.Context) (decimal.Decimal, bool) {
	price, _, ok := c.CurrentUSDQuote(ctx)
	return price, ok
}

// CurrentUSDQuote is CurrentUSDPrice plus the time the price was observed at
// the source. On a stale fallback that is the old fetch time, not now.
func (c *Cache) CurrentUSDQuote(ctx context.Context) (decimal.Decimal, time.Time, bool) {
	c.mu.RLock()
	if c.hasValue && c.now().Sub(c.fetchedAt) < c.ttl {
		price, fetchedAt := c.price, c.fetchedAt
		c.mu.RUnlock()
		return price, fetchedAt, true
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if c.hasValue && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.price, c.fetchedAt, true
	}

	price, err := c.source.FetchUSDPrice(ctx)
	if err != nil {
		log := logging.FromContext(ctx)
		if c.hasValue {
			log.Warn("price fetch failed, serving stale value",
				"error", err,
				"stale_age_s", c.now().Sub(c.fetchedAt).Seconds(),
			)
			return c.price, c.fetchedAt, true
		}
		log.Warn("price fetch failed, no cached value", "error", err)
		return decimal.Zero, time.Time{}, false
	}

	c.price = price
	c.fetchedAt = c.now()
	c.hasValue = true
	return c.price, c.fetchedAt, true
}
