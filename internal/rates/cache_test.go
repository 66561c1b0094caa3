package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSource) FetchUSDPrice(_ context.Context) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func newTestCache(source PriceSource, ttl time.Duration, clock *time.Time) *Cache {
	c := NewCache(source, ttl)
	c.now = func() time.Time { return *clock }
	return c
}

func TestCache_FreshValueServedWithoutFetch(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{price: decimal.NewFromFloat(2.50)}
	cache := newTestCache(src, 5*time.Minute, &clock)

	price, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(2.50)))
	assert.Equal(t, 1, src.calls)

	// One second before expiry: still served from cache.
	clock = clock.Add(5*time.Minute - time.Second)
	price, ok = cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(2.50)))
	assert.Equal(t, 1, src.calls)
}

func TestCache_StaleValueRefetched(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{price: decimal.NewFromFloat(2.50)}
	cache := newTestCache(src, 5*time.Minute, &clock)

	_, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)

	src.price = decimal.NewFromFloat(3.10)
	clock = clock.Add(5*time.Minute + time.Second)

	price, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(3.10)))
	assert.Equal(t, 2, src.calls)
}

func TestCache_FallsBackToStaleOnFetchFailure(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{price: decimal.NewFromFloat(2.50)}
	cache := newTestCache(src, 5*time.Minute, &clock)

	_, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)

	src.err = errors.New("upstream down")
	clock = clock.Add(10 * time.Minute)

	price, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(2.50)))
}

func TestCache_UnknownWhenNeverFetched(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{err: errors.New("upstream down")}
	cache := newTestCache(src, 5*time.Minute, &clock)

	_, ok := cache.CurrentUSDPrice(context.Background())
	assert.False(t, ok)
}

func TestCache_QuoteCarriesFetchTime(t *testing.T) {
	fetchTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := fetchTime
	src := &fakeSource{price: decimal.NewFromFloat(2.50)}
	cache := newTestCache(src, 5*time.Minute, &clock)

	_, asOf, ok := cache.CurrentUSDQuote(context.Background())
	require.True(t, ok)
	assert.Equal(t, fetchTime, asOf)

	// A cache hit later still reports when the price was fetched.
	clock = clock.Add(2 * time.Minute)
	_, asOf, ok = cache.CurrentUSDQuote(context.Background())
	require.True(t, ok)
	assert.Equal(t, fetchTime, asOf)

	// A stale fallback reports the old fetch time, not now.
	src.err = errors.New("upstream down")
	clock = clock.Add(10 * time.Minute)
	_, asOf, ok = cache.CurrentUSDQuote(context.Background())
	require.True(t, ok)
	assert.Equal(t, fetchTime, asOf)
}

func TestCache_RecoversAfterFailure(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{err: errors.New("upstream down")}
	cache := newTestCache(src, 5*time.Minute, &clock)

	_, ok := cache.CurrentUSDPrice(context.Background())
	require.False(t, ok)

	src.err = nil
	src.price = decimal.NewFromFloat(1.75)

	price, ok := cache.CurrentUSDPrice(context.Background())
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(1.75)))
}
