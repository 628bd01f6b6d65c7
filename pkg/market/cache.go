// Package market keeps the tradable market list and resolves live market details
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/StudioSol/set"
	"github.com/jpillora/backoff"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
)

// DefaultRefreshInterval is how often the market list is reloaded
const DefaultRefreshInterval = 5 * time.Minute

// Cache holds the latest market list keyed by ticker.
// The map is never mutated after publication; a refresh swaps in a new one.
type Cache struct {
	fetcher core.MarketFetcher
	log     logger.Logger

	mu          sync.RWMutex
	markets     map[string]core.Market
	lastRefresh time.Time
}

// NewCache creates an empty cache backed by the given fetcher
func NewCache(fetcher core.MarketFetcher, log logger.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		log:     log,
		markets: make(map[string]core.Market),
	}
}

func tickerKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Refresh fetches the full market list and replaces the cache.
// On failure the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	markets, err := c.fetcher.FetchMarkets(ctx)
	if err != nil {
		c.log.WithError(err).Error("market cache refresh failed, keeping previous snapshot")
		return fmt.Errorf("refresh markets: %w", err)
	}

	snapshot := make(map[string]core.Market, len(markets))
	for _, m := range markets {
		if m.Ticker == "" {
			continue
		}
		snapshot[tickerKey(m.Ticker)] = m
	}

	c.mu.Lock()
	c.markets = snapshot
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	c.log.Infof("market cache refreshed: %d markets", len(snapshot))
	return nil
}

// Lookup returns the market for a ticker
func (c *Cache) Lookup(ticker string) (core.Market, error) {
	c.mu.RLock()
	market, ok := c.markets[tickerKey(ticker)]
	c.mu.RUnlock()

	if !ok {
		return core.Market{}, fmt.Errorf("%w: %s", core.ErrMarketNotFound, ticker)
	}
	return market, nil
}

// Markets returns every cached market sorted by ticker
func (c *Cache) Markets() []core.Market {
	c.mu.RLock()
	snapshot := c.markets
	c.mu.RUnlock()

	markets := make([]core.Market, 0, len(snapshot))
	for _, m := range snapshot {
		markets = append(markets, m)
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Ticker < markets[j].Ticker
	})
	return markets
}

// QuoteSymbols returns the distinct quote symbols, in ticker order
func (c *Cache) QuoteSymbols() []string {
	quotes := set.NewLinkedHashSetString()
	for _, m := range c.Markets() {
		quotes.Add(m.QuoteSymbol)
	}

	var symbols []string
	for symbol := range quotes.Iter() {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Len returns the number of cached markets
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}

// LastRefresh returns the time of the last successful refresh
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Warmup retries the first refresh until it succeeds or ctx is done
func (c *Cache) Warmup(ctx context.Context) error {
	retry := setupBackoffRetry()
	for {
		err := c.Refresh(ctx)
		if err == nil {
			return nil
		}

		wait := retry.Duration()
		c.log.Warnf("market warmup failed, retrying in %s", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Start refreshes the cache every interval until ctx is done
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = c.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// setupBackoffRetry creates a backoff for the startup refresh
func setupBackoffRetry() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
	}
}
