package market

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Refresh(t *testing.T) {
	fetcher := &fakeFetcher{markets: []core.Market{injMarket(), atomMarket()}}
	cache := NewCache(fetcher, logger.Nop())

	_, err := cache.Lookup("INJ/USDT")
	require.ErrorIs(t, err, core.ErrMarketNotFound)

	require.NoError(t, cache.Refresh(context.Background()))
	require.Equal(t, 2, cache.Len())
	require.False(t, cache.LastRefresh().IsZero())

	market, err := cache.Lookup("inj/usdt")
	require.NoError(t, err)
	require.Equal(t, "0xinj", market.ID)

	markets := cache.Markets()
	require.Len(t, markets, 2)
	require.Equal(t, "ATOM/USDT", markets[0].Ticker)
	require.Equal(t, []string{"USDT"}, cache.QuoteSymbols())
}

func TestCache_RefreshFailureKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{markets: []core.Market{injMarket()}}
	cache := NewCache(fetcher, logger.Nop())
	require.NoError(t, cache.Refresh(context.Background()))
	refreshedAt := cache.LastRefresh()

	fetcher.marketsErr = errUnreachable
	err := cache.Refresh(context.Background())
	require.ErrorIs(t, err, errUnreachable)

	market, err := cache.Lookup("INJ/USDT")
	require.NoError(t, err)
	require.Equal(t, injMarket().ID, market.ID)
	require.Equal(t, refreshedAt, cache.LastRefresh())
}

func TestCache_RefreshReplacesSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{markets: []core.Market{injMarket()}}
	cache := NewCache(fetcher, logger.Nop())
	require.NoError(t, cache.Refresh(context.Background()))

	fetcher.markets = []core.Market{atomMarket()}
	require.NoError(t, cache.Refresh(context.Background()))

	_, err := cache.Lookup("INJ/USDT")
	require.ErrorIs(t, err, core.ErrMarketNotFound)
	_, err = cache.Lookup("ATOM/USDT")
	require.NoError(t, err)
}

func TestCache_Warmup(t *testing.T) {
	t.Run("succeeds", func(t *testing.T) {
		cache := NewCache(&fakeFetcher{markets: []core.Market{injMarket()}}, logger.Nop())
		require.NoError(t, cache.Warmup(context.Background()))
		require.Equal(t, 1, cache.Len())
	})

	t.Run("gives up when context ends", func(t *testing.T) {
		cache := NewCache(&fakeFetcher{marketsErr: errUnreachable}, logger.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, cache.Warmup(ctx), context.Canceled)
	})
}

func (f *fakeFetcher) setMarkets(markets []core.Market) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets = markets
}

func TestCache_ReadersSeeWholeSnapshots(t *testing.T) {
	oldGen := []core.Market{injMarket(), atomMarket()}

	newINJ := injMarket()
	newINJ.ID = "0xinj-new"
	newINJ.MinPriceTickSize = d("0.1")
	newATOM := atomMarket()
	newATOM.ID = "0xatom-new"
	osmo := atomMarket()
	osmo.ID = "0xosmo-new"
	osmo.Ticker = "OSMO/USDT"
	osmo.BaseSymbol = "OSMO"
	newGen := []core.Market{newINJ, newATOM, osmo}

	fetcher := &fakeFetcher{markets: oldGen}
	cache := NewCache(fetcher, logger.Nop())
	require.NoError(t, cache.Refresh(context.Background()))

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				markets := cache.Markets()
				switch len(markets) {
				case 2:
					for _, m := range markets {
						assert.False(t, strings.HasSuffix(m.ID, "-new"), "old snapshot holds %s", m.ID)
					}
				case 3:
					for _, m := range markets {
						assert.True(t, strings.HasSuffix(m.ID, "-new"), "new snapshot holds %s", m.ID)
					}
				default:
					assert.Fail(t, "unexpected snapshot size", "%d markets", len(markets))
				}

				market, err := cache.Lookup("INJ/USDT")
				if assert.NoError(t, err) {
					if market.ID == "0xinj-new" {
						assert.True(t, d("0.1").Equal(market.MinPriceTickSize))
					} else {
						assert.True(t, d("0.01").Equal(market.MinPriceTickSize))
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			fetcher.setMarkets(newGen)
		} else {
			fetcher.setMarkets(oldGen)
		}
		require.NoError(t, cache.Refresh(context.Background()))
	}
	close(stop)
	readers.Wait()
}
