package market

import (
	"context"
	"errors"
	"sync"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
)

var errUnreachable = errors.New("indexer unreachable")

type fakeFetcher struct {
	mu         sync.Mutex
	markets    []core.Market
	marketsErr error
	books      map[string]core.OrderBook
	summaries  map[string]core.MarketSummary
	bookErr    error
	summaryErr error
	bookCalls  int
}

func (f *fakeFetcher) FetchMarkets(context.Context) ([]core.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	return f.markets, nil
}

func (f *fakeFetcher) FetchMarketSummary(_ context.Context, m core.Market) (core.MarketSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return core.MarketSummary{}, f.summaryErr
	}
	return f.summaries[m.ID], nil
}

func (f *fakeFetcher) FetchOrderBook(_ context.Context, m core.Market) (core.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookCalls++
	if f.bookErr != nil {
		return core.OrderBook{}, f.bookErr
	}
	return f.books[m.ID], nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(price, quantity string) core.PriceLevel {
	return core.PriceLevel{Price: d(price), Quantity: d(quantity)}
}

func injMarket() core.Market {
	return core.Market{
		ID:                  "0xinj",
		Ticker:              "INJ/USDT",
		BaseSymbol:          "INJ",
		QuoteSymbol:         "USDT",
		BaseDecimals:        18,
		QuoteDecimals:       6,
		MinPriceTickSize:    d("0.01"),
		MinQuantityTickSize: d("0.001"),
	}
}

func atomMarket() core.Market {
	return core.Market{
		ID:                  "0xatom",
		Ticker:              "ATOM/USDT",
		BaseSymbol:          "ATOM",
		QuoteSymbol:         "USDT",
		BaseDecimals:        6,
		QuoteDecimals:       6,
		MinPriceTickSize:    d("0.001"),
		MinQuantityTickSize: d("0.01"),
	}
}
