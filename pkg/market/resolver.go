package market

import (
	"context"
	"fmt"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// AverageDepth is the number of book levels used for the weighted average prices
const AverageDepth = 5

// Lookuper finds a cached market by ticker
type Lookuper interface {
	Lookup(ticker string) (core.Market, error)
}

// Resolver builds MarketDetails from cached metadata and fresh book/summary data
type Resolver struct {
	markets Lookuper
	fetcher core.MarketFetcher
}

// NewResolver creates a resolver. Book state is never cached.
func NewResolver(markets Lookuper, fetcher core.MarketFetcher) *Resolver {
	return &Resolver{
		markets: markets,
		fetcher: fetcher,
	}
}

// Market returns the cached market for a ticker
func (r *Resolver) Market(ticker string) (core.Market, error) {
	return r.markets.Lookup(ticker)
}

// Resolve returns the current details of a market
func (r *Resolver) Resolve(ctx context.Context, ticker string) (core.MarketDetails, error) {
	_, details, err := r.ResolveMarket(ctx, ticker)
	return details, err
}

// ResolveMarket returns the cached market together with its current details.
// Both come from a single cache read, so tick sizes always match the details.
func (r *Resolver) ResolveMarket(ctx context.Context, ticker string) (core.Market, core.MarketDetails, error) {
	market, err := r.markets.Lookup(ticker)
	if err != nil {
		return core.Market{}, core.MarketDetails{}, err
	}

	var (
		book    core.OrderBook
		summary core.MarketSummary
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		book, err = r.fetcher.FetchOrderBook(groupCtx, market)
		if err != nil {
			return fmt.Errorf("order book: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		summary, err = r.fetcher.FetchMarketSummary(groupCtx, market)
		if err != nil {
			return fmt.Errorf("market summary: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return core.Market{}, core.MarketDetails{}, fmt.Errorf("%w: %s: %w", core.ErrUpstreamUnavailable, market.Ticker, err)
	}

	// an empty summary decodes to zero, which is not a quote
	if !summary.Price.IsPositive() {
		return core.Market{}, core.MarketDetails{}, fmt.Errorf("%w: %s: no last price in market summary",
			core.ErrUpstreamUnavailable, market.Ticker)
	}

	return market, buildDetails(market, book, summary), nil
}

func buildDetails(market core.Market, book core.OrderBook, summary core.MarketSummary) core.MarketDetails {
	details := core.MarketDetails{
		MarketID: market.ID,
		Ticker:   market.Ticker,
		Price:    summary.Price,
		High:     summary.High,
		Low:      summary.Low,
		Open:     summary.Open,
		Volume:   summary.Volume,

		BestBid:          BestBid(book.Bids),
		BestAsk:          BestAsk(book.Asks),
		AverageBuyPrice:  WeightedAverage(book.Bids, AverageDepth),
		AverageSellPrice: WeightedAverage(book.Asks, AverageDepth),
	}

	switch {
	case summary.Change.Valid:
		details.Change = summary.Change.Decimal
	case summary.Open.IsPositive():
		details.Change = summary.Price.Sub(summary.Open).Div(summary.Open).Mul(decimal.NewFromInt(100))
	}

	return details
}

// BestBid returns the highest bid price, if any
func BestBid(bids []core.PriceLevel) decimal.NullDecimal {
	if len(bids) == 0 {
		return decimal.NullDecimal{}
	}

	best := lo.MaxBy(bids, func(a, b core.PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})
	return decimal.NewNullDecimal(best.Price)
}

// BestAsk returns the lowest ask price, if any
func BestAsk(asks []core.PriceLevel) decimal.NullDecimal {
	if len(asks) == 0 {
		return decimal.NullDecimal{}
	}

	best := lo.MinBy(asks, func(a, b core.PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})
	return decimal.NewNullDecimal(best.Price)
}

// WeightedAverage returns the quantity-weighted mean price of the first depth levels.
// It is absent when there are no levels or their quantities sum to zero.
func WeightedAverage(levels []core.PriceLevel, depth int) decimal.NullDecimal {
	top := lo.Slice(levels, 0, depth)
	if len(top) == 0 {
		return decimal.NullDecimal{}
	}

	notional := decimal.Zero
	quantity := decimal.Zero
	for _, level := range top {
		notional = notional.Add(level.Price.Mul(level.Quantity))
		quantity = quantity.Add(level.Quantity)
	}

	if !quantity.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(notional.Div(quantity))
}
