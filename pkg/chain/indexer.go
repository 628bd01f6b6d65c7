// Package chain implements the read side of the chain client over the indexer HTTP APIs
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultExchangeURL = "https://sentry.exchange.grpc-web.injective.network"
	DefaultChronosURL  = "https://sentry.exchange.grpc-web.injective.network"
	DefaultTimeout     = 10 * time.Second

	marketsPath   = "/api/exchange/spot/v1/markets"
	orderbookPath = "/api/exchange/spot/v2/orderbook/"
	summaryPath   = "/api/chronos/v1/market/summary"

	activeStatus = "active"
)

// StatusError is returned for non-2xx indexer responses
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("indexer %s: status %d: %s", e.URL, e.Status, e.Body)
}

// Indexer fetches markets, order books and summaries. It does not retry.
type Indexer struct {
	exchangeURL string
	chronosURL  string
	client      *http.Client
	limiter     *rate.Limiter
	log         logger.Logger
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) IndexerOption {
	return func(i *Indexer) {
		i.client = client
	}
}

// WithLogger sets the indexer logger
func WithLogger(log logger.Logger) IndexerOption {
	return func(i *Indexer) {
		i.log = log
	}
}

var _ core.MarketFetcher = (*Indexer)(nil)

// NewIndexer creates an indexer client from settings, falling back to public endpoints
func NewIndexer(settings core.IndexerSettings, options ...IndexerOption) *Indexer {
	limit := rate.Inf
	if settings.RateLimit > 0 {
		limit = rate.Limit(settings.RateLimit)
	}

	i := &Indexer{
		exchangeURL: strings.TrimRight(lo.Ternary(settings.ExchangeURL == "", DefaultExchangeURL, settings.ExchangeURL), "/"),
		chronosURL:  strings.TrimRight(lo.Ternary(settings.ChronosURL == "", DefaultChronosURL, settings.ChronosURL), "/"),
		client: &http.Client{
			Timeout: lo.Ternary(settings.Timeout > 0, settings.Timeout, DefaultTimeout),
		},
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.Nop(),
	}

	for _, option := range options {
		option(i)
	}

	return i
}

type tokenMeta struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

type spotMarket struct {
	MarketID            string          `json:"marketId"`
	MarketStatus        string          `json:"marketStatus"`
	Ticker              string          `json:"ticker"`
	BaseTokenMeta       *tokenMeta      `json:"baseTokenMeta"`
	QuoteTokenMeta      *tokenMeta      `json:"quoteTokenMeta"`
	MinPriceTickSize    decimal.Decimal `json:"minPriceTickSize"`
	MinQuantityTickSize decimal.Decimal `json:"minQuantityTickSize"`
}

type marketsResponse struct {
	Markets []spotMarket `json:"markets"`
}

type bookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type orderbookResponse struct {
	Orderbook struct {
		Buys  []bookLevel `json:"buys"`
		Sells []bookLevel `json:"sells"`
	} `json:"orderbook"`
}

type summaryResponse struct {
	Open   decimal.Decimal     `json:"open"`
	High   decimal.Decimal     `json:"high"`
	Low    decimal.Decimal     `json:"low"`
	Price  decimal.Decimal     `json:"price"`
	Volume decimal.Decimal     `json:"volume"`
	Change decimal.NullDecimal `json:"change"`
}

// FetchMarkets returns every active spot market with token metadata.
// Markets without metadata cannot be quantized and are skipped.
func (i *Indexer) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	var resp marketsResponse
	endpoint := i.exchangeURL + marketsPath + "?marketStatus=" + activeStatus
	if err := i.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	markets := make([]core.Market, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		if m.MarketStatus != "" && m.MarketStatus != activeStatus {
			continue
		}
		if m.BaseTokenMeta == nil || m.QuoteTokenMeta == nil {
			i.log.WithField("market", m.MarketID).Debugf("skipping %s: missing token metadata", m.Ticker)
			continue
		}
		markets = append(markets, toMarket(m))
	}

	return markets, nil
}

func toMarket(m spotMarket) core.Market {
	base, quote := m.BaseTokenMeta.Decimals, m.QuoteTokenMeta.Decimals
	priceTick := m.MinPriceTickSize.Shift(base - quote)
	quantityTick := m.MinQuantityTickSize.Shift(-base)

	baseSymbol, quoteSymbol := m.BaseTokenMeta.Symbol, m.QuoteTokenMeta.Symbol
	if parts := strings.SplitN(m.Ticker, "/", 2); len(parts) == 2 {
		baseSymbol = lo.Ternary(baseSymbol == "", parts[0], baseSymbol)
		quoteSymbol = lo.Ternary(quoteSymbol == "", parts[1], quoteSymbol)
	}

	return core.Market{
		ID:                     m.MarketID,
		Ticker:                 m.Ticker,
		BaseSymbol:             baseSymbol,
		QuoteSymbol:            quoteSymbol,
		BaseDecimals:           base,
		QuoteDecimals:          quote,
		MinPriceTickSize:       priceTick,
		MinQuantityTickSize:    quantityTick,
		PriceTensMultiplier:    core.TensMultiplier(priceTick),
		QuantityTensMultiplier: core.TensMultiplier(quantityTick),
	}
}

// FetchOrderBook returns the book of a market in human units, best level first
func (i *Indexer) FetchOrderBook(ctx context.Context, market core.Market) (core.OrderBook, error) {
	var resp orderbookResponse
	if err := i.get(ctx, i.exchangeURL+orderbookPath+url.PathEscape(market.ID), &resp); err != nil {
		return core.OrderBook{}, err
	}

	convert := func(level bookLevel, _ int) core.PriceLevel {
		return core.PriceLevel{
			Price:    level.Price.Shift(market.BaseDecimals - market.QuoteDecimals),
			Quantity: level.Quantity.Shift(-market.BaseDecimals),
		}
	}

	return core.OrderBook{
		Bids: lo.Map(resp.Orderbook.Buys, convert),
		Asks: lo.Map(resp.Orderbook.Sells, convert),
	}, nil
}

// FetchMarketSummary returns the rolling 24h summary of a market
func (i *Indexer) FetchMarketSummary(ctx context.Context, market core.Market) (core.MarketSummary, error) {
	query := url.Values{}
	query.Set("marketId", market.ID)
	query.Set("resolution", "24h")

	var resp summaryResponse
	if err := i.get(ctx, i.chronosURL+summaryPath+"?"+query.Encode(), &resp); err != nil {
		return core.MarketSummary{}, err
	}

	return core.MarketSummary{
		Open:   resp.Open,
		High:   resp.High,
		Low:    resp.Low,
		Price:  resp.Price,
		Volume: resp.Volume,
		Change: resp.Change,
	}, nil
}

func (i *Indexer) get(ctx context.Context, endpoint string, out any) error {
	if err := i.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	i.log.WithFields(map[string]any{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debugf("GET %s", endpoint)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
