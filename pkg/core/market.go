package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Market contains the static metadata of a spot market
type Market struct {
	ID          string
	Ticker      string
	BaseSymbol  string
	QuoteSymbol string

	BaseDecimals  int32
	QuoteDecimals int32

	// Tick sizes are expressed in human units (e.g. 0.01 USDT, 0.001 INJ)
	MinPriceTickSize    decimal.Decimal
	MinQuantityTickSize decimal.Decimal

	// Base-10 exponents of the tick sizes, e.g. 0.01 -> -2
	PriceTensMultiplier    int32
	QuantityTensMultiplier int32
}

// TensMultiplier returns the base-10 exponent of a tick size.
// Ticks that are not a power of ten report the exponent of their least significant digit.
func TensMultiplier(tick decimal.Decimal) int32 {
	if tick.Sign() <= 0 {
		return 0
	}

	exp := tick.Exponent()
	coef := tick.Coefficient()
	ten := big.NewInt(10)
	rem := new(big.Int)
	for coef.Sign() != 0 {
		quo := new(big.Int)
		quo.QuoRem(coef, ten, rem)
		if rem.Sign() != 0 {
			break
		}
		coef = quo
		exp++
	}

	return exp
}

// PriceLevel is a single aggregated level of the order book
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook holds both sides of a book, sorted best-first
type OrderBook struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// MarketSummary is the rolling 24h summary of a market
type MarketSummary struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Price  decimal.Decimal
	Volume decimal.Decimal
	Change decimal.NullDecimal
}

// MarketDetails combines market metadata with a live book snapshot and the rolling summary.
// Book-derived prices may each be absent and must be checked before use.
type MarketDetails struct {
	MarketID string
	Ticker   string

	Price  decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Open   decimal.Decimal
	Volume decimal.Decimal
	Change decimal.Decimal

	BestBid          decimal.NullDecimal
	BestAsk          decimal.NullDecimal
	AverageBuyPrice  decimal.NullDecimal
	AverageSellPrice decimal.NullDecimal
}
