package order

import (
	"fmt"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
)

// DefaultSlippage is the buffer applied around the reference price of a market order
var DefaultSlippage = decimal.RequireFromString("0.02")

// PricingPolicy derives the worst acceptable price of a market order.
// The protocol needs a price bound even for market orders.
type PricingPolicy struct {
	Slippage decimal.Decimal
}

// NewPricingPolicy creates a policy with the default slippage
func NewPricingPolicy() PricingPolicy {
	return PricingPolicy{Slippage: DefaultSlippage}
}

// ReferencePrice picks the price the buffer is applied to.
// Buy: best ask, then average sell price, then last price.
// Sell: best bid, then average buy price, then last price.
func ReferencePrice(side core.SideType, details core.MarketDetails) (decimal.Decimal, error) {
	switch side {
	case core.SideTypeBuy:
		if details.BestAsk.Valid {
			return details.BestAsk.Decimal, nil
		}
		if details.AverageSellPrice.Valid {
			return details.AverageSellPrice.Decimal, nil
		}
	case core.SideTypeSell:
		if details.BestBid.Valid {
			return details.BestBid.Decimal, nil
		}
		if details.AverageBuyPrice.Valid {
			return details.AverageBuyPrice.Decimal, nil
		}
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown side %q", core.ErrQuantization, side)
	}
	return details.Price, nil
}

// WorstPrice computes the tick-aligned worst price for side.
// The result is always rounded up to the price tick, for sells too.
func (p PricingPolicy) WorstPrice(side core.SideType, details core.MarketDetails, tick decimal.Decimal) (decimal.Decimal, error) {
	reference, err := ReferencePrice(side, details)
	if err != nil {
		return decimal.Zero, err
	}
	if !reference.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no usable reference price for %s", core.ErrQuantization, details.Ticker)
	}

	factor := decimal.NewFromInt(1).Add(p.Slippage)
	if side == core.SideTypeSell {
		factor = decimal.NewFromInt(1).Sub(p.Slippage)
	}

	return CeilToTick(reference.Mul(factor), tick)
}

// WorstPrice computes the worst price with the default policy
func WorstPrice(side core.SideType, details core.MarketDetails, tick decimal.Decimal) (decimal.Decimal, error) {
	return NewPricingPolicy().WorstPrice(side, details, tick)
}
