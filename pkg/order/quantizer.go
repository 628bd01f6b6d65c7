package order

import (
	"fmt"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
)

// DecPrecision is the number of fractional digits of the chain Dec wire format
const DecPrecision = 18

// ToChainPrice aligns a human price to tick and renders it in the chain fixed-point format.
// The spot price on chain is expressed in quote base units per base base unit.
func ToChainPrice(value, tick decimal.Decimal, baseDecimals, quoteDecimals int32) (string, error) {
	aligned, err := RoundToTick(value, tick)
	if err != nil {
		return "", err
	}
	return toFixedPoint(aligned, quoteDecimals-baseDecimals)
}

// ToChainQuantity aligns a human quantity to tick and renders it in the chain fixed-point format
func ToChainQuantity(value, tick decimal.Decimal, baseDecimals int32) (string, error) {
	aligned, err := RoundToTick(value, tick)
	if err != nil {
		return "", err
	}
	return toFixedPoint(aligned, baseDecimals)
}

// FromChainPrice converts a fixed-point chain price back to human units
func FromChainPrice(value string, baseDecimals, quoteDecimals int32) (decimal.Decimal, error) {
	return fromFixedPoint(value, quoteDecimals-baseDecimals)
}

// FromChainQuantity converts a fixed-point chain quantity back to human units
func FromChainQuantity(value string, baseDecimals int32) (decimal.Decimal, error) {
	return fromFixedPoint(value, baseDecimals)
}

// RoundToTick rounds value to the nearest multiple of tick, halves away from zero
func RoundToTick(value, tick decimal.Decimal) (decimal.Decimal, error) {
	if tick.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrInvalidTick, tick)
	}

	quo, rem := value.QuoRem(tick, 0)
	if rem.Abs().Mul(decimal.NewFromInt(2)).GreaterThanOrEqual(tick) {
		if value.Sign() < 0 {
			quo = quo.Sub(decimal.NewFromInt(1))
		} else {
			quo = quo.Add(decimal.NewFromInt(1))
		}
	}
	return quo.Mul(tick), nil
}

// CeilToTick rounds value up to the next multiple of tick
func CeilToTick(value, tick decimal.Decimal) (decimal.Decimal, error) {
	if tick.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrInvalidTick, tick)
	}

	quo, rem := value.QuoRem(tick, 0)
	if rem.Sign() > 0 {
		quo = quo.Add(decimal.NewFromInt(1))
	}
	return quo.Mul(tick), nil
}

func toFixedPoint(value decimal.Decimal, decimals int32) (string, error) {
	if value.Sign() < 0 {
		return "", fmt.Errorf("%w: negative value %s", core.ErrQuantization, value)
	}

	scaled := value.Shift(decimals + DecPrecision)
	if !scaled.IsInteger() {
		return "", fmt.Errorf("%w: %s is finer than 10^-%d", core.ErrQuantization, value, decimals+DecPrecision)
	}
	return scaled.StringFixed(0), nil
}

func fromFixedPoint(value string, decimals int32) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", core.ErrQuantization, err)
	}
	return parsed.Shift(-(decimals + DecPrecision)), nil
}
