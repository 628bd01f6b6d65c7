package order

import (
	"testing"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func null(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func TestWorstPrice_BuyAtBestAsk(t *testing.T) {
	details := core.MarketDetails{Ticker: "INJ/USDT", Price: d("29.95"), BestAsk: null("30.00")}

	worst, err := WorstPrice(core.SideTypeBuy, details, d("0.01"))
	require.NoError(t, err)
	require.True(t, d("30.60").Equal(worst), worst.String())
}

func TestWorstPrice_SellOnLastPrice(t *testing.T) {
	details := core.MarketDetails{Ticker: "INJ/USDT", Price: d("25.00")}

	worst, err := WorstPrice(core.SideTypeSell, details, d("0.01"))
	require.NoError(t, err)
	require.True(t, d("24.50").Equal(worst), worst.String())
}

func TestWorstPrice_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		side     core.SideType
		details  core.MarketDetails
		expected string
	}{
		{
			name:     "buy uses average sell price without asks",
			side:     core.SideTypeBuy,
			details:  core.MarketDetails{Price: d("9"), BestBid: null("9.5"), AverageSellPrice: null("10")},
			expected: "10.2",
		},
		{
			name:     "buy uses last price without book",
			side:     core.SideTypeBuy,
			details:  core.MarketDetails{Price: d("10"), BestBid: null("9.5"), AverageBuyPrice: null("9.4")},
			expected: "10.2",
		},
		{
			name:     "sell prefers best bid",
			side:     core.SideTypeSell,
			details:  core.MarketDetails{Price: d("12"), BestBid: null("10"), AverageBuyPrice: null("9")},
			expected: "9.8",
		},
		{
			name:     "sell uses average buy price without bids",
			side:     core.SideTypeSell,
			details:  core.MarketDetails{Price: d("12"), BestAsk: null("12.5"), AverageBuyPrice: null("10")},
			expected: "9.8",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			worst, err := WorstPrice(tc.side, tc.details, d("0.01"))
			require.NoError(t, err)
			require.True(t, d(tc.expected).Equal(worst), worst.String())
		})
	}
}

// Sell prices round up too, which is less conservative than flooring.
func TestWorstPrice_SellRoundsUp(t *testing.T) {
	details := core.MarketDetails{BestBid: null("10.03")}

	// 10.03 * 0.98 = 9.8294
	worst, err := WorstPrice(core.SideTypeSell, details, d("0.01"))
	require.NoError(t, err)
	require.True(t, d("9.83").Equal(worst), worst.String())
	require.True(t, worst.LessThan(d("10.03")))
}

func TestWorstPrice_BuyNeverBelowBestAsk(t *testing.T) {
	asks := []string{"0.0001", "0.987", "1", "30", "30.01", "99999.99", "123.456"}
	ticks := []string{"0.0001", "0.001", "0.01", "0.05", "1"}

	for _, ask := range asks {
		for _, tick := range ticks {
			details := core.MarketDetails{BestAsk: null(ask), Price: d(ask)}
			worst, err := WorstPrice(core.SideTypeBuy, details, d(tick))
			require.NoError(t, err)

			assert.True(t, worst.GreaterThanOrEqual(d(ask)), "ask %s tick %s worst %s", ask, tick, worst)
			_, rem := worst.QuoRem(d(tick), 0)
			assert.True(t, rem.IsZero(), "worst %s not aligned to %s", worst, tick)
		}
	}
}

func TestWorstPrice_SellKeepsBufferDirection(t *testing.T) {
	bids := []string{"1", "30", "250.5", "99999.99"}
	for _, bid := range bids {
		details := core.MarketDetails{BestBid: null(bid)}
		worst, err := WorstPrice(core.SideTypeSell, details, d("0.01"))
		require.NoError(t, err)
		assert.True(t, worst.LessThanOrEqual(d(bid)), "bid %s worst %s", bid, worst)
	}
}

func TestWorstPrice_Errors(t *testing.T) {
	_, err := WorstPrice(core.SideTypeBuy, core.MarketDetails{BestAsk: null("30")}, decimal.Zero)
	require.ErrorIs(t, err, core.ErrInvalidTick)

	_, err = WorstPrice(core.SideTypeSell, core.MarketDetails{}, d("0.01"))
	require.ErrorIs(t, err, core.ErrQuantization)

	_, err = WorstPrice(core.SideType("HOLD"), core.MarketDetails{Price: d("1")}, d("0.01"))
	require.ErrorIs(t, err, core.ErrQuantization)
}

func TestPricingPolicy_CustomSlippage(t *testing.T) {
	policy := PricingPolicy{Slippage: d("0.05")}
	worst, err := policy.WorstPrice(core.SideTypeBuy, core.MarketDetails{BestAsk: null("100")}, d("0.01"))
	require.NoError(t, err)
	require.True(t, d("105").Equal(worst))
}
