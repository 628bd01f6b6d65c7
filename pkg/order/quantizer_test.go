package order

import (
	"testing"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestToChainPrice(t *testing.T) {
	tests := []struct {
		name        string
		value, tick string
		base, quote int32
		expected    string
	}{
		{"INJ/USDT", "30.60", "0.01", 18, 6, "30600000"},
		{"rounds down to tick", "30.604", "0.01", 18, 6, "30600000"},
		{"rounds half up to tick", "30.605", "0.01", 18, 6, "30610000"},
		{"same decimals", "8.123", "0.001", 6, 6, "8123000000000000000"},
		{"coarse tick", "1234", "5", 6, 6, "1235000000000000000000"},
		{"zero", "0", "0.01", 18, 6, "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ToChainPrice(d(tc.value), d(tc.tick), tc.base, tc.quote)
			require.NoError(t, err)
			require.Equal(t, tc.expected, out)
		})
	}
}

func TestToChainQuantity(t *testing.T) {
	out, err := ToChainQuantity(d("1.5"), d("0.001"), 18)
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000000000000000000000", out)

	out, err = ToChainQuantity(d("2.0004"), d("0.001"), 6)
	require.NoError(t, err)
	require.Equal(t, "2000000000000000000000000", out)

	back, err := FromChainQuantity(out, 6)
	require.NoError(t, err)
	require.True(t, d("2").Equal(back))
}

func TestQuantizer_InvalidTick(t *testing.T) {
	for _, tick := range []string{"0", "-0.01"} {
		_, err := ToChainPrice(d("10"), d(tick), 18, 6)
		require.ErrorIs(t, err, core.ErrInvalidTick)

		_, err = ToChainQuantity(d("10"), d(tick), 18)
		require.ErrorIs(t, err, core.ErrInvalidTick)
	}
}

func TestQuantizer_QuantizationError(t *testing.T) {
	t.Run("finer than wire precision", func(t *testing.T) {
		_, err := ToChainPrice(d("0.0000000000000000001"), d("0.0000000000000000001"), 6, 6)
		require.ErrorIs(t, err, core.ErrQuantization)
	})

	t.Run("negative value", func(t *testing.T) {
		_, err := ToChainQuantity(d("-1"), d("0.001"), 18)
		require.ErrorIs(t, err, core.ErrQuantization)
	})

	t.Run("malformed chain value", func(t *testing.T) {
		_, err := FromChainPrice("12x", 18, 6)
		require.ErrorIs(t, err, core.ErrQuantization)
	})
}

// Every output, scaled back, is the tick multiple nearest to the input.
func TestToChainPrice_NearestTick(t *testing.T) {
	ticks := []string{"0.01", "0.001", "0.05", "0.25", "1"}
	values := []string{"0.004", "0.005", "1.2345", "29.999", "30.6", "99.875", "1000.0001", "7.125"}

	for _, tickStr := range ticks {
		tick := d(tickStr)
		for _, valueStr := range values {
			value := d(valueStr)

			out, err := ToChainPrice(value, tick, 18, 6)
			require.NoError(t, err)

			back, err := FromChainPrice(out, 18, 6)
			require.NoError(t, err)

			_, rem := back.QuoRem(tick, 0)
			assert.True(t, rem.IsZero(), "%s is not a multiple of %s", back, tick)

			distance := back.Sub(value).Abs()
			assert.True(t, distance.Mul(decimal.NewFromInt(2)).LessThanOrEqual(tick),
				"%s is more than half a tick (%s) away from %s", back, tick, value)
		}
	}
}

func TestCeilToTick(t *testing.T) {
	out, err := CeilToTick(d("9.8294"), d("0.01"))
	require.NoError(t, err)
	require.True(t, d("9.83").Equal(out))

	out, err = CeilToTick(d("30.6"), d("0.01"))
	require.NoError(t, err)
	require.True(t, d("30.6").Equal(out))

	_, err = CeilToTick(d("1"), decimal.Zero)
	require.ErrorIs(t, err, core.ErrInvalidTick)
}
