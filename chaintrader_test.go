package chaintrader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var injUSDT = core.Market{
	ID:                     "0xinj",
	Ticker:                 "INJ/USDT",
	BaseSymbol:             "INJ",
	QuoteSymbol:            "USDT",
	BaseDecimals:           18,
	QuoteDecimals:          6,
	MinPriceTickSize:       d("0.01"),
	MinQuantityTickSize:    d("0.001"),
	PriceTensMultiplier:    -2,
	QuantityTensMultiplier: -3,
}

type fakeFetcher struct {
	mu    sync.Mutex
	price decimal.Decimal
}

func (f *fakeFetcher) setPrice(price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = d(price)
}

func (f *fakeFetcher) FetchMarkets(context.Context) ([]core.Market, error) {
	return []core.Market{injUSDT}, nil
}

func (f *fakeFetcher) FetchMarketSummary(context.Context, core.Market) (core.MarketSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return core.MarketSummary{Price: f.price, Open: f.price, High: f.price, Low: f.price}, nil
}

func (f *fakeFetcher) FetchOrderBook(context.Context, core.Market) (core.OrderBook, error) {
	return core.OrderBook{
		Bids: []core.PriceLevel{{Price: d("29.90"), Quantity: d("10")}},
		Asks: []core.PriceLevel{{Price: d("30.00"), Quantity: d("10")}},
	}, nil
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []core.SpotOrderMessage
	keys []string
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, msg core.SpotOrderMessage, key string) (core.TxResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.keys = append(r.keys, key)
	return core.TxResult{TxHash: "0xfeed"}, nil
}

type plainDecrypter struct{}

func (plainDecrypter) Decrypt(_ int64, w core.Wallet) (string, error) {
	return "decrypted-" + w.EncryptedPrivateKey, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts map[int64][]string
}

func (r *recordingNotifier) Notify(userID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.texts == nil {
		r.texts = map[int64][]string{}
	}
	r.texts[userID] = append(r.texts[userID], text)
}

func (r *recordingNotifier) count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts[userID])
}

func TestBot_Run(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.setPrice("29.95")
	broadcaster := &recordingBroadcaster{}
	notifier := &recordingNotifier{}

	settings := &core.Settings{
		StoragePath:     ":memory:",
		MarketsInterval: time.Hour,
		AlertsInterval:  10 * time.Millisecond,
	}

	bot, err := NewBot(settings, fetcher,
		WithBroadcaster(broadcaster),
		WithKeyDecrypter(plainDecrypter{}),
		WithNotifier(notifier),
	)
	require.NoError(t, err)
	defer bot.Close()

	interrupted := &core.OrderRecord{
		Sender:    "inj1interrupted",
		Ticker:    "INJ/USDT",
		Status:    core.OrderStatusTypePending,
		CreatedAt: time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
	}
	require.NoError(t, bot.storage.CreateOrder(interrupted))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	require.Eventually(t, func() bool {
		return bot.Markets().Len() == 1
	}, time.Second, 5*time.Millisecond)

	t.Run("interrupted orders are marked unknown", func(t *testing.T) {
		orders, err := bot.Controller().Orders(core.WithSender("inj1interrupted"))
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, core.OrderStatusTypeUnknown, orders[0].Status)
	})

	t.Run("trade with the default wallet", func(t *testing.T) {
		require.NoError(t, bot.storage.CreateWallet(&core.Wallet{
			UserID:              1,
			Name:                "main",
			Address:             "inj14au322k9munkmx5wrchz9q30juf5wjgz2cfqku",
			EncryptedPrivateKey: "secret",
		}))
		require.NoError(t, bot.storage.SetDefaultWallet(1, "main"))

		text, err := bot.Assistant().Trade(ctx, 1, core.SideTypeBuy, "INJ/USDT", d("1.5"))
		require.NoError(t, err)
		assert.Contains(t, text, "0xfeed")

		require.Len(t, broadcaster.msgs, 1)
		msg := broadcaster.msgs[0]
		assert.Equal(t, "30600000", msg.Price)
		assert.Equal(t, "1500000000000000000000000000000000000", msg.Quantity)
		assert.Equal(t, "0xaf79152ac5df276d9a8e1e2e22822f9713474902000000000000000000000000", msg.SubaccountID)
		assert.Equal(t, "decrypted-secret", broadcaster.keys[0])

		orders, err := bot.Controller().Orders(core.WithSender("inj14au322k9munkmx5wrchz9q30juf5wjgz2cfqku"))
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, core.OrderStatusTypeSubmitted, orders[0].Status)
	})

	t.Run("alert fires once on the timer", func(t *testing.T) {
		_, err := bot.Monitor().Add(1, "INJ/USDT", d("25"), core.AlertConditionBelow)
		require.NoError(t, err)

		fetcher.setPrice("24.5")
		require.Eventually(t, func() bool {
			return notifier.count(1) == 1
		}, time.Second, 5*time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, notifier.count(1))
		assert.Zero(t, bot.Monitor().Count())
	})

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestBot_TradingDisabledWithoutBroadcaster(t *testing.T) {
	bot, err := NewBot(&core.Settings{StoragePath: ":memory:"}, &fakeFetcher{})
	require.NoError(t, err)
	defer bot.Close()

	assert.False(t, bot.Controller().CanBroadcast())

	text, err := bot.Assistant().Trade(context.Background(), 1, core.SideTypeBuy, "INJ/USDT", d("1"))
	require.NoError(t, err)
	assert.Contains(t, text, "unavailable")
}
