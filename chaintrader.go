// Package chaintrader wires the market data, pricing, order and alert services
// behind a chat assistant and runs their recurring timers.
package chaintrader

import (
	"context"
	"fmt"
	"time"

	"github.com/raykavin/chaintrader/pkg/alert"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
	"github.com/raykavin/chaintrader/pkg/market"
	"github.com/raykavin/chaintrader/pkg/notification"
	"github.com/raykavin/chaintrader/pkg/order"
	"github.com/raykavin/chaintrader/pkg/storage"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

// Storage persists the order journal and the wallets
type Storage interface {
	core.OrderStorage
	core.WalletStorage
}

// Bot represents the trading assistant
type Bot struct {
	settings *core.Settings
	fetcher  core.MarketFetcher

	storage     Storage
	broadcaster core.Broadcaster
	decrypter   core.KeyDecrypter
	notifier    core.Notifier
	telegram    core.NotifierWithStart

	markets    *market.Cache
	resolver   *market.Resolver
	controller *order.Controller
	monitor    *alert.Monitor
	assistant  *notification.Assistant

	closers []func() error
}

// NewBot creates a bot reading market data from fetcher. Trading needs a
// broadcaster and a key decrypter, see WithBroadcaster and WithKeyDecrypter.
func NewBot(settings *core.Settings, fetcher core.MarketFetcher, options ...Option) (*Bot, error) {
	bot := &Bot{
		settings: settings,
		fetcher:  fetcher,
	}

	for _, option := range options {
		option(bot)
	}

	if err := initializeStorage(bot); err != nil {
		return nil, err
	}

	bot.markets = market.NewCache(fetcher, DefaultLog)
	bot.resolver = market.NewResolver(bot.markets, fetcher)
	bot.controller = order.NewController(bot.resolver, bot.broadcaster, DefaultLog,
		order.WithStorage(bot.storage),
		order.WithFeeRecipient(settings.FeeRecipient),
	)
	bot.monitor = alert.NewMonitor(bot.resolver, bot.notifier, DefaultLog)

	assistantOptions := []notification.AssistantOption{notification.WithWallets(bot.storage)}
	if bot.decrypter != nil {
		assistantOptions = append(assistantOptions, notification.WithKeyDecrypter(bot.decrypter))
	}
	bot.assistant = notification.NewAssistant(bot.markets, bot.resolver, bot.controller, bot.monitor, assistantOptions...)

	if err := initializeNotifications(bot); err != nil {
		return nil, err
	}

	return bot, nil
}

// initializeStorage opens the configured storage unless one was injected
func initializeStorage(bot *Bot) error {
	if bot.storage != nil {
		return nil
	}

	path := bot.settings.StoragePath
	if path == "" {
		path = ":memory:"
	}

	db, err := storage.FromFile(path)
	if err != nil {
		return err
	}

	bot.storage = db
	bot.closers = append(bot.closers, db.Close)
	return nil
}

// initializeNotifications starts the chat surface when enabled. Alerts go to the
// injected notifier, then Telegram, then the log.
func initializeNotifications(bot *Bot) error {
	if bot.settings.Telegram.Enabled {
		telegram, err := notification.NewTelegram(bot.assistant, bot.settings.Telegram)
		if err != nil {
			return fmt.Errorf("failed to start telegram: %w", err)
		}
		bot.telegram = telegram
		if bot.notifier == nil {
			bot.notifier = telegram
		}
	}

	if bot.notifier == nil {
		bot.notifier = notification.LogNotifier{}
	}

	bot.monitor.SetNotifier(bot.notifier)
	return nil
}

// Markets returns the market cache
func (b *Bot) Markets() *market.Cache {
	return b.markets
}

// Resolver returns the market details resolver
func (b *Bot) Resolver() *market.Resolver {
	return b.resolver
}

// Controller returns the order controller
func (b *Bot) Controller() *order.Controller {
	return b.controller
}

// Monitor returns the alert monitor
func (b *Bot) Monitor() *alert.Monitor {
	return b.monitor
}

// Assistant returns the chat command assistant
func (b *Bot) Assistant() *notification.Assistant {
	return b.assistant
}

// Run loads the markets, starts the refresh and alert timers and the chat
// surface, and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	recovered, err := b.controller.RecoverPending(time.Now().UTC())
	if err != nil {
		return err
	}
	if recovered > 0 {
		DefaultLog.Warnf("%d interrupted orders marked as unknown, check them on chain", recovered)
	}

	if err := b.markets.Warmup(ctx); err != nil {
		return fmt.Errorf("failed to load markets: %w", err)
	}
	DefaultLog.Infof("loaded %d markets", b.markets.Len())

	b.markets.Start(ctx, b.settings.MarketsInterval)
	b.monitor.Start(ctx, b.settings.AlertsInterval)

	if b.telegram != nil {
		b.telegram.Start()
		defer b.telegram.Stop()
	}

	if !b.controller.CanBroadcast() {
		DefaultLog.Warn("no broadcaster configured, trading is disabled")
	}

	<-ctx.Done()
	DefaultLog.Info("shutting down")
	return nil
}

// Close releases the storage opened by the bot
func (b *Bot) Close() error {
	for _, closer := range b.closers {
		if err := closer(); err != nil {
			return err
		}
	}
	return nil
}
