package chaintrader

import (
	"github.com/raykavin/chaintrader/pkg/core"
)

// Option is a functional option for configuring a Bot instance
type Option func(*Bot)

// WithStorage sets the storage for the bot, by default it opens settings.StoragePath
func WithStorage(storage Storage) Option {
	return func(bot *Bot) {
		bot.storage = storage
	}
}

// WithBroadcaster sets the chain client used to sign and broadcast orders
func WithBroadcaster(broadcaster core.Broadcaster) Option {
	return func(bot *Bot) {
		bot.broadcaster = broadcaster
	}
}

// WithKeyDecrypter sets how stored wallets are unlocked for signing
func WithKeyDecrypter(decrypter core.KeyDecrypter) Option {
	return func(bot *Bot) {
		bot.decrypter = decrypter
	}
}

// WithNotifier sets where triggered alerts are delivered
func WithNotifier(notifier core.Notifier) Option {
	return func(bot *Bot) {
		bot.notifier = notifier
	}
}
