package core

import (
	"context"
)

// MarketFetcher is the read side of the chain client
type MarketFetcher interface {
	FetchMarkets(ctx context.Context) ([]Market, error)
	FetchMarketSummary(ctx context.Context, market Market) (MarketSummary, error)
	FetchOrderBook(ctx context.Context, market Market) (OrderBook, error)
}

// Broadcaster signs and broadcasts an order message. It is one-shot and not idempotent.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg SpotOrderMessage, signingKey string) (TxResult, error)
}

// Notifier delivers a message to a single user. Delivery is fire-and-forget.
type Notifier interface {
	Notify(userID int64, text string)
}

// NotifierWithStart is a notifier that owns a long-running receive loop
type NotifierWithStart interface {
	Notifier
	Start()
	Stop()
}

// KeyDecrypter turns a stored wallet into a usable signing key
type KeyDecrypter interface {
	Decrypt(userID int64, wallet Wallet) (string, error)
}
