package core

import "time"

// Settings represents the main configuration for the application
type Settings struct {
	Indexer  IndexerSettings  // Chain indexer endpoints
	Telegram TelegramSettings // Telegram bot settings

	StoragePath     string        // buntdb file, ":memory:" keeps everything in memory
	FeeRecipient    string        // Fee recipient set on every order, empty means the sender
	MarketsInterval time.Duration // Market list refresh interval
	AlertsInterval  time.Duration // Alert evaluation interval
}

// IndexerSettings holds the chain indexer endpoints
type IndexerSettings struct {
	ExchangeURL string        // Indexer exchange API base URL
	ChronosURL  string        // Chronos API base URL (market summaries)
	Timeout     time.Duration // HTTP client timeout
	RateLimit   float64       // Requests per second, zero disables limiting
}

// TelegramSettings holds configuration for Telegram integration
type TelegramSettings struct {
	Enabled bool   // Whether the Telegram bot is enabled
	Token   string // Telegram bot token
	Users   []int  // Authorized user IDs, empty allows everyone
}
