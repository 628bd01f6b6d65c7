package core

import (
	"errors"
	"strings"
)

var (
	// ErrMarketUnavailable groups failures to obtain usable market data
	ErrMarketUnavailable = errors.New("market unavailable")
	// ErrMarketNotFound is returned for tickers missing from the market cache. Not retryable.
	ErrMarketNotFound = errors.New("market not found")
	// ErrUpstreamUnavailable is returned when the book or summary fetch fails. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidTick is returned for zero or negative tick sizes
	ErrInvalidTick = errors.New("invalid tick size")
	// ErrQuantization is returned when a value cannot be represented exactly on chain
	ErrQuantization = errors.New("quantization error")

	// ErrBroadcastFailed means the outcome on chain is unknown. Check the chain before retrying.
	ErrBroadcastFailed = errors.New("broadcast failed")

	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidAlert   = errors.New("invalid alert")
)

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
