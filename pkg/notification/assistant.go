package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/order"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// maxListedMarkets keeps /markets replies under the chat message size limit
const maxListedMarkets = 40

// MarketDirectory lists the cached markets
type MarketDirectory interface {
	Markets() []core.Market
	QuoteSymbols() []string
}

// DetailsResolver resolves live market details
type DetailsResolver interface {
	Resolve(ctx context.Context, ticker string) (core.MarketDetails, error)
}

// Trader quotes and submits market orders
type Trader interface {
	CanBroadcast() bool
	Quote(ctx context.Context, side core.SideType, ticker string) (core.PricedOrder, error)
	Submit(ctx context.Context, side core.SideType, quantity decimal.Decimal, ticker, signingKey, sender string) (core.TxResult, error)
	Orders(filters ...core.OrderFilter) ([]*core.OrderRecord, error)
}

// AlertRegistry manages per-user price alerts
type AlertRegistry interface {
	Add(userID int64, ticker string, target decimal.Decimal, condition core.AlertCondition) (core.PriceAlert, error)
	Remove(userID int64, id string) bool
	List(userID int64) []core.PriceAlert
}

// Assistant turns chat commands into calls on the trading core and renders the replies.
// It knows nothing about the chat transport.
type Assistant struct {
	markets  MarketDirectory
	resolver DetailsResolver
	trader   Trader
	alerts   AlertRegistry

	wallets   core.WalletStorage
	decrypter core.KeyDecrypter
}

// AssistantOption configures an Assistant
type AssistantOption func(*Assistant)

// WithWallets enables wallet commands and trading
func WithWallets(wallets core.WalletStorage) AssistantOption {
	return func(a *Assistant) {
		a.wallets = wallets
	}
}

// WithKeyDecrypter enables trading with the user's default wallet
func WithKeyDecrypter(decrypter core.KeyDecrypter) AssistantOption {
	return func(a *Assistant) {
		a.decrypter = decrypter
	}
}

// NewAssistant creates a command assistant
func NewAssistant(markets MarketDirectory, resolver DetailsResolver, trader Trader, alerts AlertRegistry, options ...AssistantOption) *Assistant {
	a := &Assistant{
		markets:  markets,
		resolver: resolver,
		trader:   trader,
		alerts:   alerts,
	}

	for _, option := range options {
		option(a)
	}

	return a
}

// Markets lists the cached markets, optionally only those quoted in quote
func (a *Assistant) Markets(quote string) string {
	markets := a.markets.Markets()
	if quote != "" {
		markets = lo.Filter(markets, func(m core.Market, _ int) bool {
			return strings.EqualFold(m.QuoteSymbol, quote)
		})
	}

	if len(markets) == 0 {
		return "No markets available."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*MARKETS* (%d)\nQuotes: %s\n", len(markets), strings.Join(a.markets.QuoteSymbols(), ", "))

	shown := lo.Slice(markets, 0, maxListedMarkets)
	rows := lo.Map(shown, func(m core.Market, _ int) []string {
		return []string{m.Ticker, m.MinPriceTickSize.String(), m.MinQuantityTickSize.String()}
	})

	sb.WriteString("```\n")
	sb.WriteString(renderTable([]string{"Ticker", "Price tick", "Qty tick"}, rows))
	sb.WriteString("```")

	if hidden := len(markets) - len(shown); hidden > 0 {
		fmt.Fprintf(&sb, "\n... and %d more, filter with `/markets QUOTE`", hidden)
	}

	return sb.String()
}

// Price renders the live details of a market
func (a *Assistant) Price(ctx context.Context, ticker string) (string, error) {
	details, err := a.resolver.Resolve(ctx, ticker)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", details.Ticker)
	fmt.Fprintf(&sb, "Price: `%s` (%s%%)\n", details.Price, details.Change.StringFixed(2))
	fmt.Fprintf(&sb, "24h High / Low: `%s` / `%s`\n", details.High, details.Low)
	fmt.Fprintf(&sb, "24h Volume: `%s`\n", details.Volume)
	sb.WriteString("-----\n")
	fmt.Fprintf(&sb, "Best bid / ask: `%s` / `%s`\n", nullString(details.BestBid), nullString(details.BestAsk))
	fmt.Fprintf(&sb, "Avg buy / sell: `%s` / `%s`", nullString(details.AverageBuyPrice), nullString(details.AverageSellPrice))

	return sb.String(), nil
}

// Quote renders the worst acceptable price an order would be sent with
func (a *Assistant) Quote(ctx context.Context, side core.SideType, ticker string) (string, error) {
	priced, err := a.trader.Quote(ctx, side, ticker)
	if err != nil {
		return "", err
	}

	reference, err := order.ReferencePrice(side, priced.Details)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("*QUOTE* %s %s\nReference: `%s`\nWorst price: `%s`",
		side, priced.Market.Ticker, reference, priced.WorstPrice), nil
}

// Trade submits a market order signed with the user's default wallet
func (a *Assistant) Trade(ctx context.Context, userID int64, side core.SideType, ticker string, quantity decimal.Decimal) (string, error) {
	if a.wallets == nil || a.decrypter == nil || !a.trader.CanBroadcast() {
		return "Trading is unavailable: no signer is configured.", nil
	}

	wallet, err := a.wallets.DefaultWallet(userID)
	if err != nil {
		return "", err
	}

	key, err := a.decrypter.Decrypt(userID, wallet)
	if err != nil {
		return "", fmt.Errorf("failed to unlock wallet %s: %w", wallet.Name, err)
	}

	result, err := a.trader.Submit(ctx, side, quantity, ticker, key, wallet.Address)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ ORDER SUBMITTED - %s\n-----\n%s %s from `%s`\nTx: `%s`",
		strings.ToUpper(ticker), side, quantity, wallet.Name, result.TxHash), nil
}

// AddAlert registers a price alert
func (a *Assistant) AddAlert(userID int64, ticker string, condition core.AlertCondition, target decimal.Decimal) (string, error) {
	alert, err := a.alerts.Add(userID, ticker, target, condition)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔔 Alert set: %s\nID: `%s`", alert, alert.ID), nil
}

// Alerts lists the user's active alerts
func (a *Assistant) Alerts(userID int64) string {
	alerts := a.alerts.List(userID)
	if len(alerts) == 0 {
		return "No active alerts."
	}

	lines := lo.Map(alerts, func(alert core.PriceAlert, _ int) string {
		return fmt.Sprintf("`%s` %s", alert.ID, alert)
	})
	return "*ALERTS*\n" + strings.Join(lines, "\n")
}

// DeleteAlert removes one of the user's alerts
func (a *Assistant) DeleteAlert(userID int64, id string) string {
	if a.alerts.Remove(userID, id) {
		return "Alert removed."
	}
	return "Alert not found."
}

// Wallets lists the user's wallets, marking the default one
func (a *Assistant) Wallets(userID int64) (string, error) {
	if a.wallets == nil {
		return "Wallets are unavailable.", nil
	}

	wallets, err := a.wallets.Wallets(userID)
	if err != nil {
		return "", err
	}
	if len(wallets) == 0 {
		return "No wallets registered.", nil
	}

	var defaultName string
	if wallet, err := a.wallets.DefaultWallet(userID); err == nil {
		defaultName = wallet.Name
	} else if !errors.Is(err, core.ErrWalletNotFound) {
		return "", err
	}

	lines := lo.Map(wallets, func(w core.Wallet, _ int) string {
		marker := lo.Ternary(w.Name == defaultName, " (default)", "")
		return fmt.Sprintf("`%s`%s: %s", w.Name, marker, w.Address)
	})
	return "*WALLETS*\n" + strings.Join(lines, "\n"), nil
}

// SetDefault selects the wallet used for trading
func (a *Assistant) SetDefault(userID int64, name string) (string, error) {
	if a.wallets == nil {
		return "Wallets are unavailable.", nil
	}

	if err := a.wallets.SetDefaultWallet(userID, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Default wallet is now `%s`.", name), nil
}

// Orders lists the journaled orders of the user's default wallet, optionally for one ticker
func (a *Assistant) Orders(userID int64, ticker string) (string, error) {
	if a.wallets == nil {
		return "Wallets are unavailable.", nil
	}

	wallet, err := a.wallets.DefaultWallet(userID)
	if err != nil {
		return "", err
	}

	filters := []core.OrderFilter{core.WithSender(wallet.Address)}
	if ticker != "" {
		filters = append(filters, core.WithTicker(ticker))
	}

	orders, err := a.trader.Orders(filters...)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "No orders registered.", nil
	}

	rows := lo.Map(orders, func(o *core.OrderRecord, _ int) []string {
		return []string{o.CreatedAt.Format("01-02 15:04"), string(o.Side), o.Ticker, o.Quantity.String(), o.WorstPrice.String(), string(o.Status)}
	})
	return "*ORDERS*\n```\n" + renderTable([]string{"Time", "Side", "Ticker", "Qty", "Worst", "Status"}, rows) + "```", nil
}

// ErrorMessage renders an error for the user
func ErrorMessage(err error) string {
	var sb strings.Builder
	sb.WriteString("🛑 ERROR\n")

	var orderError *order.Error
	if errors.As(err, &orderError) {
		sb.WriteString("-----\n")
		fmt.Fprintf(&sb, "Ticker: %s\n", orderError.Ticker)
		fmt.Fprintf(&sb, "Side: %s\n", orderError.Side)
		fmt.Fprintf(&sb, "Quantity: %s\n", orderError.Quantity)
	}

	sb.WriteString("-----\n")
	sb.WriteString(describe(err))
	return sb.String()
}

func describe(err error) string {
	switch {
	case errors.Is(err, core.ErrMarketNotFound):
		return "Unknown market. Use /markets to list them."
	case errors.Is(err, core.ErrUpstreamUnavailable):
		return "Market data is temporarily unavailable, try again shortly."
	case errors.Is(err, core.ErrBroadcastFailed):
		return "Broadcast failed. The order may still have landed, check /orders and the chain before retrying."
	case errors.Is(err, core.ErrWalletNotFound):
		return "No default wallet. Pick one with /default NAME."
	case errors.Is(err, core.ErrInvalidTick), errors.Is(err, core.ErrQuantization):
		return "The order cannot be represented on chain: " + rootCause(err).Error()
	case errors.Is(err, core.ErrInvalidAlert):
		return rootCause(err).Error()
	default:
		return err.Error()
	}
}

// rootCause drops the order.Error prefix, its fields are rendered separately
func rootCause(err error) error {
	var orderError *order.Error
	if errors.As(err, &orderError) {
		return orderError.Err
	}
	return err
}

func renderTable(header []string, rows [][]string) string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(false)
	table.AppendBulk(rows)
	table.Render()
	return sb.String()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
