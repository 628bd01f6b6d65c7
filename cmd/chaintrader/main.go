package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/chaintrader"
	"github.com/raykavin/chaintrader/pkg/chain"
	"github.com/raykavin/chaintrader/pkg/config"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/market"
	"github.com/raykavin/chaintrader/pkg/order"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	configFile string
	quote      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "chaintrader",
		Short:   "Chat trading assistant for on-chain spot markets",
		Version: "1.0.0",
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")

	rootCmd.AddCommand(buildRunCmd(), buildMarketsCmd(), buildQuoteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the assistant until interrupted",
		RunE:  runBot,
	}
}

func buildMarketsCmd() *cobra.Command {
	marketsCmd := &cobra.Command{
		Use:   "markets",
		Short: "List the active spot markets",
		RunE:  runMarkets,
	}
	marketsCmd.Flags().StringVarP(&quote, "quote", "q", "", "Only markets quoted in this symbol (e.g. USDT)")
	return marketsCmd
}

func buildQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quote SIDE TICKER",
		Short:   "Show market details and the worst price of a market order",
		Example: "chaintrader quote buy INJ/USDT",
		Args:    cobra.ExactArgs(2),
		RunE:    runQuote,
	}
}

func loadSettings() (*core.Settings, *chain.Indexer, error) {
	settings, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	return settings, chain.NewIndexer(settings.Indexer, chain.WithLogger(chaintrader.DefaultLog)), nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	settings, indexer, err := loadSettings()
	if err != nil {
		return err
	}

	bot, err := chaintrader.NewBot(settings, indexer)
	if err != nil {
		return err
	}
	defer bot.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bot.Run(ctx)
}

func loadMarkets(ctx context.Context) (*market.Cache, *chain.Indexer, error) {
	_, indexer, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}

	cache := market.NewCache(indexer, chaintrader.DefaultLog)
	if err := cache.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	return cache, indexer, nil
}

func runMarkets(cmd *cobra.Command, _ []string) error {
	cache, _, err := loadMarkets(cmd.Context())
	if err != nil {
		return err
	}

	markets := lo.Filter(cache.Markets(), func(m core.Market, _ int) bool {
		return quote == "" || strings.EqualFold(m.QuoteSymbol, quote)
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Ticker", "Market ID", "Decimals", "Price tick", "Qty tick"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	table.AppendBulk(lo.Map(markets, func(m core.Market, _ int) []string {
		return []string{
			m.Ticker,
			m.ID,
			fmt.Sprintf("%d/%d", m.BaseDecimals, m.QuoteDecimals),
			m.MinPriceTickSize.String(),
			m.MinQuantityTickSize.String(),
		}
	}))
	table.SetFooter([]string{"", "", "", "Total", fmt.Sprint(len(markets))})
	table.Render()
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	side, err := core.ParseSide(args[0])
	if err != nil {
		return err
	}

	cache, indexer, err := loadMarkets(cmd.Context())
	if err != nil {
		return err
	}

	controller := order.NewController(market.NewResolver(cache, indexer), nil, chaintrader.DefaultLog)
	priced, err := controller.Quote(cmd.Context(), side, args[1])
	if err != nil {
		return err
	}

	details := priced.Details
	nullable := func(d decimal.NullDecimal) string {
		return lo.Ternary(d.Valid, d.Decimal.String(), "-")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{priced.Market.Ticker, string(side)})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.AppendBulk([][]string{
		{"Last price", details.Price.String()},
		{"24h change %", details.Change.StringFixed(2)},
		{"24h high", details.High.String()},
		{"24h low", details.Low.String()},
		{"24h volume", details.Volume.String()},
		{"Best bid", nullable(details.BestBid)},
		{"Best ask", nullable(details.BestAsk)},
		{"Avg buy", nullable(details.AverageBuyPrice)},
		{"Avg sell", nullable(details.AverageSellPrice)},
	})
	table.SetFooter([]string{"Worst price", priced.WorstPrice.String()})
	table.Render()
	return nil
}
