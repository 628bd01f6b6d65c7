// Package notification provides the chat surface and user notifications
package notification

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

// requestTimeout bounds the work done for a single chat command
const requestTimeout = 30 * time.Second

// Command pattern regexes. An optional @botname suffix is accepted after the command.
var (
	marketsRegexp  = regexp.MustCompile(`(?i)^/markets(?:@\w+)?(?:\s+(?P<quote>\S+))?`)
	priceRegexp    = regexp.MustCompile(`(?i)^/price(?:@\w+)?\s+(?P<ticker>\S+)`)
	quoteRegexp    = regexp.MustCompile(`(?i)^/quote(?:@\w+)?\s+(?P<side>buy|sell)\s+(?P<ticker>\S+)`)
	buyRegexp      = regexp.MustCompile(`(?i)^/buy(?:@\w+)?\s+(?P<ticker>\S+)\s+(?P<amount>\d+(?:\.\d+)?)\s*$`)
	sellRegexp     = regexp.MustCompile(`(?i)^/sell(?:@\w+)?\s+(?P<ticker>\S+)\s+(?P<amount>\d+(?:\.\d+)?)\s*$`)
	alertRegexp    = regexp.MustCompile(`(?i)^/alert(?:@\w+)?\s+(?P<ticker>\S+)\s+(?P<condition>above|below|>|<)\s+(?P<price>\d+(?:\.\d+)?)\s*$`)
	delAlertRegexp = regexp.MustCompile(`(?i)^/delalert(?:@\w+)?\s+(?P<id>\S+)`)
	defaultRegexp  = regexp.MustCompile(`(?i)^/default(?:@\w+)?\s+(?P<name>\S+)`)
	ordersRegexp   = regexp.MustCompile(`(?i)^/orders(?:@\w+)?(?:\s+(?P<ticker>\S+))?`)
)

var commands = []tb.Command{
	{Text: "/help", Description: "Display help instructions"},
	{Text: "/markets", Description: "List markets, optionally by quote symbol"},
	{Text: "/price", Description: "Live price of a market"},
	{Text: "/quote", Description: "Worst price for a market order"},
	{Text: "/buy", Description: "Market buy with the default wallet"},
	{Text: "/sell", Description: "Market sell with the default wallet"},
	{Text: "/alert", Description: "Set a price alert"},
	{Text: "/alerts", Description: "List active alerts"},
	{Text: "/delalert", Description: "Remove an alert"},
	{Text: "/wallets", Description: "List wallets"},
	{Text: "/default", Description: "Select the trading wallet"},
	{Text: "/orders", Description: "Orders sent from the default wallet, optionally by ticker"},
}

// Telegram implements the core.NotifierWithStart interface
type Telegram struct {
	settings  core.TelegramSettings
	assistant *Assistant
	client    *tb.Bot
}

var _ core.NotifierWithStart = (*Telegram)(nil)

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(assistant *Assistant, settings core.TelegramSettings) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    createAuthMiddleware(poller, settings.Users),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if err := client.SetCommands(commands); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		settings:  settings,
		assistant: assistant,
		client:    client,
	}

	registerHandlers(client, bot)

	return bot, nil
}

// createAuthMiddleware creates a middleware to validate authorized users
func createAuthMiddleware(poller *tb.LongPoller, users []int) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		return authorized(users, u)
	})
}

// authorized accepts every sender when no allow-list is configured
func authorized(users []int, u *tb.Update) bool {
	if u.Message == nil || u.Message.Sender == nil {
		log.Error("message or sender is nil ", u)
		return false
	}

	if len(users) == 0 || slices.Contains(users, int(u.Message.Sender.ID)) {
		return true
	}

	log.Error("unauthorized user ", u.Message.Sender.ID)
	return false
}

// registerHandlers registers all command handlers
func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/start", bot.HelpHandle)
	client.Handle("/markets", bot.MarketsHandle)
	client.Handle("/price", bot.PriceHandle)
	client.Handle("/quote", bot.QuoteHandle)
	client.Handle("/buy", bot.BuyHandle)
	client.Handle("/sell", bot.SellHandle)
	client.Handle("/alert", bot.AlertHandle)
	client.Handle("/alerts", bot.AlertsHandle)
	client.Handle("/delalert", bot.DelAlertHandle)
	client.Handle("/wallets", bot.WalletsHandle)
	client.Handle("/default", bot.DefaultHandle)
	client.Handle("/orders", bot.OrdersHandle)
}

// Start begins polling and greets the authorized users
func (t *Telegram) Start() {
	go t.client.Start()
	for _, user := range t.settings.Users {
		t.Notify(int64(user), "Bot initialized.")
	}
}

// Stop stops polling
func (t *Telegram) Stop() {
	t.client.Stop()
}

// Notify sends a message to a single user. Failures are logged only.
func (t *Telegram) Notify(userID int64, text string) {
	t.sendMessage(&tb.User{ID: userID}, text)
}

// sendMessage sends a message to a specific user
func (t *Telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	_, err := t.client.Send(to, text, options...)
	if err != nil {
		log.WithError(err).WithField("user", to.ID).Error("failed to send message")
	}
}

// reply sends the text, or the rendered error when err is set
func (t *Telegram) reply(m *tb.Message, text string, err error) {
	if err != nil {
		t.OnError(m.Sender, err)
		return
	}
	t.sendMessage(m.Sender, text)
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	t.sendMessage(m.Sender, helpText())
}

func helpText() string {
	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("%s - %s", command.Text, command.Description))
	}
	return strings.Join(lines, "\n")
}

// MarketsHandle lists the cached markets
func (t *Telegram) MarketsHandle(m *tb.Message) {
	command := extractCommandParams(marketsRegexp, marketsRegexp.FindStringSubmatch(m.Text))
	t.sendMessage(m.Sender, t.assistant.Markets(command["quote"]))
}

// PriceHandle shows live market details
func (t *Telegram) PriceHandle(m *tb.Message) {
	match := priceRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/price INJ/USDT`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	command := extractCommandParams(priceRegexp, match)
	text, err := t.assistant.Price(ctx, command["ticker"])
	t.reply(m, text, err)
}

// QuoteHandle shows the worst price of a market order
func (t *Telegram) QuoteHandle(m *tb.Message) {
	match := quoteRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/quote buy INJ/USDT`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	command := extractCommandParams(quoteRegexp, match)
	side, err := core.ParseSide(command["side"])
	if err != nil {
		t.OnError(m.Sender, err)
		return
	}

	text, err := t.assistant.Quote(ctx, side, command["ticker"])
	t.reply(m, text, err)
}

// BuyHandle processes buy commands
func (t *Telegram) BuyHandle(m *tb.Message) {
	t.tradeHandle(m, core.SideTypeBuy, buyRegexp, "Invalid command.\nExample of usage:\n`/buy INJ/USDT 1.5`")
}

// SellHandle processes sell commands
func (t *Telegram) SellHandle(m *tb.Message) {
	t.tradeHandle(m, core.SideTypeSell, sellRegexp, "Invalid command.\nExample of usage:\n`/sell INJ/USDT 1.5`")
}

func (t *Telegram) tradeHandle(m *tb.Message, side core.SideType, regex *regexp.Regexp, usage string) {
	match := regex.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, usage)
		return
	}

	command := extractCommandParams(regex, match)
	amount, err := decimal.NewFromString(command["amount"])
	if err != nil || !amount.IsPositive() {
		t.sendMessage(m.Sender, "Invalid amount")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	text, err := t.assistant.Trade(ctx, m.Sender.ID, side, command["ticker"], amount)
	if err == nil {
		log.Infof("[TELEGRAM]: %s ORDER SUBMITTED by %d: %s %s", side, m.Sender.ID, amount, command["ticker"])
	}
	t.reply(m, text, err)
}

// AlertHandle registers a price alert
func (t *Telegram) AlertHandle(m *tb.Message) {
	match := alertRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExamples of usage:\n`/alert INJ/USDT above 35`\n\n`/alert INJ/USDT below 20.5`")
		return
	}

	command := extractCommandParams(alertRegexp, match)
	condition, err := core.ParseAlertCondition(command["condition"])
	if err != nil {
		t.OnError(m.Sender, err)
		return
	}

	target, err := decimal.NewFromString(command["price"])
	if err != nil {
		t.sendMessage(m.Sender, "Invalid price")
		return
	}

	text, err := t.assistant.AddAlert(m.Sender.ID, command["ticker"], condition, target)
	t.reply(m, text, err)
}

// AlertsHandle lists active alerts
func (t *Telegram) AlertsHandle(m *tb.Message) {
	t.sendMessage(m.Sender, t.assistant.Alerts(m.Sender.ID))
}

// DelAlertHandle removes an alert
func (t *Telegram) DelAlertHandle(m *tb.Message) {
	match := delAlertRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/delalert ID`")
		return
	}

	command := extractCommandParams(delAlertRegexp, match)
	t.sendMessage(m.Sender, t.assistant.DeleteAlert(m.Sender.ID, command["id"]))
}

// WalletsHandle lists the user's wallets
func (t *Telegram) WalletsHandle(m *tb.Message) {
	text, err := t.assistant.Wallets(m.Sender.ID)
	t.reply(m, text, err)
}

// DefaultHandle selects the trading wallet
func (t *Telegram) DefaultHandle(m *tb.Message) {
	match := defaultRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/default main`")
		return
	}

	command := extractCommandParams(defaultRegexp, match)
	text, err := t.assistant.SetDefault(m.Sender.ID, command["name"])
	t.reply(m, text, err)
}

// OrdersHandle lists the orders of the default wallet
func (t *Telegram) OrdersHandle(m *tb.Message) {
	command := extractCommandParams(ordersRegexp, ordersRegexp.FindStringSubmatch(m.Text))
	text, err := t.assistant.Orders(m.Sender.ID, command["ticker"])
	t.reply(m, text, err)
}

// OnError notifies a user about a failed command
func (t *Telegram) OnError(to *tb.User, err error) {
	log.WithError(err).WithField("user", to.ID).Warn("command failed")
	t.sendMessage(to, ErrorMessage(err))
}

// Helper function to extract named groups from regex matches
func extractCommandParams(regex *regexp.Regexp, match []string) map[string]string {
	command := make(map[string]string)
	if len(match) == 0 {
		return command
	}
	for i, name := range regex.SubexpNames() {
		if i != 0 && name != "" {
			command[name] = match[i]
		}
	}
	return command
}
