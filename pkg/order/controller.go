package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
	"github.com/shopspring/decimal"
)

// DetailsResolver resolves a market and its live details from one cache snapshot
type DetailsResolver interface {
	ResolveMarket(ctx context.Context, ticker string) (core.Market, core.MarketDetails, error)
}

// Error carries the order a failure belongs to. Match the cause with errors.Is.
type Error struct {
	Err      error
	Ticker   string
	Side     core.SideType
	Quantity decimal.Decimal
}

// Error implements the error interface
func (o *Error) Error() string {
	return fmt.Sprintf("order error: %s %s %s: %v", o.Side, o.Quantity, o.Ticker, o.Err)
}

// Unwrap returns the underlying cause
func (o *Error) Unwrap() error {
	return o.Err
}

// Controller prices, quantizes and broadcasts market orders.
// Submissions share no mutable state and may run concurrently.
type Controller struct {
	resolver    DetailsResolver
	broadcaster core.Broadcaster
	storage     core.OrderStorage
	policy      PricingPolicy
	log         logger.Logger

	feeRecipient string
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithStorage journals every broadcast attempt
func WithStorage(storage core.OrderStorage) ControllerOption {
	return func(c *Controller) {
		c.storage = storage
	}
}

// WithPricingPolicy overrides the default slippage policy
func WithPricingPolicy(policy PricingPolicy) ControllerOption {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithFeeRecipient sets the fee recipient of every order. Defaults to the sender.
func WithFeeRecipient(address string) ControllerOption {
	return func(c *Controller) {
		c.feeRecipient = address
	}
}

// NewController creates a new order controller
func NewController(
	resolver DetailsResolver,
	broadcaster core.Broadcaster,
	log logger.Logger,
	options ...ControllerOption,
) *Controller {
	controller := &Controller{
		resolver:    resolver,
		broadcaster: broadcaster,
		policy:      NewPricingPolicy(),
		log:         log,
	}

	for _, option := range options {
		option(controller)
	}

	return controller
}

// CanBroadcast reports whether a broadcaster is configured
func (c *Controller) CanBroadcast() bool {
	return c.broadcaster != nil
}

// Quote resolves the market and computes the worst price without submitting anything
func (c *Controller) Quote(ctx context.Context, side core.SideType, ticker string) (core.PricedOrder, error) {
	priced, err := c.price(ctx, side, ticker)
	if err != nil {
		return core.PricedOrder{}, c.wrap(side, ticker, decimal.Zero, err)
	}
	return priced, nil
}

// price runs market resolution then the pricing policy, strictly in that order
func (c *Controller) price(ctx context.Context, side core.SideType, ticker string) (core.PricedOrder, error) {
	market, details, err := c.resolver.ResolveMarket(ctx, ticker)
	if err != nil {
		return core.PricedOrder{}, fmt.Errorf("%w: %w", core.ErrMarketUnavailable, err)
	}

	worst, err := c.policy.WorstPrice(side, details, market.MinPriceTickSize)
	if err != nil {
		return core.PricedOrder{}, err
	}

	return core.PricedOrder{
		OrderIntent: core.OrderIntent{Side: side, Ticker: market.Ticker},
		Market:      market,
		Details:     details,
		WorstPrice:  worst,
	}, nil
}

// Submit prices, quantizes, signs and broadcasts a market order.
// A core.ErrBroadcastFailed result means the outcome is unknown: the transaction may
// have landed, so check the chain before submitting the same intent again.
func (c *Controller) Submit(
	ctx context.Context,
	side core.SideType,
	quantity decimal.Decimal,
	ticker string,
	signingKey string,
	sender string,
) (core.TxResult, error) {
	if !quantity.IsPositive() {
		return core.TxResult{}, c.wrap(side, ticker, quantity,
			fmt.Errorf("%w: quantity must be positive", core.ErrQuantization))
	}

	priced, err := c.price(ctx, side, ticker)
	if err != nil {
		return core.TxResult{}, c.wrap(side, ticker, quantity, err)
	}
	priced.Quantity = quantity

	msg, err := c.buildMessage(priced, sender)
	if err != nil {
		return core.TxResult{}, c.wrap(side, ticker, quantity, err)
	}

	if c.broadcaster == nil {
		return core.TxResult{}, c.wrap(side, ticker, quantity,
			fmt.Errorf("%w: no broadcaster configured", core.ErrBroadcastFailed))
	}

	c.log.WithFields(map[string]any{
		"ticker":      priced.Market.Ticker,
		"side":        side,
		"quantity":    quantity.String(),
		"worst_price": priced.WorstPrice.String(),
		"subaccount":  msg.SubaccountID,
	}).Info("broadcasting market order")

	record := c.journal(msg, priced.Market)

	result, err := c.broadcaster.Broadcast(ctx, msg, signingKey)
	if err == nil && result.TxHash == "" {
		err = errors.New("broadcaster returned no transaction hash")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrBroadcastFailed, err)
		c.settle(record, "", err)
		return core.TxResult{}, c.wrap(side, ticker, quantity, err)
	}

	c.settle(record, result.TxHash, nil)
	c.log.Infof("[ORDER SUBMITTED] %s %s %s tx=%s", side, quantity, priced.Market.Ticker, result.TxHash)
	return result, nil
}

// buildMessage quantizes the priced order into a chain message
func (c *Controller) buildMessage(priced core.PricedOrder, sender string) (core.SpotOrderMessage, error) {
	market := priced.Market

	subaccount, err := DefaultSubaccountID(sender)
	if err != nil {
		return core.SpotOrderMessage{}, fmt.Errorf("%w: %w", core.ErrQuantization, err)
	}

	price, err := ToChainPrice(priced.WorstPrice, market.MinPriceTickSize, market.BaseDecimals, market.QuoteDecimals)
	if err != nil {
		return core.SpotOrderMessage{}, err
	}

	quantity, err := ToChainQuantity(priced.Quantity, market.MinQuantityTickSize, market.BaseDecimals)
	if err != nil {
		return core.SpotOrderMessage{}, err
	}
	if quantity == "0" {
		return core.SpotOrderMessage{}, fmt.Errorf("%w: quantity %s rounds to zero with tick %s",
			core.ErrQuantization, priced.Quantity, market.MinQuantityTickSize)
	}

	feeRecipient := c.feeRecipient
	if feeRecipient == "" {
		feeRecipient = sender
	}

	return core.SpotOrderMessage{
		Sender:       sender,
		SubaccountID: subaccount,
		MarketID:     market.ID,
		FeeRecipient: feeRecipient,
		OrderType:    priced.Side,
		Price:        price,
		Quantity:     quantity,
		TriggerPrice: "0",
	}, nil
}

// journal records a pending order before it is broadcast, with the price and quantity
// read back from the message. A journal failure is logged and does not stop the order.
func (c *Controller) journal(msg core.SpotOrderMessage, market core.Market) *core.OrderRecord {
	if c.storage == nil {
		return nil
	}

	price, err := FromChainPrice(msg.Price, market.BaseDecimals, market.QuoteDecimals)
	if err != nil {
		c.log.WithError(err).Error("failed to decode order price")
		return nil
	}
	quantity, err := FromChainQuantity(msg.Quantity, market.BaseDecimals)
	if err != nil {
		c.log.WithError(err).Error("failed to decode order quantity")
		return nil
	}

	now := time.Now().UTC()
	record := &core.OrderRecord{
		Sender:       msg.Sender,
		SubaccountID: msg.SubaccountID,
		MarketID:     msg.MarketID,
		Ticker:       market.Ticker,
		Side:         msg.OrderType,
		Quantity:     quantity,
		WorstPrice:   price,
		Status:       core.OrderStatusTypePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.storage.CreateOrder(record); err != nil {
		c.log.WithError(err).WithField("ticker", market.Ticker).Error("failed to journal order")
		return nil
	}
	return record
}

// settle stores the broadcast outcome of a pending record
func (c *Controller) settle(record *core.OrderRecord, txHash string, broadcastErr error) {
	if record == nil {
		return
	}

	record.TxHash = txHash
	record.Status = core.OrderStatusTypeSubmitted
	record.UpdatedAt = time.Now().UTC()
	if broadcastErr != nil {
		record.Status = core.OrderStatusTypeUnknown
		record.Error = broadcastErr.Error()
	}

	if err := c.storage.UpdateOrder(record); err != nil {
		c.log.WithError(err).WithField("tx", txHash).Error("failed to update journaled order")
	}
}

// RecoverPending marks orders left pending at or before the given time as unknown.
// Those broadcasts were interrupted and may or may not have landed.
func (c *Controller) RecoverPending(before time.Time) (int, error) {
	if c.storage == nil {
		return 0, nil
	}

	pending, err := c.storage.Orders(
		core.WithStatusIn(core.OrderStatusTypePending),
		core.WithUpdateAtBeforeOrEqual(before),
	)
	if err != nil {
		return 0, fmt.Errorf("pending orders: %w", err)
	}

	for _, record := range pending {
		record.Status = core.OrderStatusTypeUnknown
		record.Error = "interrupted before the broadcast result was recorded"
		record.UpdatedAt = time.Now().UTC()
		if err := c.storage.UpdateOrder(record); err != nil {
			return 0, fmt.Errorf("recover order %d: %w", record.ID, err)
		}
		c.log.WithField("order", record.ID).Warnf("order left pending, marked unknown: %s", record)
	}

	return len(pending), nil
}

// Orders returns journaled orders
func (c *Controller) Orders(filters ...core.OrderFilter) ([]*core.OrderRecord, error) {
	if c.storage == nil {
		return nil, nil
	}
	return c.storage.Orders(filters...)
}

func (c *Controller) wrap(side core.SideType, ticker string, quantity decimal.Decimal, err error) error {
	return &Error{Err: err, Ticker: ticker, Side: side, Quantity: quantity}
}
