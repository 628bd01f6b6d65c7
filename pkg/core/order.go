package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderFilter defines a function type for filtering journaled orders
type OrderFilter func(order OrderRecord) bool

// SideType represents the direction of an order (BUY or SELL)
type SideType string

// OrderStatusType represents what is known about a broadcast order
type OrderStatusType string

// Order side constants
const (
	SideTypeBuy  SideType = "BUY"
	SideTypeSell SideType = "SELL"
)

// Order status constants
const (
	// OrderStatusTypePending means the order was journaled and handed to the broadcaster
	OrderStatusTypePending OrderStatusType = "PENDING"
	// OrderStatusTypeSubmitted means the broadcaster returned a transaction hash
	OrderStatusTypeSubmitted OrderStatusType = "SUBMITTED"
	// OrderStatusTypeUnknown means the broadcast failed and the transaction may or may not have landed
	OrderStatusTypeUnknown OrderStatusType = "UNKNOWN"
)

// ParseSide converts user input into a SideType
func ParseSide(s string) (SideType, error) {
	switch SideType(upper(s)) {
	case SideTypeBuy:
		return SideTypeBuy, nil
	case SideTypeSell:
		return SideTypeSell, nil
	}
	return "", fmt.Errorf("invalid side %q", s)
}

// OrderIntent is what a user asked for. Market orders leave Price empty.
type OrderIntent struct {
	Side     SideType
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.NullDecimal
}

// PricedOrder is an intent bound to a market and a tick-aligned worst price
type PricedOrder struct {
	OrderIntent
	Market     Market
	Details    MarketDetails
	WorstPrice decimal.Decimal
}

// SpotOrderMessage is the market order message handed to the broadcaster.
// Price and Quantity are fixed-point integer strings in the chain wire format.
type SpotOrderMessage struct {
	Sender       string   `json:"sender"`
	SubaccountID string   `json:"subaccount_id"`
	MarketID     string   `json:"market_id"`
	FeeRecipient string   `json:"fee_recipient"`
	OrderType    SideType `json:"order_type"`
	Price        string   `json:"price"`
	Quantity     string   `json:"quantity"`
	TriggerPrice string   `json:"trigger_price"`
}

// TxResult is the handle returned by a successful broadcast
type TxResult struct {
	TxHash string
}

// OrderRecord is a journal entry for a broadcast attempt
type OrderRecord struct {
	ID           int64           `json:"id"`
	TxHash       string          `json:"tx_hash"`
	Sender       string          `json:"sender"`
	SubaccountID string          `json:"subaccount_id"`
	MarketID     string          `json:"market_id"`
	Ticker       string          `json:"ticker"`
	Side         SideType        `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	WorstPrice   decimal.Decimal `json:"worst_price"`
	Status       OrderStatusType `json:"status"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// String returns a human-readable representation of the record
func (o OrderRecord) String() string {
	hash := o.TxHash
	if hash == "" {
		hash = "-"
	}
	return fmt.Sprintf("[%s] %s %s | Qty: %s, Worst price: %s | Tx: %s",
		o.Status, o.Side, o.Ticker, o.Quantity, o.WorstPrice, hash)
}
