package core

import (
	"slices"
	"strings"
	"time"
)

// OrderStorage defines the interface for the order journal
type OrderStorage interface {
	// CreateOrder stores a new order
	CreateOrder(order *OrderRecord) error

	// UpdateOrder updates an existing order
	UpdateOrder(order *OrderRecord) error

	// Orders retrieves orders based on provided filters
	Orders(filters ...OrderFilter) ([]*OrderRecord, error)
}

func WithStatusIn(status ...OrderStatusType) OrderFilter {
	return func(order OrderRecord) bool {
		return slices.Contains(status, order.Status)
	}
}

func WithStatus(status OrderStatusType) OrderFilter {
	return func(order OrderRecord) bool {
		return order.Status == status
	}
}

func WithTicker(ticker string) OrderFilter {
	return func(order OrderRecord) bool {
		return strings.EqualFold(order.Ticker, ticker)
	}
}

func WithSender(sender string) OrderFilter {
	return func(order OrderRecord) bool {
		return order.Sender == sender
	}
}

func WithUpdateAtBeforeOrEqual(time time.Time) OrderFilter {
	return func(order OrderRecord) bool {
		return !order.UpdatedAt.After(time)
	}
}
