package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AlertCondition is the direction an alert is waiting for
type AlertCondition string

const (
	AlertConditionAbove AlertCondition = "above"
	AlertConditionBelow AlertCondition = "below"
)

// ParseAlertCondition converts user input into an AlertCondition
func ParseAlertCondition(s string) (AlertCondition, error) {
	switch AlertCondition(lower(s)) {
	case AlertConditionAbove, ">":
		return AlertConditionAbove, nil
	case AlertConditionBelow, "<":
		return AlertConditionBelow, nil
	}
	return "", fmt.Errorf("%w: unknown condition %q", ErrInvalidAlert, s)
}

// PriceAlert is a one-shot price alert owned by a user
type PriceAlert struct {
	ID          string
	UserID      int64
	Ticker      string
	TargetPrice decimal.Decimal
	Condition   AlertCondition
	Active      bool
	CreatedAt   time.Time
}

// Triggered reports whether price satisfies the alert condition. Inactive alerts never trigger.
func (a PriceAlert) Triggered(price decimal.Decimal) bool {
	if !a.Active {
		return false
	}

	switch a.Condition {
	case AlertConditionAbove:
		return price.GreaterThan(a.TargetPrice)
	case AlertConditionBelow:
		return price.LessThan(a.TargetPrice)
	default:
		return false
	}
}

// String returns a short description of the alert
func (a PriceAlert) String() string {
	return fmt.Sprintf("%s %s %s", a.Ticker, a.Condition, a.TargetPrice)
}
