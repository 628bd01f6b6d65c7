// Package alert keeps per-user one-shot price alerts and evaluates them on a timer
package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/chaintrader/pkg/core"
	"github.com/raykavin/chaintrader/pkg/logger"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultInterval is how often alerts are evaluated
const DefaultInterval = time.Minute

// Status represents the current state of the evaluation loop
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Resolver resolves live market details
type Resolver interface {
	Market(ticker string) (core.Market, error)
	Resolve(ctx context.Context, ticker string) (core.MarketDetails, error)
}

// Monitor owns the alert registry. Alerts live in memory only and are lost on restart.
type Monitor struct {
	resolver Resolver
	notifier core.Notifier
	log      logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	alerts map[int64][]*core.PriceAlert
	status Status
}

// NewMonitor creates an empty alert monitor
func NewMonitor(resolver Resolver, notifier core.Notifier, log logger.Logger) *Monitor {
	return &Monitor{
		resolver: resolver,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		alerts:   make(map[int64][]*core.PriceAlert),
		status:   StatusStopped,
	}
}

// SetNotifier replaces the notifier used for triggered alerts
func (m *Monitor) SetNotifier(notifier core.Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = notifier
}

// Add registers a new active alert for a user
func (m *Monitor) Add(userID int64, ticker string, target decimal.Decimal, condition core.AlertCondition) (core.PriceAlert, error) {
	if !target.IsPositive() {
		return core.PriceAlert{}, fmt.Errorf("%w: target price must be positive", core.ErrInvalidAlert)
	}
	if condition != core.AlertConditionAbove && condition != core.AlertConditionBelow {
		return core.PriceAlert{}, fmt.Errorf("%w: unknown condition %q", core.ErrInvalidAlert, condition)
	}

	market, err := m.resolver.Market(ticker)
	if err != nil {
		return core.PriceAlert{}, err
	}

	alert := &core.PriceAlert{
		ID:          uuid.NewString(),
		UserID:      userID,
		Ticker:      market.Ticker,
		TargetPrice: target,
		Condition:   condition,
		Active:      true,
		CreatedAt:   m.now(),
	}

	m.mu.Lock()
	m.alerts[userID] = append(m.alerts[userID], alert)
	m.mu.Unlock()

	m.log.WithFields(map[string]any{
		"user":  userID,
		"alert": alert.ID,
	}).Infof("alert added: %s", alert)

	return *alert, nil
}

// Remove deletes an alert. It reports whether the alert existed.
func (m *Monitor) Remove(userID int64, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(userID, id) != nil
}

func (m *Monitor) removeLocked(userID int64, id string) *core.PriceAlert {
	alerts := m.alerts[userID]
	_, index, found := lo.FindIndexOf(alerts, func(a *core.PriceAlert) bool {
		return a.ID == id
	})
	if !found {
		return nil
	}

	removed := alerts[index]
	remaining := append(alerts[:index:index], alerts[index+1:]...)
	if len(remaining) == 0 {
		delete(m.alerts, userID)
	} else {
		m.alerts[userID] = remaining
	}
	return removed
}

// List returns the active alerts of a user, oldest first
func (m *Monitor) List(userID int64) []core.PriceAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	return lo.Map(m.alerts[userID], func(a *core.PriceAlert, _ int) core.PriceAlert {
		return *a
	})
}

// Count returns the number of active alerts across all users
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return lo.SumBy(lo.Values(m.alerts), func(alerts []*core.PriceAlert) int {
		return len(alerts)
	})
}

// snapshot copies every active alert so evaluation can run without the lock
func (m *Monitor) snapshot() []core.PriceAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts []core.PriceAlert
	for _, userAlerts := range m.alerts {
		for _, a := range userAlerts {
			if a.Active {
				alerts = append(alerts, *a)
			}
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
	return alerts
}

// EvaluateAll checks every active alert once. A failure resolving one alert
// is logged and does not stop the others. It returns the alerts that fired.
func (m *Monitor) EvaluateAll(ctx context.Context) []core.PriceAlert {
	var fired []core.PriceAlert

	for _, a := range m.snapshot() {
		details, err := m.resolver.Resolve(ctx, a.Ticker)
		if err != nil {
			m.log.WithError(err).WithFields(map[string]any{
				"user":   a.UserID,
				"alert":  a.ID,
				"ticker": a.Ticker,
			}).Error("alert evaluation failed")
			continue
		}

		if !details.Price.IsPositive() {
			m.log.WithFields(map[string]any{
				"alert":  a.ID,
				"ticker": a.Ticker,
			}).Warnf("skipping alert, no valid last price (%s)", details.Price)
			continue
		}

		if !a.Triggered(details.Price) {
			continue
		}

		// Only the caller that removes the alert notifies, so a trigger is sent once
		m.mu.Lock()
		removed := m.removeLocked(a.UserID, a.ID)
		if removed != nil {
			removed.Active = false
		}
		notifier := m.notifier
		m.mu.Unlock()

		if removed == nil {
			continue
		}

		triggered := *removed
		fired = append(fired, triggered)
		m.log.WithField("alert", triggered.ID).Infof("alert triggered: %s at %s", triggered, details.Price)

		if notifier != nil {
			notifier.Notify(triggered.UserID, formatTrigger(triggered, details))
		}
	}

	return fired
}

func formatTrigger(a core.PriceAlert, details core.MarketDetails) string {
	return fmt.Sprintf("🔔 PRICE ALERT - %s\n-----\nPrice %s is %s your target %s",
		a.Ticker, details.Price, a.Condition, a.TargetPrice)
}

// Status returns the evaluation loop status
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start evaluates alerts every interval until ctx is done.
// Ticks with no alerts do nothing but keep the loop alive.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	m.mu.Lock()
	if m.status == StatusRunning {
		m.mu.Unlock()
		return
	}
	m.status = StatusRunning
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.EvaluateAll(ctx)
			case <-ctx.Done():
				m.mu.Lock()
				m.status = StatusStopped
				m.mu.Unlock()
				return
			}
		}
	}()
	m.log.Infof("alert monitor started, interval %s", interval)
}
