package notification

import (
	"github.com/raykavin/chaintrader/pkg/core"
	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the log. Used when no chat transport is enabled.
type LogNotifier struct{}

var _ core.Notifier = LogNotifier{}

// Notify logs the message for the user
func (LogNotifier) Notify(userID int64, text string) {
	log.WithField("user", userID).Info(text)
}
