package cronjob

import (
	"context"
	"time"

	"github.com/igor04091968/ss-manager/logger"
)

const watchdogTimeout = 30 * time.Second

// Checker inspects the service and records when it is down.
type Checker interface {
	Watchdog(ctx context.Context) bool
}

type WatchdogJob struct {
	checker Checker
}

func NewWatchdogJob(checker Checker) *WatchdogJob {
	return &WatchdogJob{checker: checker}
}

func (s *WatchdogJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), watchdogTimeout)
	defer cancel()
	if !s.checker.Watchdog(ctx) {
		logger.Debug("watchdog: nothing to report")
	}
}
