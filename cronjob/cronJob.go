package cronjob

import (
	"fmt"
	"time"

	"github.com/igor04091968/ss-manager/logger"

	"github.com/robfig/cron/v3"
)

type CronJob struct {
	cron *cron.Cron
}

func NewCronJob() *CronJob {
	return &CronJob{}
}

// Start schedules the watchdog on spec and the history prune once a day.
// pruner may be nil when the history database is unavailable.
func (c *CronJob) Start(loc *time.Location, spec string, checker Checker, pruner Pruner, historyDays int) error {
	c.cron = cron.New(cron.WithLocation(loc))

	if _, err := c.cron.AddJob(spec, NewWatchdogJob(checker)); err != nil {
		return fmt.Errorf("invalid watchdog schedule %q: %w", spec, err)
	}
	if pruner != nil && historyDays > 0 {
		if _, err := c.cron.AddJob("@daily", NewPruneJob(pruner, historyDays)); err != nil {
			return err
		}
	}

	c.cron.Start()
	logger.Info("cron started, watchdog ", spec)
	return nil
}

func (c *CronJob) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}
