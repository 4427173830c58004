package app

import (
	"context"
	"time"

	"github.com/igor04091968/ss-manager/api"
	"github.com/igor04091968/ss-manager/cronjob"
	"github.com/igor04091968/ss-manager/logger"
	"github.com/igor04091968/ss-manager/telegram"
)

const shutdownTimeout = 5 * time.Second

// Watch runs the watchdog and the optional bot and API until ctx is done.
func (a *APP) Watch(ctx context.Context) error {
	var pruner cronjob.Pruner
	if a.services.HistoryService != nil {
		pruner = a.services.HistoryService
	}

	cronJob := cronjob.NewCronJob()
	if err := cronJob.Start(time.Local, a.settings.Watchdog.Spec, a, pruner, a.settings.Watchdog.HistoryDays); err != nil {
		return err
	}
	defer cronJob.Stop()

	if a.settings.API.Enabled {
		server := api.NewServer()
		if err := server.Start(&a.settings.API, a); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(sctx); err != nil {
				logger.Warning("api shutdown: ", err)
			}
		}()
	}

	if a.settings.Telegram.Enabled {
		go func() {
			if err := telegram.Start(ctx, &a.settings.Telegram, a); err != nil {
				logger.Error(err)
			}
		}()
	}

	logger.Info("watching ", a.settings.ServiceName)
	<-ctx.Done()
	logger.Info("watch stopped")
	return nil
}
