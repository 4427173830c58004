package cronjob

import (
	"github.com/igor04091968/ss-manager/logger"
)

type Pruner interface {
	Prune(days int) (int64, error)
}

type PruneJob struct {
	pruner Pruner
	days   int
}

func NewPruneJob(pruner Pruner, days int) *PruneJob {
	return &PruneJob{
		pruner: pruner,
		days:   days,
	}
}

func (s *PruneJob) Run() {
	n, err := s.pruner.Prune(s.days)
	if err != nil {
		logger.Warning("Deleting old events failed: ", err)
		return
	}
	logger.Debug(n, " events older than ", s.days, " days were deleted")
}
