package service

import (
	"time"

	"github.com/igor04091968/ss-manager/database"
	"github.com/igor04091968/ss-manager/database/model"
	"gorm.io/gorm"
)

// HistoryService stores executed actions and the installed release.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService() *HistoryService {
	return &HistoryService{
		db: database.GetDB(),
	}
}

// Record stores one action outcome. A nil cause means success.
func (s *HistoryService) Record(action string, cause error, detail string) error {
	e := &model.Event{
		Action: action,
		Result: "ok",
		Detail: detail,
	}
	if cause != nil {
		e.Result = "failed"
		if detail == "" {
			e.Detail = cause.Error()
		}
	}
	return s.db.Create(e).Error
}

// Recent returns the newest limit events, newest first.
func (s *HistoryService) Recent(limit int) ([]model.Event, error) {
	var events []model.Event
	err := s.db.Order("created_at desc, id desc").Limit(limit).Find(&events).Error
	return events, err
}

// Prune deletes events older than days and returns how many went.
func (s *HistoryService) Prune(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.db.Where("created_at < ?", cutoff).Delete(&model.Event{})
	return res.RowsAffected, res.Error
}

// SaveInstallation replaces the installation record.
func (s *HistoryService) SaveInstallation(inst *model.Installation) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Installation{}).Error; err != nil {
			return err
		}
		inst.ID = 0
		if inst.InstalledAt.IsZero() {
			inst.InstalledAt = time.Now()
		}
		return tx.Create(inst).Error
	})
}

// Installation returns the current record or nil when nothing is installed.
func (s *HistoryService) Installation() (*model.Installation, error) {
	var inst model.Installation
	err := s.db.First(&inst).Error
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *HistoryService) ClearInstallation() error {
	return s.db.Where("1 = 1").Delete(&model.Installation{}).Error
}
