package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// Event is one executed action.
type Event struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex;size:36"`
	Action    string    `json:"action" gorm:"index;not null"`
	Result    string    `json:"result"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		e.UUID = id.String()
	}
	return nil
}

// Installation records the installed release. There is at most one row.
type Installation struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Version     string    `json:"version"`
	BinaryPath  string    `json:"binary_path"`
	Arch        string    `json:"arch"`
	InstalledAt time.Time `json:"installed_at"`
}
