package models

import (
	"time"
)

type UploadedFile struct {
	ID          string    `gorm:"type:text;primaryKey"`
	RequestID   *string   `gorm:"index"`
	Filename    string    `gorm:"type:text;not null"`
	StoragePath string    `gorm:"type:text;not null"`
	FileSize    int64     `gorm:"not null"`
	UploadedAt  time.Time `gorm:"autoCreateTime"`
}
