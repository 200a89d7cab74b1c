package models

import (
	"time"
)

// Subscription rows are written by the billing integration; this service
// only ever reads the tier.
type Subscription struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	UserID    int64      `gorm:"not null;index"`
	Tier      string     `gorm:"type:text;not null;default:'free'"`
	IsActive  bool       `gorm:"default:true"`
	StartDate time.Time  `gorm:"autoCreateTime"`
	EndDate   *time.Time `gorm:"type:timestamp"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}
