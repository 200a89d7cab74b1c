package models

import (
	"time"
)

const (
	RequestStatusPending   = "pending"
	RequestStatusCompleted = "completed"
)

type FileRequest struct {
	ID             string     `gorm:"type:text;primaryKey"`
	UserID         *int64     `gorm:"index"`
	RecipientEmail string     `gorm:"type:text;index"`
	Description    string     `gorm:"type:text"`
	Deadline       *time.Time `gorm:"type:timestamp"`
	Status         string     `gorm:"type:text;not null;default:'pending'"`
	UniqueLink     string     `gorm:"type:text;not null;uniqueIndex"`
	// ExpiresAt is fixed at creation from the tier in effect at that moment.
	// Reconciliation recomputes the effective expiry from CreatedAt instead of
	// trusting this value; it is kept for display.
	ExpiresAt          time.Time  `gorm:"not null"`
	IsActive           bool       `gorm:"default:true;index"`
	LastReminderSentAt *time.Time `gorm:"type:timestamp"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
}
