package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Email log statuses.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLogModel is an append-only audit trail of outbound mail.
// Rows are never updated or deleted, so it does not embed Base.
type EmailLogModel struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	CreatedAt  time.Time `json:"created"`
	Email      string    `json:"email"       gorm:"index;not null"`
	Template   string    `json:"template"    gorm:"type:varchar(32);not null"`
	Status     string    `json:"status"      gorm:"type:varchar(16);not null"`
	ProviderID string    `json:"provider_id"`
	Error      string    `json:"error"       gorm:"type:text"`
}

func (EmailLogModel) TableName() string { return "email_logs" }

func (e *EmailLogModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
