package models

import "time"

// Subscriber lifecycle statuses.
const (
	SubscriberStatusPending      = "pending"
	SubscriberStatusActive       = "active"
	SubscriberStatusUnsubscribed = "unsubscribed"
)

// SubscriberModel is one newsletter recipient, keyed by email.
type SubscriberModel struct {
	Base
	Email          string     `json:"email"           gorm:"uniqueIndex;not null"`
	Status         string     `json:"status"          gorm:"type:varchar(16);default:'pending';index"`
	ConfirmToken   *string    `json:"-"               gorm:"index"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

func (SubscriberModel) TableName() string { return "subscribers" }
