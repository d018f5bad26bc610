package models

import "time"

type EntitlementModel struct {
	ID                uint       `gorm:"primaryKey"`
	UserID            uint       `gorm:"uniqueIndex;not null"`
	Plan              string     `gorm:"size:20;not null;index"`
	Source            string     `gorm:"size:20;not null"`
	ExpiryDate        *time.Time `gorm:"index"`
	ActivatedAt       *time.Time
	DurationDays      int
	LastPaymentAmount int64
	PaymentStatus     string `gorm:"size:20;not null"`
	Version           int    `gorm:"default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (EntitlementModel) TableName() string {
	return "entitlements"
}
