package models

import "time"

type TransactionModel struct {
	ID              uint   `gorm:"primaryKey"`
	Provider        string `gorm:"size:20;not null;uniqueIndex:idx_provider_tx,priority:1"`
	ProviderTxID    string `gorm:"size:64;not null;uniqueIndex:idx_provider_tx,priority:2"`
	MerchantOrderID string `gorm:"size:64;index"`
	UserID          uint   `gorm:"index;not null"`
	Amount          int64  `gorm:"not null"`
	State           string `gorm:"size:32;not null;index"`
	Reason          *int
	PerformedAt     *time.Time `gorm:"index"`
	CancelledAt     *time.Time
	RetryCount      int       `gorm:"default:0"`
	RawPayload      JSONB     `gorm:"type:jsonb"`
	Version         int       `gorm:"default:0"`
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

func (TransactionModel) TableName() string {
	return "payment_transactions"
}
