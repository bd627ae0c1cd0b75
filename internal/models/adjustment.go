package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Adjustment statuses
const (
	AdjustmentStatusPending   = "pending"
	AdjustmentStatusVerified  = "verified"
	AdjustmentStatusCompleted = "completed"
	AdjustmentStatusExpired   = "expired"
	AdjustmentStatusRejected  = "rejected"
)

// WalletBalanceAdjustment is an admin-initiated manual credit or debit.
// It only touches the wallet after the OTP is verified; the OTP itself is
// stored as a bcrypt hash.
type WalletBalanceAdjustment struct {
	ID           uint            `gorm:"primarykey"`
	WalletID     uint            `gorm:"index;not null"`
	UserID       uint            `gorm:"index;not null"`
	AdminID      uint            `gorm:"not null"`
	Direction    string          `gorm:"size:16;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Reason       string          `gorm:"size:255;not null"`
	Reference    string          `gorm:"size:120;uniqueIndex;not null"`
	OtpHash      string          `gorm:"size:100;not null"`
	OtpExpiresAt time.Time       `gorm:"not null"`
	Status       string          `gorm:"size:16;not null;default:'pending'"`
	LedgerEntryID *uint
	VerifiedAt   *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
