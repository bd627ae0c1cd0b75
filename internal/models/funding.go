package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Funding request statuses
const (
	FundingStatusPending   = "pending"
	FundingStatusConfirmed = "confirmed"
	FundingStatusRejected  = "rejected"
	FundingStatusExpired   = "expired"
)

// WalletFundingRequest is a pending claim of an external bank transfer.
// AmountPaid is filled on confirmation (admin action or webhook match)
// and is the amount actually credited, not the claimed amount.
type WalletFundingRequest struct {
	ID                  uint            `gorm:"primarykey"`
	UserID              uint            `gorm:"index;not null;index:idx_funding_owner"`
	WalletID            uint            `gorm:"index;not null"`
	Reference           string          `gorm:"size:120;uniqueIndex;not null"`
	AmountClaimed       decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	AmountPaid          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	SettlementAccountID *uint           `gorm:"index"`
	Status              string          `gorm:"size:16;not null;default:'pending';index:idx_funding_owner"`
	ExpiresAt           time.Time       `gorm:"not null"`
	ConfirmedBy         *uint
	ConfirmedAt         *time.Time
	CreatedAt           time.Time `gorm:"index:idx_funding_owner"`
	UpdatedAt           time.Time
}

// SettlementAccount is a receiving bank account presented with funding
// instructions. Accounts are picked by priority, skipping any whose daily
// usage would exceed its limit; UsedToday resets lazily per calendar day.
type SettlementAccount struct {
	ID            uint            `gorm:"primarykey"`
	BankName      string          `gorm:"size:100;not null"`
	AccountName   string          `gorm:"size:100;not null"`
	AccountNumber string          `gorm:"size:20;not null;uniqueIndex"`
	Priority      int             `gorm:"default:0;index"`
	DailyLimit    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	UsedToday     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	UsageDate     time.Time       `gorm:"type:date"`
	Active        bool            `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RolloverUsage clears the daily usage total when the usage date is stale.
func (a *SettlementAccount) RolloverUsage(now time.Time) bool {
	now = now.UTC()
	stored := a.UsageDate.UTC()
	if stored.Year() == now.Year() && stored.YearDay() == now.YearDay() {
		return false
	}
	a.UsedToday = decimal.Zero
	a.UsageDate = now.Truncate(24 * time.Hour)
	return true
}
