package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry directions
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Ledger entry statuses
const (
	EntryStatusPending   = "pending"
	EntryStatusCompleted = "completed"
	EntryStatusFailed    = "failed"
)

// Ledger entry sources
const (
	SourceFunding         = "funding"
	SourceStockPurchase   = "stock_purchase"
	SourceAirtimePurchase = "airtime_purchase"
	SourceDataPurchase    = "data_purchase"
	SourceWithdrawal      = "withdrawal"
	SourceAdjustment      = "adjustment"
	SourceRefund          = "refund"
)

// WalletTransaction is one immutable ledger entry: a single balance
// mutation with before/after snapshots. Rows are never updated after
// completion; the unique reference doubles as the idempotency key.
type WalletTransaction struct {
	ID            uint            `gorm:"primarykey"`
	WalletID      uint            `gorm:"index;not null"`
	UserID        uint            `gorm:"index;not null"`
	Direction     string          `gorm:"size:16;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Reference     string          `gorm:"size:120;uniqueIndex;not null"`
	Narration     string          `gorm:"size:255"`
	Status        string          `gorm:"size:16;not null;default:'pending';index:idx_wallet_txn_owner"`
	Source        string          `gorm:"size:40;index"`
	Metadata      JSON            `gorm:"type:jsonb"`
	CreatedAt     time.Time       `gorm:"index:idx_wallet_txn_owner"`
}
