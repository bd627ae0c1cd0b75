package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product types
const (
	ProductAirtime = "airtime"
	ProductData    = "data"
)

// DistributorStock is one prepaid stock pool per (user, network, product).
// Invariant: Balance = TotalPurchased - TotalSold, never negative.
type DistributorStock struct {
	ID             uint            `gorm:"primarykey"`
	UserID         uint            `gorm:"not null;uniqueIndex:idx_stock_pool"`
	Network        string          `gorm:"size:20;not null;uniqueIndex:idx_stock_pool"`
	ProductType    string          `gorm:"size:20;not null;uniqueIndex:idx_stock_pool"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	TotalPurchased decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	TotalSold      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	Active         bool            `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stock purchase statuses
const (
	StockPurchaseCompleted = "completed"
	StockPurchaseFailed    = "failed"
)

// StockPurchase is the immutable record of one stock-buy event. The wallet
// is debited by Cost (face amount less discount) while the stock pool is
// credited with the full face Amount.
type StockPurchase struct {
	ID                 uint            `gorm:"primarykey"`
	UserID             uint            `gorm:"index;not null"`
	Network            string          `gorm:"size:20;not null"`
	ProductType        string          `gorm:"size:20;not null"`
	Amount             decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	DiscountPercent    decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
	Cost               decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	WalletBalanceBefore decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	WalletBalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	StockBalanceBefore  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	StockBalanceAfter   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Reference          string          `gorm:"size:120;uniqueIndex;not null"`
	Status             string          `gorm:"size:16;not null"`
	CreatedAt          time.Time       `gorm:"index"`
}
