package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale statuses. Transitions are enforced by the settlement FSM, not by
// ad hoc string checks.
const (
	SaleStatusPending  = "pending"
	SaleStatusSuccess  = "success"
	SaleStatusFailed   = "failed"
	SaleStatusRefunded = "refunded"
)

// VtuTransaction is the immutable record of one resale to an end customer
// (airtime or data). Stock before/after snapshots let a failed provider
// call be reversed exactly.
type VtuTransaction struct {
	ID                 uint            `gorm:"primarykey"`
	UserID             uint            `gorm:"index;not null;index:idx_sale_owner"`
	Network            string          `gorm:"size:20;not null"`
	ProductType        string          `gorm:"size:20;not null"`
	Phone              string          `gorm:"size:20;not null"`
	Amount             decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	PlanCode           string          `gorm:"size:40"`
	Reference          string          `gorm:"size:120;uniqueIndex;not null"`
	ProviderReference  string          `gorm:"size:120;index"`
	ProviderResponse   JSON            `gorm:"type:jsonb"`
	StockBalanceBefore decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	StockBalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Status             string          `gorm:"size:16;not null;default:'pending';index:idx_sale_owner"`
	FailureReason      string          `gorm:"size:255"`
	CompletedAt        *time.Time
	CreatedAt          time.Time `gorm:"index:idx_sale_owner"`
	UpdatedAt          time.Time
}
