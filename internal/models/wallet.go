package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a user's spendable balance in naira. The balance column is
// materialized and kept in sync with the wallet_transactions ledger inside
// the same database transaction; it must never drift from the entry sum.
type Wallet struct {
	ID       uint            `gorm:"primarykey"`
	UserID   uint            `gorm:"uniqueIndex;not null"`
	Balance  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	Currency string          `gorm:"default:'NGN'"`

	Active        bool `gorm:"default:true"`
	Frozen        bool `gorm:"default:false"`
	FrozenReason  string
	FrozenBy      *uint
	FrozenAt      *time.Time
	AllowNegative bool `gorm:"default:false"`
	Suspicious    bool `gorm:"default:false"`

	// Withdrawal counters, reset lazily when CounterDate no longer
	// matches the current date (no scheduled job).
	WithdrawalsToday     int       `gorm:"default:0"`
	WithdrawalsThisMonth int       `gorm:"default:0"`
	CounterDate          time.Time `gorm:"type:date"`

	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Balances start at zero; funding goes through the ledger.
	w.Balance = decimal.Zero
	if w.CounterDate.IsZero() {
		w.CounterDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return nil
}

// RolloverCounters resets the daily and monthly withdrawal counters when
// the stored counter date has fallen behind now. Returns true if anything
// changed so callers know to persist the wallet.
func (w *Wallet) RolloverCounters(now time.Time) bool {
	now = now.UTC()
	stored := w.CounterDate.UTC()
	changed := false

	if stored.Year() != now.Year() || stored.Month() != now.Month() {
		w.WithdrawalsThisMonth = 0
		w.WithdrawalsToday = 0
		changed = true
	} else if stored.Day() != now.Day() {
		w.WithdrawalsToday = 0
		changed = true
	}

	if changed {
		w.CounterDate = now.Truncate(24 * time.Hour)
	}
	return changed
}

// WalletSetting carries debit limits. A row with a nil WalletID is the
// global default; a row bound to a wallet overrides it.
type WalletSetting struct {
	ID                     uint            `gorm:"primarykey"`
	WalletID               *uint           `gorm:"uniqueIndex"`
	MaxDebitPerDay         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	MaxWithdrawalsPerDay   int             `gorm:"default:0"`
	MaxWithdrawalsPerMonth int             `gorm:"default:0"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
