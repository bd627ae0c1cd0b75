package repositories

import (
	"context"
	"time"

	"topvend/internal/models"

	"github.com/shopspring/decimal"
)

// WalletRepository defines wallet and ledger persistence operations.
// The ForUpdate variants take a row-level exclusive lock and must only be
// called inside ExecuteInTransaction.
type WalletRepository interface {
	// Wallet rows
	Create(wallet *models.Wallet) error
	GetByID(id uint) (*models.Wallet, error)
	GetByUserID(userID uint) (*models.Wallet, error)
	GetByIDForUpdate(id uint) (*models.Wallet, error)
	Update(wallet *models.Wallet) error

	// Ledger entries
	CreateEntry(entry *models.WalletTransaction) error
	GetEntryByReference(reference string) (*models.WalletTransaction, error)
	GetEntries(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletTransaction, error)
	GetDebitTotalBetween(walletID uint, start, end time.Time) (decimal.Decimal, error)
	SumEntries(walletID uint) (decimal.Decimal, error)

	// Limit settings: wallet-specific override falling back to the
	// global default row (nil wallet id). Returns nil when neither exists.
	GetSetting(walletID uint) (*models.WalletSetting, error)
	SaveSetting(setting *models.WalletSetting) error
}
