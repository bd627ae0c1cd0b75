package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByID(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// GetByIDForUpdate locks the wallet row (SELECT ... FOR UPDATE) so
// concurrent debits against the same wallet are strictly serialized.
func (r *walletRepository) GetByIDForUpdate(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) Update(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) CreateEntry(entry *models.WalletTransaction) error {
	if err := r.db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (r *walletRepository) GetEntryByReference(reference string) (*models.WalletTransaction, error) {
	var entry models.WalletTransaction
	if err := r.db.Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *walletRepository) GetEntries(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}

func (r *walletRepository) GetDebitTotalBetween(walletID uint, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&models.WalletTransaction{}).
		Where("wallet_id = ? AND direction = ? AND status = ? AND created_at BETWEEN ? AND ?",
			walletID, models.DirectionDebit, models.EntryStatusCompleted, start, end).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get debit total: %w", err)
	}
	return total, nil
}

// SumEntries derives the balance from the ledger: credits positive,
// debits negative. Used by audit checks against the materialized column.
func (r *walletRepository) SumEntries(walletID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&models.WalletTransaction{}).
		Where("wallet_id = ? AND status = ?", walletID, models.EntryStatusCompleted).
		Select("COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return total, nil
}

func (r *walletRepository) GetSetting(walletID uint) (*models.WalletSetting, error) {
	var setting models.WalletSetting
	err := r.db.Where("wallet_id = ?", walletID).First(&setting).Error
	if err == nil {
		return &setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get wallet setting: %w", err)
	}

	// Fall back to the global default row.
	err = r.db.Where("wallet_id IS NULL").First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get global wallet setting: %w", err)
	}
	return &setting, nil
}

func (r *walletRepository) SaveSetting(setting *models.WalletSetting) error {
	if err := r.db.Save(setting).Error; err != nil {
		return fmt.Errorf("failed to save wallet setting: %w", err)
	}
	return nil
}
