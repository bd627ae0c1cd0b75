package repositories

import (
	"context"
	"errors"
	"fmt"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementRepository defines persistence for sale records, funding
// requests, settlement accounts and manual balance adjustments.
type SettlementRepository interface {
	// Sale records
	CreateSale(sale *models.VtuTransaction) error
	GetSaleByID(id uint) (*models.VtuTransaction, error)
	GetSaleByReference(reference string) (*models.VtuTransaction, error)
	GetSaleForUpdate(id uint) (*models.VtuTransaction, error)
	UpdateSale(sale *models.VtuTransaction) error
	ListSales(ctx context.Context, userID uint, limit, offset int) ([]models.VtuTransaction, error)

	// Funding requests
	CreateFundingRequest(req *models.WalletFundingRequest) error
	GetFundingRequestForUpdate(id uint) (*models.WalletFundingRequest, error)
	UpdateFundingRequest(req *models.WalletFundingRequest) error

	// Settlement accounts, ordered by priority and locked for selection
	ListAccountsForUpdate() ([]models.SettlementAccount, error)
	UpdateAccount(account *models.SettlementAccount) error

	// Balance adjustments
	CreateAdjustment(adj *models.WalletBalanceAdjustment) error
	GetAdjustmentForUpdate(id uint) (*models.WalletBalanceAdjustment, error)
	UpdateAdjustment(adj *models.WalletBalanceAdjustment) error
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) CreateSale(sale *models.VtuTransaction) error {
	if err := r.db.Create(sale).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create sale record: %w", err)
	}
	return nil
}

func (r *settlementRepository) GetSaleByID(id uint) (*models.VtuTransaction, error) {
	var sale models.VtuTransaction
	if err := r.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sale record: %w", err)
	}
	return &sale, nil
}

func (r *settlementRepository) GetSaleByReference(reference string) (*models.VtuTransaction, error) {
	var sale models.VtuTransaction
	if err := r.db.Where("reference = ?", reference).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sale record: %w", err)
	}
	return &sale, nil
}

func (r *settlementRepository) GetSaleForUpdate(id uint) (*models.VtuTransaction, error) {
	var sale models.VtuTransaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock sale record: %w", err)
	}
	return &sale, nil
}

func (r *settlementRepository) UpdateSale(sale *models.VtuTransaction) error {
	if err := r.db.Save(sale).Error; err != nil {
		return fmt.Errorf("failed to update sale record: %w", err)
	}
	return nil
}

func (r *settlementRepository) ListSales(ctx context.Context, userID uint, limit, offset int) ([]models.VtuTransaction, error) {
	var sales []models.VtuTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (r *settlementRepository) CreateFundingRequest(req *models.WalletFundingRequest) error {
	if err := r.db.Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create funding request: %w", err)
	}
	return nil
}

func (r *settlementRepository) GetFundingRequestForUpdate(id uint) (*models.WalletFundingRequest, error) {
	var req models.WalletFundingRequest
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock funding request: %w", err)
	}
	return &req, nil
}

func (r *settlementRepository) UpdateFundingRequest(req *models.WalletFundingRequest) error {
	if err := r.db.Save(req).Error; err != nil {
		return fmt.Errorf("failed to update funding request: %w", err)
	}
	return nil
}

func (r *settlementRepository) ListAccountsForUpdate() ([]models.SettlementAccount, error) {
	var accounts []models.SettlementAccount
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("active = ?", true).
		Order("priority ASC, id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement accounts: %w", err)
	}
	return accounts, nil
}

func (r *settlementRepository) UpdateAccount(account *models.SettlementAccount) error {
	if err := r.db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to update settlement account: %w", err)
	}
	return nil
}

func (r *settlementRepository) CreateAdjustment(adj *models.WalletBalanceAdjustment) error {
	if err := r.db.Create(adj).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create adjustment: %w", err)
	}
	return nil
}

func (r *settlementRepository) GetAdjustmentForUpdate(id uint) (*models.WalletBalanceAdjustment, error) {
	var adj models.WalletBalanceAdjustment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&adj, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock adjustment: %w", err)
	}
	return &adj, nil
}

func (r *settlementRepository) UpdateAdjustment(adj *models.WalletBalanceAdjustment) error {
	if err := r.db.Save(adj).Error; err != nil {
		return fmt.Errorf("failed to update adjustment: %w", err)
	}
	return nil
}
