package repositories

import (
	"errors"
	"fmt"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository defines persistence for distributor stock pools and
// stock purchase records.
type StockRepository interface {
	GetPool(userID uint, network, productType string) (*models.DistributorStock, error)
	GetPoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error)
	GetOrCreatePoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error)
	UpdatePool(pool *models.DistributorStock) error
	ListPools(userID uint) ([]models.DistributorStock, error)

	CreatePurchase(purchase *models.StockPurchase) error
	GetPurchaseByReference(reference string) (*models.StockPurchase, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) GetPool(userID uint, network, productType string) (*models.DistributorStock, error) {
	var pool models.DistributorStock
	err := r.db.Where("user_id = ? AND network = ? AND product_type = ?", userID, network, productType).
		First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, fmt.Errorf("failed to get stock pool: %w", err)
	}
	return &pool, nil
}

// GetPoolForUpdate locks the stock row so concurrent depletions are
// serialized the same way wallet debits are.
func (r *stockRepository) GetPoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error) {
	var pool models.DistributorStock
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND network = ? AND product_type = ?", userID, network, productType).
		First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, fmt.Errorf("failed to lock stock pool: %w", err)
	}
	return &pool, nil
}

func (r *stockRepository) GetOrCreatePoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error) {
	pool, err := r.GetPoolForUpdate(userID, network, productType)
	if err == nil {
		return pool, nil
	}
	if !errors.Is(err, apperrors.ErrStockNotFound) {
		return nil, err
	}

	pool = &models.DistributorStock{
		UserID:      userID,
		Network:     network,
		ProductType: productType,
		Active:      true,
	}
	if err := r.db.Create(pool).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock pool: %w", err)
	}
	return pool, nil
}

func (r *stockRepository) UpdatePool(pool *models.DistributorStock) error {
	if err := r.db.Save(pool).Error; err != nil {
		return fmt.Errorf("failed to update stock pool: %w", err)
	}
	return nil
}

func (r *stockRepository) ListPools(userID uint) ([]models.DistributorStock, error) {
	var pools []models.DistributorStock
	if err := r.db.Where("user_id = ?", userID).Find(&pools).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock pools: %w", err)
	}
	return pools, nil
}

func (r *stockRepository) CreatePurchase(purchase *models.StockPurchase) error {
	if err := r.db.Create(purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create stock purchase: %w", err)
	}
	return nil
}

func (r *stockRepository) GetPurchaseByReference(reference string) (*models.StockPurchase, error) {
	var purchase models.StockPurchase
	if err := r.db.Where("reference = ?", reference).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stock purchase: %w", err)
	}
	return &purchase, nil
}
