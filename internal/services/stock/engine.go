// Package stock manages prepaid stock pools: one balance per
// (user, network, product type), incremented by wholesale purchases and
// depleted by resales. Invariant: balance = total_purchased - total_sold,
// never negative.
package stock

import (
	"context"
	"errors"
	"fmt"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories"
	"topvend/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRequest describes a wholesale stock buy. The wallet is debited
// by the discounted cost while the pool is credited with the full face
// Amount.
type PurchaseRequest struct {
	UserID          uint
	Network         string
	ProductType     string
	Amount          decimal.Decimal
	DiscountPercent decimal.Decimal
	Reference       string
}

// Movement reports a pool's balance before and after a mutation, used
// for sale records and exact reversals.
type Movement struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// Engine is the stock pool API. The In variants run against a Store
// bound to an open transaction for composition with wallet and sale
// writes.
type Engine interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*models.StockPurchase, error)
	GetPool(ctx context.Context, userID uint, network, productType string) (*models.DistributorStock, error)
	ListPools(ctx context.Context, userID uint) ([]models.DistributorStock, error)

	DepleteForSaleIn(store repositories.Store, userID uint, network, productType string, amount decimal.Decimal) (*Movement, error)
	ReplenishIn(store repositories.Store, userID uint, network, productType string, amount decimal.Decimal) (*Movement, error)
}

type engine struct {
	store   repositories.Store
	wallets wallet.Service
}

// NewEngine creates a stock engine.
func NewEngine(store repositories.Store, wallets wallet.Service) Engine {
	if store == nil {
		panic("store is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	return &engine{store: store, wallets: wallets}
}

// PurchaseCost returns the wallet debit for buying face-value amount of
// stock at the given discount: amount x (100 - discount) / 100, rounded
// half-up to two decimal places. A 3% discount on 1000 face value costs
// 970.
func PurchaseCost(amount, discountPercent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return amount.Mul(hundred.Sub(discountPercent)).Div(hundred).Round(2)
}

// Purchase debits the wallet and credits the stock pool as one atomic
// unit. On any failure neither side is applied.
func (e *engine) Purchase(ctx context.Context, req PurchaseRequest) (*models.StockPurchase, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, apperrors.ErrInvalidAmount
	}

	// A retried request with a known reference returns the original
	// purchase instead of buying twice.
	if req.Reference != "" {
		if existing, err := e.store.Stock().GetPurchaseByReference(req.Reference); err == nil {
			return existing, nil
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	var purchase *models.StockPurchase
	err := e.store.ExecuteInTransaction(func(tx repositories.Store) error {
		p, err := e.purchaseIn(tx, req)
		purchase = p
		return err
	})
	if err != nil {
		// A duplicate reference means a concurrent retry won the race;
		// hand back its record.
		if errors.Is(err, apperrors.ErrDuplicateReference) && req.Reference != "" {
			if existing, ferr := e.store.Stock().GetPurchaseByReference(req.Reference); ferr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return purchase, nil
}

func (e *engine) purchaseIn(tx repositories.Store, req PurchaseRequest) (*models.StockPurchase, error) {
	w, err := tx.Wallets().GetByUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	reference := req.Reference
	if reference == "" {
		reference = "STK-" + uuid.NewString()
	}
	cost := PurchaseCost(req.Amount, req.DiscountPercent)

	entry, err := e.wallets.DebitIn(tx, wallet.OperationRequest{
		WalletID:  w.ID,
		Amount:    cost,
		Source:    models.SourceStockPurchase,
		Reference: reference,
		Narration: fmt.Sprintf("%s %s stock purchase", req.Network, req.ProductType),
		Metadata: map[string]interface{}{
			"network":          req.Network,
			"product_type":     req.ProductType,
			"face_amount":      req.Amount.String(),
			"discount_percent": req.DiscountPercent.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	pool, err := tx.Stock().GetOrCreatePoolForUpdate(req.UserID, req.Network, req.ProductType)
	if err != nil {
		return nil, err
	}
	stockBefore := pool.Balance
	pool.Balance = pool.Balance.Add(req.Amount)
	pool.TotalPurchased = pool.TotalPurchased.Add(req.Amount)
	if err := tx.Stock().UpdatePool(pool); err != nil {
		return nil, err
	}

	purchase := &models.StockPurchase{
		UserID:              req.UserID,
		Network:             req.Network,
		ProductType:         req.ProductType,
		Amount:              req.Amount,
		DiscountPercent:     req.DiscountPercent,
		Cost:                cost,
		WalletBalanceBefore: entry.BalanceBefore,
		WalletBalanceAfter:  entry.BalanceAfter,
		StockBalanceBefore:  stockBefore,
		StockBalanceAfter:   pool.Balance,
		Reference:           reference,
		Status:              models.StockPurchaseCompleted,
	}
	if err := tx.Stock().CreatePurchase(purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (e *engine) GetPool(ctx context.Context, userID uint, network, productType string) (*models.DistributorStock, error) {
	return e.store.Stock().GetPool(userID, network, productType)
}

func (e *engine) ListPools(ctx context.Context, userID uint) ([]models.DistributorStock, error) {
	return e.store.Stock().ListPools(userID)
}

// DepleteForSaleIn decrements the pool under a row lock. A missing or
// short pool fails with InsufficientStock; an inactive pool cannot sell.
func (e *engine) DepleteForSaleIn(store repositories.Store, userID uint, network, productType string, amount decimal.Decimal) (*Movement, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	pool, err := store.Stock().GetPoolForUpdate(userID, network, productType)
	if err != nil {
		if err == apperrors.ErrStockNotFound {
			return nil, apperrors.ErrInsufficientStock
		}
		return nil, err
	}
	if !pool.Active {
		return nil, apperrors.ErrStockNotFound
	}
	if pool.Balance.LessThan(amount) {
		return nil, apperrors.ErrInsufficientStock
	}

	before := pool.Balance
	pool.Balance = pool.Balance.Sub(amount)
	pool.TotalSold = pool.TotalSold.Add(amount)
	if err := store.Stock().UpdatePool(pool); err != nil {
		return nil, err
	}
	return &Movement{Before: before, After: pool.Balance}, nil
}

// ReplenishIn reverses a depletion exactly: balance back up, total_sold
// back down. Used when a sale fails after the stock hold or is refunded.
func (e *engine) ReplenishIn(store repositories.Store, userID uint, network, productType string, amount decimal.Decimal) (*Movement, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	pool, err := store.Stock().GetPoolForUpdate(userID, network, productType)
	if err != nil {
		return nil, err
	}

	before := pool.Balance
	pool.Balance = pool.Balance.Add(amount)
	pool.TotalSold = pool.TotalSold.Sub(amount)
	if err := store.Stock().UpdatePool(pool); err != nil {
		return nil, err
	}
	return &Movement{Before: before, After: pool.Balance}, nil
}
