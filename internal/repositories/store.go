package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned for missing records that have no dedicated
// domain error of their own.
var ErrNotFound = errors.New("record not found")

// Store bundles the repositories so multi-entity operations (wallet debit
// plus stock increment plus sale record) can share one database
// transaction. ExecuteInTransaction hands the callback a Store bound to
// the transaction; everything inside commits or rolls back together.
type Store interface {
	Wallets() WalletRepository
	Stock() StockRepository
	Settlements() SettlementRepository
	ExecuteInTransaction(fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by the given gorm handle.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Wallets() WalletRepository {
	return NewWalletRepository(s.db)
}

func (s *gormStore) Stock() StockRepository {
	return NewStockRepository(s.db)
}

func (s *gormStore) Settlements() SettlementRepository {
	return NewSettlementRepository(s.db)
}

func (s *gormStore) ExecuteInTransaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
