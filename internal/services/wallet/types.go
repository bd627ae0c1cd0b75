package wallet

import (
	"context"

	"topvend/internal/models"
	"topvend/internal/repositories"

	"github.com/shopspring/decimal"
)

// OperationRequest describes one credit or debit against a wallet.
// Reference is the idempotency key; when empty the service generates one.
type OperationRequest struct {
	WalletID  uint
	Amount    decimal.Decimal
	Source    string
	Reference string
	Narration string
	Metadata  map[string]interface{}
}

// Config holds fallback limits used when no WalletSetting row exists,
// plus the frozen-wallet credit policy. Values are passed in explicitly;
// services never read ambient globals.
type Config struct {
	MaxDebitPerDay         decimal.Decimal
	MaxWithdrawalsPerDay   int
	MaxWithdrawalsPerMonth int
	AllowCreditWhenFrozen  bool
}

// Service is the public wallet API. The In variants run against a Store
// already bound to an open transaction and exist so the settlement
// orchestrator can compose wallet mutations with stock and sale writes
// atomically.
type Service interface {
	CreateWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, walletID uint) (decimal.Decimal, error)
	GetTransactionHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletTransaction, error)

	Credit(ctx context.Context, req OperationRequest) (*models.WalletTransaction, error)
	Debit(ctx context.Context, req OperationRequest) (*models.WalletTransaction, error)
	CreditIn(store repositories.Store, req OperationRequest) (*models.WalletTransaction, error)
	DebitIn(store repositories.Store, req OperationRequest) (*models.WalletTransaction, error)

	Freeze(ctx context.Context, walletID uint, reason string, actorID uint) error
	Unfreeze(ctx context.Context, walletID uint, actorID uint) error
}

// KYCChecker is the identity collaborator consumed before wallet
// creation. KYC review itself happens elsewhere.
type KYCChecker interface {
	IsWalletCreationAllowed(ctx context.Context, userID uint) (bool, error)
}

// Cache is the subset of the cache service the wallet service needs.
type Cache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}
