package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories"
	"topvend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type service struct {
	store   repositories.Store
	ledger  *ledger.Service
	cache   Cache
	kyc     KYCChecker
	config  Config
	metrics MetricsCollector
}

// NewService creates a new wallet service.
func NewService(
	store repositories.Store,
	ledgerSvc *ledger.Service,
	cache Cache,
	kyc KYCChecker,
	config Config,
	metrics MetricsCollector,
) Service {
	if store == nil {
		panic("store is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}

	if config.MaxDebitPerDay.IsZero() {
		config.MaxDebitPerDay = DefaultMaxDebitPerDay
	}
	if config.MaxWithdrawalsPerDay == 0 {
		config.MaxWithdrawalsPerDay = DefaultMaxWithdrawalsPerDay
	}
	if config.MaxWithdrawalsPerMonth == 0 {
		config.MaxWithdrawalsPerMonth = DefaultMaxWithdrawalsPerMonth
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	return &service{
		store:   store,
		ledger:  ledgerSvc,
		cache:   cache,
		kyc:     kyc,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) CreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.kyc != nil {
		allowed, err := s.kyc.IsWalletCreationAllowed(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("kyc check failed: %w", err)
		}
		if !allowed {
			return nil, apperrors.ErrKYCRequired
		}
	}

	wallet := &models.Wallet{
		UserID:   userID,
		Currency: "NGN",
		Active:   true,
	}
	if err := s.store.Wallets().Create(wallet); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetWallet(ctx, wallet)
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, userID); err == nil {
			return wallet, nil
		}
	}

	wallet, err := s.store.Wallets().GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetWallet(ctx, wallet)
	}
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(s.store.Wallets(), walletID)
}

func (s *service) GetTransactionHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletTransaction, error) {
	return s.store.Wallets().GetEntries(ctx, walletID, limit, offset)
}

// Credit appends a credit entry in its own transaction. On a duplicate
// reference the existing entry is returned alongside DuplicateReference
// so retried requests can surface the original outcome.
func (s *service) Credit(ctx context.Context, req OperationRequest) (*models.WalletTransaction, error) {
	start := time.Now()
	var entry *models.WalletTransaction
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		e, err := s.CreditIn(tx, req)
		entry = e
		return err
	})
	if err != nil {
		return s.settleOutcome(ctx, "credit", req, entry, err)
	}

	s.afterCommit(ctx, "credit", req, start)
	return entry, nil
}

// Debit appends a debit entry in its own transaction, enforcing frozen,
// inactive, balance and daily-limit checks under a row lock.
func (s *service) Debit(ctx context.Context, req OperationRequest) (*models.WalletTransaction, error) {
	start := time.Now()
	var entry *models.WalletTransaction
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		e, err := s.DebitIn(tx, req)
		entry = e
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrWalletFrozen) {
			// Spending against a frozen wallet is flagged for review.
			// Written outside the rolled-back transaction so the mark
			// survives the failed debit.
			s.flagSuspicious(ctx, req.WalletID)
		}
		return s.settleOutcome(ctx, "debit", req, entry, err)
	}

	s.afterCommit(ctx, "debit", req, start)
	return entry, nil
}

// CreditIn runs the credit against an already-open transaction.
func (s *service) CreditIn(store repositories.Store, req OperationRequest) (*models.WalletTransaction, error) {
	repo := store.Wallets()
	w, err := repo.GetByIDForUpdate(req.WalletID)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return nil, apperrors.ErrWalletInactive
	}
	if w.Frozen && !s.config.AllowCreditWhenFrozen {
		return nil, apperrors.ErrWalletFrozen
	}

	return s.ledger.Append(repo, ledger.AppendRequest{
		Wallet:    w,
		Direction: models.DirectionCredit,
		Amount:    req.Amount,
		Reference: s.referenceFor(req),
		Narration: req.Narration,
		Source:    req.Source,
		Metadata:  models.NewJSON(req.Metadata),
	})
}

// DebitIn runs the debit against an already-open transaction.
func (s *service) DebitIn(store repositories.Store, req OperationRequest) (*models.WalletTransaction, error) {
	repo := store.Wallets()
	w, err := repo.GetByIDForUpdate(req.WalletID)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return nil, apperrors.ErrWalletInactive
	}
	if w.Frozen {
		return nil, apperrors.ErrWalletFrozen
	}

	now := time.Now().UTC()
	w.RolloverCounters(now)

	limits, err := s.resolveLimits(repo, w.ID)
	if err != nil {
		return nil, err
	}

	isWithdrawal := req.Source == models.SourceWithdrawal
	if isWithdrawal {
		if limits.MaxWithdrawalsPerDay > 0 && w.WithdrawalsToday >= limits.MaxWithdrawalsPerDay {
			return nil, apperrors.ErrDailyLimitExceeded
		}
		if limits.MaxWithdrawalsPerMonth > 0 && w.WithdrawalsThisMonth >= limits.MaxWithdrawalsPerMonth {
			return nil, apperrors.ErrDailyLimitExceeded
		}
	}

	if limits.MaxDebitPerDay.IsPositive() {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		total, err := repo.GetDebitTotalBetween(w.ID, startOfDay, startOfDay.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		if total.Add(req.Amount).GreaterThan(limits.MaxDebitPerDay) {
			return nil, apperrors.ErrDailyLimitExceeded
		}
	}

	if isWithdrawal {
		w.WithdrawalsToday++
		w.WithdrawalsThisMonth++
	}

	return s.ledger.Append(repo, ledger.AppendRequest{
		Wallet:    w,
		Direction: models.DirectionDebit,
		Amount:    req.Amount,
		Reference: s.referenceFor(req),
		Narration: req.Narration,
		Source:    req.Source,
		Metadata:  models.NewJSON(req.Metadata),
	})
}

// Freeze marks a wallet frozen. Freezing an already-frozen wallet is a
// no-op success.
func (s *service) Freeze(ctx context.Context, walletID uint, reason string, actorID uint) error {
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		repo := tx.Wallets()
		w, err := repo.GetByIDForUpdate(walletID)
		if err != nil {
			return err
		}
		if w.Frozen {
			return nil
		}
		now := time.Now().UTC()
		w.Frozen = true
		w.FrozenReason = reason
		w.FrozenBy = &actorID
		w.FrozenAt = &now
		return repo.Update(w)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, walletID)
	return nil
}

// Unfreeze clears the frozen state; idempotent.
func (s *service) Unfreeze(ctx context.Context, walletID uint, actorID uint) error {
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		repo := tx.Wallets()
		w, err := repo.GetByIDForUpdate(walletID)
		if err != nil {
			return err
		}
		if !w.Frozen {
			return nil
		}
		w.Frozen = false
		w.FrozenReason = ""
		w.FrozenBy = nil
		w.FrozenAt = nil
		return repo.Update(w)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, walletID)
	return nil
}

// resolveLimits applies the wallet-specific setting, then the global
// default row, then the service config.
func (s *service) resolveLimits(repo repositories.WalletRepository, walletID uint) (Config, error) {
	limits := s.config
	setting, err := repo.GetSetting(walletID)
	if err != nil {
		return limits, err
	}
	if setting == nil {
		return limits, nil
	}
	if setting.MaxDebitPerDay.IsPositive() {
		limits.MaxDebitPerDay = setting.MaxDebitPerDay
	}
	if setting.MaxWithdrawalsPerDay > 0 {
		limits.MaxWithdrawalsPerDay = setting.MaxWithdrawalsPerDay
	}
	if setting.MaxWithdrawalsPerMonth > 0 {
		limits.MaxWithdrawalsPerMonth = setting.MaxWithdrawalsPerMonth
	}
	return limits, nil
}

func (s *service) referenceFor(req OperationRequest) string {
	if req.Reference != "" {
		return req.Reference
	}
	return "TXN-" + uuid.NewString()
}

// settleOutcome maps a failed operation to its final result. A duplicate
// reference means the operation already happened: the existing entry is
// fetched so callers can return the original outcome.
func (s *service) settleOutcome(ctx context.Context, op string, req OperationRequest, entry *models.WalletTransaction, err error) (*models.WalletTransaction, error) {
	if errors.Is(err, apperrors.ErrDuplicateReference) && req.Reference != "" {
		if existing, ferr := s.store.Wallets().GetEntryByReference(req.Reference); ferr == nil {
			return existing, apperrors.ErrDuplicateReference
		}
	}
	s.metrics.RecordError(op, errCode(err))
	return nil, err
}

func (s *service) afterCommit(ctx context.Context, op string, req OperationRequest, start time.Time) {
	s.invalidate(ctx, req.WalletID)
	s.metrics.RecordTransaction(op, req.Amount.InexactFloat64())
	s.metrics.RecordOperationDuration(op, time.Since(start))
}

func (s *service) flagSuspicious(ctx context.Context, walletID uint) {
	err := s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		repo := tx.Wallets()
		w, err := repo.GetByIDForUpdate(walletID)
		if err != nil {
			return err
		}
		if w.Suspicious {
			return nil
		}
		w.Suspicious = true
		return repo.Update(w)
	})
	if err != nil {
		return
	}
	s.invalidate(ctx, walletID)
}

func (s *service) invalidate(ctx context.Context, walletID uint) {
	if s.cache == nil {
		return
	}
	if w, err := s.store.Wallets().GetByID(walletID); err == nil {
		s.cache.InvalidateWallet(ctx, w.UserID)
	}
}

func errCode(err error) string {
	var derr *apperrors.DomainError
	if errors.As(err, &derr) {
		return derr.Code
	}
	return "internal"
}
