package wallet

import (
	"context"
	"sync"
	"testing"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories/memstore"
	"topvend/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKYC struct {
	allowed bool
}

func (f *fakeKYC) IsWalletCreationAllowed(ctx context.Context, userID uint) (bool, error) {
	return f.allowed, nil
}

func newTestService(store *memstore.Store, cfg Config) Service {
	return NewService(store, ledger.NewService(), nil, nil, cfg, nil)
}

func seedWallet(store *memstore.Store, userID uint, balance int64) models.Wallet {
	return store.SeedWallet(models.Wallet{
		UserID:  userID,
		Balance: decimal.NewFromInt(balance),
		Active:  true,
	})
}

func TestWalletService_CreateWallet(t *testing.T) {
	t.Run("creates active wallet with zero balance", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, ledger.NewService(), nil, &fakeKYC{allowed: true}, Config{}, nil)

		w, err := svc.CreateWallet(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, w.Balance.IsZero())
		assert.True(t, w.Active)
		assert.Equal(t, "NGN", w.Currency)
	})

	t.Run("rejected without approved kyc", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, ledger.NewService(), nil, &fakeKYC{allowed: false}, Config{}, nil)

		_, err := svc.CreateWallet(context.Background(), 7)
		assert.ErrorIs(t, err, apperrors.ErrKYCRequired)
	})
}

func TestWalletService_Credit(t *testing.T) {
	t.Run("successful credit", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{})
		w := seedWallet(store, 1, 0)

		entry, err := svc.Credit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(2000),
			Source:    models.SourceFunding,
			Reference: "FUND-1",
		})
		require.NoError(t, err)
		assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(2000)))

		stored, err := store.Wallets().GetByID(w.ID)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(2000)))
	})

	t.Run("inactive wallet cannot be credited", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{})
		w := store.SeedWallet(models.Wallet{UserID: 1, Active: false})

		_, err := svc.Credit(context.Background(), OperationRequest{
			WalletID: w.ID,
			Amount:   decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, apperrors.ErrWalletInactive)
	})

	t.Run("frozen wallet credit follows policy", func(t *testing.T) {
		store := memstore.New()
		w := store.SeedWallet(models.Wallet{UserID: 1, Active: true, Frozen: true})

		allow := newTestService(store, Config{AllowCreditWhenFrozen: true})
		_, err := allow.Credit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(10),
			Reference: "FRZ-1",
		})
		assert.NoError(t, err, "refunds land on frozen wallets when the policy allows")

		deny := newTestService(store, Config{AllowCreditWhenFrozen: false})
		_, err = deny.Credit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(10),
			Reference: "FRZ-2",
		})
		assert.ErrorIs(t, err, apperrors.ErrWalletFrozen)
	})

	t.Run("duplicate reference returns the original entry", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{})
		w := seedWallet(store, 1, 0)

		req := OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(500),
			Reference: "FUND-RETRY",
		}
		first, err := svc.Credit(context.Background(), req)
		require.NoError(t, err)

		second, err := svc.Credit(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ErrDuplicateReference)
		require.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)

		stored, err := store.Wallets().GetByID(w.ID)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(500)), "retry must not credit twice")
	})
}

func TestWalletService_Debit(t *testing.T) {
	t.Run("successful debit", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{})
		w := seedWallet(store, 1, 1000)

		entry, err := svc.Debit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(400),
			Source:    models.SourceStockPurchase,
			Reference: "STK-1",
		})
		require.NoError(t, err)
		assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(600)))
	})

	t.Run("insufficient funds leaves balance untouched", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{})
		w := seedWallet(store, 1, 100)

		_, err := svc.Debit(context.Background(), OperationRequest{
			WalletID: w.ID,
			Amount:   decimal.NewFromInt(500),
		})
		assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

		stored, err := store.Wallets().GetByID(w.ID)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("frozen wallet cannot be debited", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{AllowCreditWhenFrozen: true})
		w := store.SeedWallet(models.Wallet{
			UserID:  1,
			Balance: decimal.NewFromInt(1000),
			Active:  true,
			Frozen:  true,
		})

		_, err := svc.Debit(context.Background(), OperationRequest{
			WalletID: w.ID,
			Amount:   decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, apperrors.ErrWalletFrozen)

		stored, gerr := store.Wallets().GetByID(w.ID)
		require.NoError(t, gerr)
		assert.True(t, stored.Suspicious, "a spend attempt against a frozen wallet is flagged")
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("daily debit cap", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{MaxDebitPerDay: decimal.NewFromInt(1000)})
		w := seedWallet(store, 1, 5000)

		_, err := svc.Debit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(600),
			Reference: "D-1",
		})
		require.NoError(t, err)

		_, err = svc.Debit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(600),
			Reference: "D-2",
		})
		assert.ErrorIs(t, err, apperrors.ErrDailyLimitExceeded)

		stored, err := store.Wallets().GetByID(w.ID)
		require.NoError(t, err)
		assert.True(t, stored.Balance.Equal(decimal.NewFromInt(4400)))
	})

	t.Run("per-wallet setting overrides service config", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{MaxDebitPerDay: decimal.NewFromInt(10000)})
		w := seedWallet(store, 1, 5000)
		store.SeedSetting(models.WalletSetting{
			WalletID:       &w.ID,
			MaxDebitPerDay: decimal.NewFromInt(100),
		})

		_, err := svc.Debit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(150),
			Reference: "D-3",
		})
		assert.ErrorIs(t, err, apperrors.ErrDailyLimitExceeded)
	})

	t.Run("withdrawal count cap", func(t *testing.T) {
		store := memstore.New()
		svc := newTestService(store, Config{MaxWithdrawalsPerDay: 2})
		w := seedWallet(store, 1, 10000)

		for i, ref := range []string{"W-1", "W-2"} {
			_, err := svc.Debit(context.Background(), OperationRequest{
				WalletID:  w.ID,
				Amount:    decimal.NewFromInt(100),
				Source:    models.SourceWithdrawal,
				Reference: ref,
			})
			require.NoError(t, err, "withdrawal %d should pass", i+1)
		}

		_, err := svc.Debit(context.Background(), OperationRequest{
			WalletID:  w.ID,
			Amount:    decimal.NewFromInt(100),
			Source:    models.SourceWithdrawal,
			Reference: "W-3",
		})
		assert.ErrorIs(t, err, apperrors.ErrDailyLimitExceeded)
	})
}

// Concurrent debits against one wallet must be serialized by the row
// lock: with balance B and N attempts of amount A, exactly floor(B/A)
// succeed and the ledger stays consistent with the balance.
func TestWalletService_ConcurrentDebits(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, Config{})
	w := seedWallet(store, 1, 1000)

	const attempts = 12
	amount := decimal.NewFromInt(300)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Debit(context.Background(), OperationRequest{
				WalletID: w.ID,
				Amount:   amount,
				Source:   models.SourceStockPurchase,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 3, succeeded, "exactly floor(1000/300) debits may pass")

	stored, err := store.Wallets().GetByID(w.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))

	derived, err := store.Wallets().SumEntries(w.ID)
	require.NoError(t, err)
	assert.True(t, derived.Equal(decimal.NewFromInt(-900)), "ledger sum must match the applied debits")
}

func TestWalletService_FreezeUnfreeze(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, Config{})
	w := seedWallet(store, 1, 0)

	require.NoError(t, svc.Freeze(context.Background(), w.ID, "chargeback review", 99))
	stored, err := store.Wallets().GetByID(w.ID)
	require.NoError(t, err)
	assert.True(t, stored.Frozen)
	assert.Equal(t, "chargeback review", stored.FrozenReason)
	require.NotNil(t, stored.FrozenBy)
	assert.Equal(t, uint(99), *stored.FrozenBy)

	// Freezing twice is a no-op, not an error.
	require.NoError(t, svc.Freeze(context.Background(), w.ID, "again", 99))

	require.NoError(t, svc.Unfreeze(context.Background(), w.ID, 99))
	stored, err = store.Wallets().GetByID(w.ID)
	require.NoError(t, err)
	assert.False(t, stored.Frozen)
	assert.Empty(t, stored.FrozenReason)
	assert.Nil(t, stored.FrozenAt)
}
