package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories/memstore"
	"topvend/internal/services/ledger"
	"topvend/internal/services/notification"
	"topvend/internal/services/provider"
	"topvend/internal/services/stock"
	"topvend/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	result *provider.PurchaseResult
	err    error
	calls  int
}

func (g *fakeGateway) PurchaseAirtime(ctx context.Context, network, phone string, amount decimal.Decimal) (*provider.PurchaseResult, error) {
	g.calls++
	return g.result, g.err
}

func (g *fakeGateway) PurchaseData(ctx context.Context, network, phone, planCode string) (*provider.PurchaseResult, error) {
	g.calls++
	return g.result, g.err
}

type captureEmitter struct {
	mu     sync.Mutex
	events []notification.Event
}

func (e *captureEmitter) Emit(ctx context.Context, event notification.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *captureEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var names []string
	for _, ev := range e.events {
		names = append(names, ev.Name)
	}
	return names
}

type fixture struct {
	store   *memstore.Store
	wallets wallet.Service
	orch    *Orchestrator
	gateway *fakeGateway
	emitter *captureEmitter
}

func newFixture(gw *fakeGateway) *fixture {
	store := memstore.New()
	wallets := wallet.NewService(store, ledger.NewService(), nil, nil, wallet.Config{AllowCreditWhenFrozen: true}, nil)
	engine := stock.NewEngine(store, wallets)
	emitter := &captureEmitter{}
	orch := NewOrchestrator(store, wallets, engine, gw, emitter, Config{})
	return &fixture{store: store, wallets: wallets, orch: orch, gateway: gw, emitter: emitter}
}

func (f *fixture) seedWallet(userID uint, balance int64) models.Wallet {
	return f.store.SeedWallet(models.Wallet{
		UserID:  userID,
		Balance: decimal.NewFromInt(balance),
		Active:  true,
	})
}

func (f *fixture) seedPool(userID uint, balance int64) models.DistributorStock {
	return f.store.SeedPool(models.DistributorStock{
		UserID:         userID,
		Network:        "mtn",
		ProductType:    models.ProductAirtime,
		Balance:        decimal.NewFromInt(balance),
		TotalPurchased: decimal.NewFromInt(balance),
		Active:         true,
	})
}

func (f *fixture) poolBalance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	pool, err := f.store.Stock().GetPool(userID, "mtn", models.ProductAirtime)
	require.NoError(t, err)
	return pool.Balance
}

func (f *fixture) walletBalance(t *testing.T, walletID uint) decimal.Decimal {
	t.Helper()
	w, err := f.store.Wallets().GetByID(walletID)
	require.NoError(t, err)
	return w.Balance
}

func okResult() *provider.PurchaseResult {
	return &provider.PurchaseResult{
		Success:           true,
		ProviderReference: "PRV-1",
		Message:           "delivered",
		RawResponse:       map[string]interface{}{"status": "success"},
	}
}

func TestSellProduct_Success(t *testing.T) {
	f := newFixture(&fakeGateway{result: okResult()})
	f.seedPool(1, 1000)

	sale, err := f.orch.SellProduct(context.Background(), SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	assert.Equal(t, models.SaleStatusSuccess, sale.Status)
	assert.Equal(t, "PRV-1", sale.ProviderReference)
	assert.NotNil(t, sale.CompletedAt)
	assert.True(t, sale.StockBalanceBefore.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sale.StockBalanceAfter.Equal(decimal.NewFromInt(800)))

	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(800)))
	assert.Equal(t, 1, f.gateway.calls)
	assert.Contains(t, f.emitter.names(), notification.EventSaleCompleted)
}

func TestSellProduct_ProviderRejected(t *testing.T) {
	declined := &provider.PurchaseResult{
		Success:     false,
		Message:     "number barred",
		RawResponse: map[string]interface{}{"status": "failed"},
	}
	f := newFixture(&fakeGateway{result: declined, err: apperrors.ErrProviderRejected})
	f.seedPool(1, 1000)

	sale, err := f.orch.SellProduct(context.Background(), SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, apperrors.ErrProviderRejected)
	require.NotNil(t, sale, "the failed sale record is returned for display")

	assert.Equal(t, models.SaleStatusFailed, sale.Status)
	assert.NotEmpty(t, sale.FailureReason)

	pool, perr := f.store.Stock().GetPool(1, "mtn", models.ProductAirtime)
	require.NoError(t, perr)
	assert.True(t, pool.Balance.Equal(decimal.NewFromInt(1000)), "stock hold must be reversed exactly")
	assert.True(t, pool.TotalSold.IsZero())
	assert.Contains(t, f.emitter.names(), notification.EventSaleFailed)
}

func TestSellProduct_ProviderUnavailable(t *testing.T) {
	f := newFixture(&fakeGateway{err: apperrors.ErrProviderUnavailable})
	f.seedPool(1, 1000)

	sale, err := f.orch.SellProduct(context.Background(), SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	require.NotNil(t, sale)
	assert.Equal(t, models.SaleStatusFailed, sale.Status)
	assert.Equal(t, "provider timeout", sale.FailureReason)
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(1000)))
}

func TestSellProduct_InsufficientStock(t *testing.T) {
	f := newFixture(&fakeGateway{result: okResult()})
	f.seedPool(1, 100)

	sale, err := f.orch.SellProduct(context.Background(), SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Nil(t, sale)
	assert.Equal(t, 0, f.gateway.calls, "provider must not be called without a stock hold")
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(100)))
}

func TestSellProduct_IdempotentReference(t *testing.T) {
	f := newFixture(&fakeGateway{result: okResult()})
	f.seedPool(1, 1000)

	req := SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
		Reference:   "VTU-RETRY",
	}
	first, err := f.orch.SellProduct(context.Background(), req)
	require.NoError(t, err)

	second, err := f.orch.SellProduct(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.gateway.calls, "a retried reference must not sell twice")
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(800)))
}

func TestRefundSale(t *testing.T) {
	f := newFixture(&fakeGateway{result: okResult()})
	f.seedPool(1, 1000)

	sale, err := f.orch.SellProduct(context.Background(), SellRequest{
		UserID:      1,
		Network:     "mtn",
		ProductType: models.ProductAirtime,
		Phone:       "08030000001",
		Amount:      decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	refunded, err := f.orch.RefundSale(context.Background(), sale.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusRefunded, refunded.Status)
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(1000)))
	assert.Contains(t, f.emitter.names(), notification.EventSaleRefunded)

	// A refunded sale cannot be refunded again.
	_, err = f.orch.RefundSale(context.Background(), sale.ID, 42)
	assert.Error(t, err)
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(1000)))
}

func TestBuyStock(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 2000)

	purchase, err := f.orch.BuyStock(context.Background(), stock.PurchaseRequest{
		UserID:          1,
		Network:         "mtn",
		ProductType:     models.ProductAirtime,
		Amount:          decimal.NewFromInt(1000),
		DiscountPercent: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.True(t, purchase.Cost.Equal(decimal.NewFromInt(970)))
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(1030)))
	assert.True(t, f.poolBalance(t, 1).Equal(decimal.NewFromInt(1000)))
	assert.Contains(t, f.emitter.names(), notification.EventStockPurchased)
	assert.Contains(t, f.emitter.names(), notification.EventWalletDebited)
}

func TestCreateFundingRequest(t *testing.T) {
	f := newFixture(&fakeGateway{})
	f.seedWallet(1, 0)
	first := f.store.SeedAccount(models.SettlementAccount{
		BankName:      "GTBank",
		AccountName:   "TopVend Ltd",
		AccountNumber: "0123456789",
		Priority:      1,
		DailyLimit:    decimal.NewFromInt(500),
		UsageDate:     time.Now().UTC(),
		Active:        true,
	})
	second := f.store.SeedAccount(models.SettlementAccount{
		BankName:      "Zenith",
		AccountName:   "TopVend Ltd",
		AccountNumber: "9876543210",
		Priority:      2,
		UsageDate:     time.Now().UTC(),
		Active:        true,
	})

	req, account, err := f.orch.CreateFundingRequest(context.Background(), 1, decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, first.ID, account.ID, "highest priority account within its limit wins")
	assert.Equal(t, models.FundingStatusPending, req.Status)
	require.NotNil(t, req.SettlementAccountID)
	assert.Equal(t, first.ID, *req.SettlementAccountID)

	// The first account would exceed its daily limit now; fall through.
	_, account, err = f.orch.CreateFundingRequest(context.Background(), 1, decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, second.ID, account.ID)
}

func TestCreateFundingRequest_Validation(t *testing.T) {
	f := newFixture(&fakeGateway{})
	f.seedWallet(1, 0)

	_, _, err := f.orch.CreateFundingRequest(context.Background(), 1, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, _, err = f.orch.CreateFundingRequest(context.Background(), 99, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestConfirmFunding(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 0)

	req, _, err := f.orch.CreateFundingRequest(context.Background(), 1, decimal.NewFromInt(500))
	require.NoError(t, err)

	// The user paid less than claimed; the paid amount is what lands.
	entry, err := f.orch.ConfirmFunding(context.Background(), req.ID, decimal.NewFromInt(450), 42)
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(450)))
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(450)))

	stored, err := f.store.Settlements().GetFundingRequestForUpdate(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FundingStatusConfirmed, stored.Status)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(450)))
	require.NotNil(t, stored.ConfirmedBy)
	assert.Equal(t, uint(42), *stored.ConfirmedBy)

	// Confirming twice must not credit twice.
	_, err = f.orch.ConfirmFunding(context.Background(), req.ID, decimal.NewFromInt(450), 42)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(450)))

	assert.Contains(t, f.emitter.names(), notification.EventFundingConfirmed)
	assert.Contains(t, f.emitter.names(), notification.EventWalletCredited)
}

func TestConfirmFunding_Expired(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 0)
	req := f.store.SeedFundingRequest(models.WalletFundingRequest{
		UserID:        1,
		WalletID:      w.ID,
		Reference:     "FR-STALE",
		AmountClaimed: decimal.NewFromInt(500),
		Status:        models.FundingStatusPending,
		ExpiresAt:     time.Now().UTC().Add(-time.Hour),
	})

	_, err := f.orch.ConfirmFunding(context.Background(), req.ID, decimal.NewFromInt(500), 42)
	assert.ErrorIs(t, err, apperrors.ErrRequestExpired)

	stored, gerr := f.store.Settlements().GetFundingRequestForUpdate(req.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.FundingStatusExpired, stored.Status, "the expiry mark must be committed")
	assert.True(t, f.walletBalance(t, w.ID).IsZero())
}

func TestAdjustBalance_Validation(t *testing.T) {
	f := newFixture(&fakeGateway{})
	f.seedWallet(1, 0)

	_, _, err := f.orch.AdjustBalance(context.Background(), AdjustmentRequest{
		WalletID:  1,
		Direction: models.DirectionCredit,
		Amount:    decimal.Zero,
		Reason:    "reconciliation",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, _, err = f.orch.AdjustBalance(context.Background(), AdjustmentRequest{
		WalletID:  1,
		Direction: "sideways",
		Amount:    decimal.NewFromInt(100),
		Reason:    "reconciliation",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestVerifyAdjustment_CreditFlow(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 0)

	adj, code, err := f.orch.AdjustBalance(context.Background(), AdjustmentRequest{
		WalletID:  w.ID,
		Direction: models.DirectionCredit,
		Amount:    decimal.NewFromInt(750),
		Reason:    "bank reconciliation shortfall",
		AdminID:   42,
	})
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, models.AdjustmentStatusPending, adj.Status)
	assert.True(t, f.walletBalance(t, w.ID).IsZero(), "wallet untouched before verification")

	// A wrong code is rejected and changes nothing.
	_, err = f.orch.VerifyAdjustment(context.Background(), adj.ID, "wrong!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOtp)
	assert.True(t, f.walletBalance(t, w.ID).IsZero())

	done, err := f.orch.VerifyAdjustment(context.Background(), adj.ID, code)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusCompleted, done.Status)
	assert.NotNil(t, done.LedgerEntryID)
	assert.NotNil(t, done.VerifiedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(750)))
	assert.Contains(t, f.emitter.names(), notification.EventAdjustmentCompleted)

	// Replaying the OTP after completion must not credit again.
	_, err = f.orch.VerifyAdjustment(context.Background(), adj.ID, code)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(750)))
}

func TestVerifyAdjustment_Expired(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 0)

	adj, code, err := f.orch.AdjustBalance(context.Background(), AdjustmentRequest{
		WalletID:  w.ID,
		Direction: models.DirectionCredit,
		Amount:    decimal.NewFromInt(100),
		Reason:    "reconciliation",
		AdminID:   42,
	})
	require.NoError(t, err)

	// Age the OTP past its window.
	stored, err := f.store.Settlements().GetAdjustmentForUpdate(adj.ID)
	require.NoError(t, err)
	stored.OtpExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.store.Settlements().UpdateAdjustment(stored))

	_, err = f.orch.VerifyAdjustment(context.Background(), adj.ID, code)
	assert.ErrorIs(t, err, apperrors.ErrOtpExpired)

	stored, err = f.store.Settlements().GetAdjustmentForUpdate(adj.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusExpired, stored.Status)
	assert.True(t, f.walletBalance(t, w.ID).IsZero())
}

func TestVerifyAdjustment_DebitInsufficientFunds(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 50)

	adj, code, err := f.orch.AdjustBalance(context.Background(), AdjustmentRequest{
		WalletID:  w.ID,
		Direction: models.DirectionDebit,
		Amount:    decimal.NewFromInt(200),
		Reason:    "clawback",
		AdminID:   42,
	})
	require.NoError(t, err)

	_, err = f.orch.VerifyAdjustment(context.Background(), adj.ID, code)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(50)))
}

// Concurrent confirmations of the same funding request must credit
// exactly once.
func TestConfirmFunding_Concurrent(t *testing.T) {
	f := newFixture(&fakeGateway{})
	w := f.seedWallet(1, 0)
	req, _, err := f.orch.CreateFundingRequest(context.Background(), 1, decimal.NewFromInt(500))
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.ConfirmFunding(context.Background(), req.ID, decimal.NewFromInt(500), 42)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.walletBalance(t, w.ID).Equal(decimal.NewFromInt(500)))
}
