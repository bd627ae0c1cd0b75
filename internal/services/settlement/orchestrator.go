// Package settlement composes the wallet service, the stock engine and
// the external provider gateway into atomic business actions: selling
// airtime/data, buying stock, confirming bank-transfer funding and
// OTP-gated manual balance adjustments.
//
// Everything before an external provider call simply aborts with no side
// effect; anything after it that fails triggers a compensating action
// (stock replenish, wallet reversal) so no money or stock is silently
// lost. Domain events are emitted strictly after commit.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories"
	"topvend/internal/services/notification"
	"topvend/internal/services/provider"
	"topvend/internal/services/stock"
	"topvend/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds orchestrator timeouts.
type Config struct {
	ProviderCallTimeout time.Duration
	OtpTTL              time.Duration
	FundingTTL          time.Duration
}

// Orchestrator sequences multi-component operations, one logical
// transaction per business action.
type Orchestrator struct {
	store   repositories.Store
	wallets wallet.Service
	stock   stock.Engine
	gateway provider.Gateway
	emitter notification.Emitter
	config  Config
}

func NewOrchestrator(
	store repositories.Store,
	wallets wallet.Service,
	stockEngine stock.Engine,
	gateway provider.Gateway,
	emitter notification.Emitter,
	config Config,
) *Orchestrator {
	if store == nil {
		panic("store is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	if stockEngine == nil {
		panic("stock engine is required")
	}
	if gateway == nil {
		panic("provider gateway is required")
	}
	if emitter == nil {
		emitter = notification.NewLogEmitter()
	}
	if config.ProviderCallTimeout == 0 {
		config.ProviderCallTimeout = 15 * time.Second
	}
	if config.OtpTTL == 0 {
		config.OtpTTL = 10 * time.Minute
	}
	if config.FundingTTL == 0 {
		config.FundingTTL = 24 * time.Hour
	}

	return &Orchestrator{
		store:   store,
		wallets: wallets,
		stock:   stockEngine,
		gateway: gateway,
		emitter: emitter,
		config:  config,
	}
}

// SellRequest describes one resale to an end customer.
type SellRequest struct {
	UserID      uint
	Network     string
	ProductType string
	Phone       string
	Amount      decimal.Decimal
	PlanCode    string
	Reference   string
}

// SellProduct runs the resale settlement: reserve stock, call the
// provider, then commit or reverse. Stock is never left debited for an
// unfulfilled sale. When the provider fails or times out the sale record
// is returned alongside the provider error.
func (o *Orchestrator) SellProduct(ctx context.Context, req SellRequest) (*models.VtuTransaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	// A retried request with a known reference returns the original
	// outcome instead of selling twice.
	if req.Reference != "" {
		if existing, err := o.store.Settlements().GetSaleByReference(req.Reference); err == nil {
			return existing, nil
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	reference := req.Reference
	if reference == "" {
		reference = "VTU-" + uuid.NewString()
	}

	// Phase 1: reserve stock and record the pending sale atomically.
	var sale *models.VtuTransaction
	err := o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		movement, err := o.stock.DepleteForSaleIn(tx, req.UserID, req.Network, req.ProductType, req.Amount)
		if err != nil {
			return err
		}
		sale = &models.VtuTransaction{
			UserID:             req.UserID,
			Network:            req.Network,
			ProductType:        req.ProductType,
			Phone:              req.Phone,
			Amount:             req.Amount,
			PlanCode:           req.PlanCode,
			Reference:          reference,
			StockBalanceBefore: movement.Before,
			StockBalanceAfter:  movement.After,
			Status:             models.SaleStatusPending,
		}
		return tx.Settlements().CreateSale(sale)
	})
	if err != nil {
		return nil, err
	}

	// Phase 2: call the provider with a bounded timeout. This is the
	// irreversible step; everything after it compensates on failure.
	callCtx, cancel := context.WithTimeout(ctx, o.config.ProviderCallTimeout)
	defer cancel()

	var result *provider.PurchaseResult
	var callErr error
	if req.ProductType == models.ProductData {
		result, callErr = o.gateway.PurchaseData(callCtx, req.Network, req.Phone, req.PlanCode)
	} else {
		result, callErr = o.gateway.PurchaseAirtime(callCtx, req.Network, req.Phone, req.Amount)
	}

	if callErr != nil {
		reason := failureReason(callErr)
		if ferr := o.failSale(ctx, sale, result, reason); ferr != nil {
			return sale, ferr
		}
		o.emit(ctx, notification.EventSaleFailed, map[string]interface{}{
			"sale_id":   sale.ID,
			"reference": sale.Reference,
			"reason":    reason,
		})
		return sale, callErr
	}

	// Phase 3: mark the sale successful.
	err = o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		locked, err := tx.Settlements().GetSaleForUpdate(sale.ID)
		if err != nil {
			return err
		}
		if err := transitionSale(locked, models.SaleStatusSuccess); err != nil {
			return err
		}
		now := time.Now().UTC()
		locked.ProviderReference = result.ProviderReference
		locked.ProviderResponse = models.NewJSON(result.RawResponse)
		locked.CompletedAt = &now
		if err := tx.Settlements().UpdateSale(locked); err != nil {
			return err
		}
		sale = locked
		return nil
	})
	if err != nil {
		return sale, err
	}

	o.emit(ctx, notification.EventSaleCompleted, map[string]interface{}{
		"sale_id":   sale.ID,
		"reference": sale.Reference,
		"amount":    sale.Amount.String(),
	})
	return sale, nil
}

// failSale reverses the stock hold and records the failure as one unit.
func (o *Orchestrator) failSale(ctx context.Context, sale *models.VtuTransaction, result *provider.PurchaseResult, reason string) error {
	return o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		locked, err := tx.Settlements().GetSaleForUpdate(sale.ID)
		if err != nil {
			return err
		}
		if _, err := o.stock.ReplenishIn(tx, locked.UserID, locked.Network, locked.ProductType, locked.Amount); err != nil {
			return err
		}
		if err := transitionSale(locked, models.SaleStatusFailed); err != nil {
			return err
		}
		locked.FailureReason = reason
		if result != nil {
			locked.ProviderReference = result.ProviderReference
			locked.ProviderResponse = models.NewJSON(result.RawResponse)
		}
		if err := tx.Settlements().UpdateSale(locked); err != nil {
			return err
		}
		*sale = *locked
		return nil
	})
}

// RefundSale reverses a successful sale: stock back into the pool, sale
// marked refunded.
func (o *Orchestrator) RefundSale(ctx context.Context, saleID uint, actorID uint) (*models.VtuTransaction, error) {
	var sale *models.VtuTransaction
	err := o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		locked, err := tx.Settlements().GetSaleForUpdate(saleID)
		if err != nil {
			return err
		}
		if err := transitionSale(locked, models.SaleStatusRefunded); err != nil {
			return err
		}
		if _, err := o.stock.ReplenishIn(tx, locked.UserID, locked.Network, locked.ProductType, locked.Amount); err != nil {
			return err
		}
		locked.FailureReason = fmt.Sprintf("refunded by admin %d", actorID)
		if err := tx.Settlements().UpdateSale(locked); err != nil {
			return err
		}
		sale = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.emit(ctx, notification.EventSaleRefunded, map[string]interface{}{
		"sale_id":   sale.ID,
		"reference": sale.Reference,
	})
	return sale, nil
}

// BuyStock purchases wholesale stock; no external provider call.
func (o *Orchestrator) BuyStock(ctx context.Context, req stock.PurchaseRequest) (*models.StockPurchase, error) {
	purchase, err := o.stock.Purchase(ctx, req)
	if err != nil {
		return nil, err
	}

	o.emit(ctx, notification.EventStockPurchased, map[string]interface{}{
		"user_id":   purchase.UserID,
		"network":   purchase.Network,
		"amount":    purchase.Amount.String(),
		"cost":      purchase.Cost.String(),
		"reference": purchase.Reference,
	})
	o.emit(ctx, notification.EventWalletDebited, map[string]interface{}{
		"user_id":   purchase.UserID,
		"amount":    purchase.Cost.String(),
		"reference": purchase.Reference,
	})
	return purchase, nil
}

// CreateFundingRequest opens a pending bank-transfer claim and picks the
// settlement account to present, by priority within daily limits.
func (o *Orchestrator) CreateFundingRequest(ctx context.Context, userID uint, amount decimal.Decimal) (*models.WalletFundingRequest, *models.SettlementAccount, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, apperrors.ErrInvalidAmount
	}

	var request *models.WalletFundingRequest
	var account *models.SettlementAccount
	err := o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		w, err := tx.Wallets().GetByUserID(userID)
		if err != nil {
			return err
		}

		acct, err := nextSettlementAccount(tx, amount)
		if err != nil {
			return err
		}
		account = acct

		request = &models.WalletFundingRequest{
			UserID:        userID,
			WalletID:      w.ID,
			Reference:     "FR-" + uuid.NewString(),
			AmountClaimed: amount,
			Status:        models.FundingStatusPending,
			ExpiresAt:     time.Now().UTC().Add(o.config.FundingTTL),
		}
		if account != nil {
			request.SettlementAccountID = &account.ID
		}
		return tx.Settlements().CreateFundingRequest(request)
	})
	if err != nil {
		return nil, nil, err
	}
	return request, account, nil
}

// nextSettlementAccount picks the highest-priority active account whose
// daily usage still fits, resetting stale usage totals lazily.
func nextSettlementAccount(tx repositories.Store, amount decimal.Decimal) (*models.SettlementAccount, error) {
	accounts, err := tx.Settlements().ListAccountsForUpdate()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range accounts {
		acct := &accounts[i]
		changed := acct.RolloverUsage(now)
		if acct.DailyLimit.IsPositive() && acct.UsedToday.Add(amount).GreaterThan(acct.DailyLimit) {
			if changed {
				if err := tx.Settlements().UpdateAccount(acct); err != nil {
					return nil, err
				}
			}
			continue
		}
		acct.UsedToday = acct.UsedToday.Add(amount)
		if err := tx.Settlements().UpdateAccount(acct); err != nil {
			return nil, err
		}
		return acct, nil
	}
	return nil, nil
}

// ConfirmFunding lands a bank-transfer confirmation (admin action or
// webhook match). The wallet is credited with the amount actually paid,
// exactly once; re-confirming fails with AlreadyProcessed.
func (o *Orchestrator) ConfirmFunding(ctx context.Context, fundingRequestID uint, actualAmountPaid decimal.Decimal, actorID uint) (*models.WalletTransaction, error) {
	if actualAmountPaid.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	var entry *models.WalletTransaction
	var outcome error
	err := o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		req, err := tx.Settlements().GetFundingRequestForUpdate(fundingRequestID)
		if err != nil {
			return err
		}
		if req.Status != models.FundingStatusPending {
			outcome = apperrors.ErrAlreadyProcessed
			return nil
		}
		now := time.Now().UTC()
		if now.After(req.ExpiresAt) {
			// Commit the expiry mark, then report the failure.
			if err := transitionFunding(req, models.FundingStatusExpired); err != nil {
				return err
			}
			if err := tx.Settlements().UpdateFundingRequest(req); err != nil {
				return err
			}
			outcome = apperrors.ErrRequestExpired
			return nil
		}

		entry, err = o.wallets.CreditIn(tx, wallet.OperationRequest{
			WalletID:  req.WalletID,
			Amount:    actualAmountPaid,
			Source:    models.SourceFunding,
			Reference: "FUND-" + req.Reference,
			Narration: "wallet funding via bank transfer",
			Metadata: map[string]interface{}{
				"funding_request_id": req.ID,
				"amount_claimed":     req.AmountClaimed.String(),
				"confirmed_by":       actorID,
			},
		})
		if err != nil {
			return err
		}

		if err := transitionFunding(req, models.FundingStatusConfirmed); err != nil {
			return err
		}
		req.AmountPaid = actualAmountPaid
		req.ConfirmedBy = &actorID
		req.ConfirmedAt = &now
		return tx.Settlements().UpdateFundingRequest(req)
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}

	o.emit(ctx, notification.EventFundingConfirmed, map[string]interface{}{
		"funding_request_id": fundingRequestID,
		"amount":             actualAmountPaid.String(),
	})
	o.emit(ctx, notification.EventWalletCredited, map[string]interface{}{
		"wallet_id": entry.WalletID,
		"amount":    entry.Amount.String(),
		"reference": entry.Reference,
	})
	return entry, nil
}

// AdjustmentRequest describes an admin-initiated manual balance change.
type AdjustmentRequest struct {
	WalletID  uint
	Direction string
	Amount    decimal.Decimal
	Reason    string
	AdminID   uint
}

// AdjustBalance opens a pending adjustment guarded by an OTP. The
// plaintext code is returned once for delivery; only its hash is stored.
// The wallet is untouched until VerifyAdjustment succeeds.
func (o *Orchestrator) AdjustBalance(ctx context.Context, req AdjustmentRequest) (*models.WalletBalanceAdjustment, string, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, "", apperrors.ErrInvalidAmount
	}
	if req.Direction != models.DirectionCredit && req.Direction != models.DirectionDebit {
		return nil, "", apperrors.ErrInvalidAmount
	}

	w, err := o.store.Wallets().GetByID(req.WalletID)
	if err != nil {
		return nil, "", err
	}

	code, err := generateOTP()
	if err != nil {
		return nil, "", err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return nil, "", err
	}

	adj := &models.WalletBalanceAdjustment{
		WalletID:     w.ID,
		UserID:       w.UserID,
		AdminID:      req.AdminID,
		Direction:    req.Direction,
		Amount:       req.Amount,
		Reason:       req.Reason,
		Reference:    "ADJ-" + uuid.NewString(),
		OtpHash:      hash,
		OtpExpiresAt: time.Now().UTC().Add(o.config.OtpTTL),
		Status:       models.AdjustmentStatusPending,
	}
	if err := o.store.Settlements().CreateAdjustment(adj); err != nil {
		return nil, "", err
	}
	return adj, code, nil
}

// VerifyAdjustment checks the OTP and, only then, applies the wallet
// mutation and completes the adjustment.
func (o *Orchestrator) VerifyAdjustment(ctx context.Context, adjustmentID uint, code string) (*models.WalletBalanceAdjustment, error) {
	var adj *models.WalletBalanceAdjustment
	var entry *models.WalletTransaction
	var outcome error
	err := o.store.ExecuteInTransaction(func(tx repositories.Store) error {
		locked, err := tx.Settlements().GetAdjustmentForUpdate(adjustmentID)
		if err != nil {
			return err
		}
		adj = locked

		if locked.Status != models.AdjustmentStatusPending {
			outcome = apperrors.ErrAlreadyProcessed
			return nil
		}
		now := time.Now().UTC()
		if now.After(locked.OtpExpiresAt) {
			if err := transitionAdjustment(locked, models.AdjustmentStatusExpired); err != nil {
				return err
			}
			if err := tx.Settlements().UpdateAdjustment(locked); err != nil {
				return err
			}
			outcome = apperrors.ErrOtpExpired
			return nil
		}
		if !verifyOTP(locked.OtpHash, code) {
			outcome = apperrors.ErrInvalidOtp
			return nil
		}

		if err := transitionAdjustment(locked, models.AdjustmentStatusVerified); err != nil {
			return err
		}
		locked.VerifiedAt = &now

		op := wallet.OperationRequest{
			WalletID:  locked.WalletID,
			Amount:    locked.Amount,
			Source:    models.SourceAdjustment,
			Reference: locked.Reference,
			Narration: locked.Reason,
			Metadata: map[string]interface{}{
				"adjustment_id": locked.ID,
				"admin_id":      locked.AdminID,
			},
		}
		if locked.Direction == models.DirectionCredit {
			entry, err = o.wallets.CreditIn(tx, op)
		} else {
			entry, err = o.wallets.DebitIn(tx, op)
		}
		if err != nil {
			return err
		}

		if err := transitionAdjustment(locked, models.AdjustmentStatusCompleted); err != nil {
			return err
		}
		locked.CompletedAt = &now
		locked.LedgerEntryID = &entry.ID
		return tx.Settlements().UpdateAdjustment(locked)
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return adj, outcome
	}

	o.emit(ctx, notification.EventAdjustmentCompleted, map[string]interface{}{
		"adjustment_id": adj.ID,
		"wallet_id":     adj.WalletID,
		"direction":     adj.Direction,
		"amount":        adj.Amount.String(),
	})
	return adj, nil
}

func (o *Orchestrator) emit(ctx context.Context, name string, payload map[string]interface{}) {
	o.emitter.Emit(ctx, notification.Event{
		Name:    name,
		At:      time.Now().UTC(),
		Payload: payload,
	})
}

func failureReason(err error) string {
	if errors.Is(err, apperrors.ErrProviderUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return "provider timeout"
	}
	return err.Error()
}
