// Package ledger owns the append-only wallet transaction log and the
// balance invariant: a wallet's materialized balance always equals the
// sum of its committed entries.
package ledger

import (
	"errors"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service appends ledger entries. It is stateless; every call operates
// on a repository bound to the caller's open transaction so the entry
// and the wallet balance update commit or roll back as one unit.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// AppendRequest describes one balance mutation. Wallet must be a locked
// row (loaded with GetByIDForUpdate); it is mutated in place.
type AppendRequest struct {
	Wallet    *models.Wallet
	Direction string
	Amount    decimal.Decimal
	Reference string
	Narration string
	Source    string
	Metadata  models.JSON
}

// Append writes a WalletTransaction with before/after snapshots and
// updates the wallet balance in the same unit of work. Fails with
// DuplicateReference when the reference was already used, and with
// InsufficientFunds when a debit would drive the balance negative on a
// wallet without the negative-balance override.
func (s *Service) Append(repo repositories.WalletRepository, req AppendRequest) (*models.WalletTransaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.Direction != models.DirectionCredit && req.Direction != models.DirectionDebit {
		return nil, apperrors.ErrInvalidAmount
	}

	if _, err := repo.GetEntryByReference(req.Reference); err == nil {
		return nil, apperrors.ErrDuplicateReference
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	w := req.Wallet
	before := w.Balance
	var after decimal.Decimal
	if req.Direction == models.DirectionCredit {
		after = before.Add(req.Amount)
	} else {
		after = before.Sub(req.Amount)
		if after.IsNegative() && !w.AllowNegative {
			return nil, apperrors.ErrInsufficientFunds
		}
	}

	entry := &models.WalletTransaction{
		WalletID:      w.ID,
		UserID:        w.UserID,
		Direction:     req.Direction,
		Amount:        req.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     req.Reference,
		Narration:     req.Narration,
		Status:        models.EntryStatusCompleted,
		Source:        req.Source,
		Metadata:      req.Metadata,
	}
	if err := repo.CreateEntry(entry); err != nil {
		return nil, err
	}

	w.Balance = after
	now := time.Now().UTC()
	w.LastActivityAt = &now
	if err := repo.Update(w); err != nil {
		return nil, err
	}
	return entry, nil
}

// BalanceOf returns the committed balance for a wallet.
func (s *Service) BalanceOf(repo repositories.WalletRepository, walletID uint) (decimal.Decimal, error) {
	w, err := repo.GetByID(walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// Audit recomputes the balance from the entry log and reports whether it
// matches the materialized column.
func (s *Service) Audit(repo repositories.WalletRepository, walletID uint) (bool, decimal.Decimal, error) {
	w, err := repo.GetByID(walletID)
	if err != nil {
		return false, decimal.Zero, err
	}
	derived, err := repo.SumEntries(walletID)
	if err != nil {
		return false, decimal.Zero, err
	}
	return w.Balance.Equal(derived), derived, nil
}
