package settlement

import (
	"fmt"

	"topvend/internal/models"
)

// Status transitions are whitelisted; anything not in these tables is
// rejected rather than silently written.

var saleTransitions = map[string][]string{
	models.SaleStatusPending: {models.SaleStatusSuccess, models.SaleStatusFailed},
	models.SaleStatusSuccess: {models.SaleStatusRefunded},
}

var fundingTransitions = map[string][]string{
	models.FundingStatusPending: {
		models.FundingStatusConfirmed,
		models.FundingStatusRejected,
		models.FundingStatusExpired,
	},
}

var adjustmentTransitions = map[string][]string{
	models.AdjustmentStatusPending: {
		models.AdjustmentStatusVerified,
		models.AdjustmentStatusExpired,
		models.AdjustmentStatusRejected,
	},
	models.AdjustmentStatusVerified: {models.AdjustmentStatusCompleted},
}

func canTransition(table map[string][]string, from, to string) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func transitionSale(sale *models.VtuTransaction, to string) error {
	if !canTransition(saleTransitions, sale.Status, to) {
		return fmt.Errorf("illegal sale transition %s -> %s", sale.Status, to)
	}
	sale.Status = to
	return nil
}

func transitionFunding(req *models.WalletFundingRequest, to string) error {
	if !canTransition(fundingTransitions, req.Status, to) {
		return fmt.Errorf("illegal funding transition %s -> %s", req.Status, to)
	}
	req.Status = to
	return nil
}

func transitionAdjustment(adj *models.WalletBalanceAdjustment, to string) error {
	if !canTransition(adjustmentTransitions, adj.Status, to) {
		return fmt.Errorf("illegal adjustment transition %s -> %s", adj.Status, to)
	}
	adj.Status = to
	return nil
}
