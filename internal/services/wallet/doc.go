/*
Package wallet provides the wallet service: the public credit/debit API
over the ledger.

All balance-affecting operations for a wallet are serialized against each
other by a row-level exclusive lock taken inside a database transaction;
two concurrent debits can never both succeed past the available balance.

Usage:

	svc := wallet.NewService(store, ledger.NewService(), cache, kyc, wallet.Config{}, metrics)

	w, err := svc.CreateWallet(ctx, userID)

	entry, err := svc.Credit(ctx, wallet.OperationRequest{
	    WalletID:  w.ID,
	    Amount:    decimal.NewFromInt(1000),
	    Source:    models.SourceFunding,
	    Reference: "FUND-123",
	})

Error handling:

Operations fail with the shared taxonomy errors: WalletInactive,
WalletFrozen, InsufficientFunds, DailyLimitExceeded and
DuplicateReference. A DuplicateReference from a retried request carries
the previously committed entry so callers can return the original
outcome instead of a fresh failure.

Limits:

Debit limits come from the wallet-specific WalletSetting row, falling
back to the global default row, falling back to the service Config.
Withdrawal counters reset lazily when the stored counter date rolls
over; there is no scheduled job.
*/
package wallet
