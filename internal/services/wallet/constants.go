package wallet

import "github.com/shopspring/decimal"

// Default limits applied when no WalletSetting row exists.
var (
	DefaultMaxDebitPerDay = decimal.NewFromInt(500000)
)

const (
	DefaultMaxWithdrawalsPerDay   = 10
	DefaultMaxWithdrawalsPerMonth = 100
)
