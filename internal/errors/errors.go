// Package errors defines the domain error taxonomy shared across services.
// Every mutating operation either returns a record or one of these errors;
// no operation may silently no-op.
package errors

// DomainError is a structured failure carrying a stable machine code
// and a human-readable reason.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

var (
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
	}
	ErrInsufficientStock = &DomainError{
		Code:    "INSUFFICIENT_STOCK",
		Message: "insufficient stock balance",
	}
	ErrWalletFrozen = &DomainError{
		Code:    "WALLET_FROZEN",
		Message: "wallet is frozen",
	}
	ErrWalletInactive = &DomainError{
		Code:    "WALLET_INACTIVE",
		Message: "wallet is not active",
	}
	ErrDailyLimitExceeded = &DomainError{
		Code:    "DAILY_LIMIT_EXCEEDED",
		Message: "daily limit exceeded",
	}
	ErrDuplicateReference = &DomainError{
		Code:    "DUPLICATE_REFERENCE",
		Message: "transaction reference already used",
	}
	ErrAlreadyProcessed = &DomainError{
		Code:    "ALREADY_PROCESSED",
		Message: "request has already been processed",
	}
	ErrRequestExpired = &DomainError{
		Code:    "REQUEST_EXPIRED",
		Message: "request has expired",
	}
	ErrInvalidOtp = &DomainError{
		Code:    "INVALID_OTP",
		Message: "invalid OTP",
	}
	ErrOtpExpired = &DomainError{
		Code:    "OTP_EXPIRED",
		Message: "OTP has expired",
	}
	ErrProviderUnavailable = &DomainError{
		Code:    "PROVIDER_UNAVAILABLE",
		Message: "provider is unreachable",
	}
	ErrProviderRejected = &DomainError{
		Code:    "PROVIDER_REJECTED",
		Message: "provider declined the request",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrStockNotFound = &DomainError{
		Code:    "STOCK_NOT_FOUND",
		Message: "stock pool not found",
	}
	ErrKYCRequired = &DomainError{
		Code:    "KYC_REQUIRED",
		Message: "KYC verification required before wallet creation",
	}
)
