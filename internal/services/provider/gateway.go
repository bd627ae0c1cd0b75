// Package provider talks to the external VTU API that actually delivers
// airtime and data. The API itself is an external collaborator; this
// package only wraps its HTTP surface with bounded timeouts and retries,
// and separates network failures from business declines.
package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// PurchaseResult is the provider's answer to a fulfillment call.
type PurchaseResult struct {
	Success           bool
	ProviderReference string
	Message           string
	RawResponse       map[string]interface{}
}

// Gateway is the external VTU provider interface. Implementations must
// respect ctx deadlines and return ProviderUnavailable for network or
// timeout failures and ProviderRejected for business declines.
type Gateway interface {
	PurchaseAirtime(ctx context.Context, network, phone string, amount decimal.Decimal) (*PurchaseResult, error)
	PurchaseData(ctx context.Context, network, phone, planCode string) (*PurchaseResult, error)
}
