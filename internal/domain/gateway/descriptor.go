package gateway

import (
	"time"
)

// Type is the closed enumeration of gateway backends the platform can route to.
type Type string

const (
	TypeMpesa        Type = "mpesa"
	TypeMTNMomo      Type = "mtn_momo"
	TypeAirtelMoney  Type = "airtel_money"
	TypeBankTransfer Type = "bank_transfer"
	TypeCard         Type = "card"
)

// MethodClass groups gateway types by the customer-facing payment method.
type MethodClass string

const (
	MethodCard         MethodClass = "card"
	MethodMobileMoney  MethodClass = "mobile_money"
	MethodBankTransfer MethodClass = "bank_transfer"
)

// MobileMoneyTypes is the fixed allow-set of gateway types that serve the
// mobile_money method class.
var MobileMoneyTypes = map[Type]bool{
	TypeMpesa:       true,
	TypeMTNMomo:     true,
	TypeAirtelMoney: true,
}

// Descriptor is a catalog record describing a payment gateway's capabilities
// and routing constraints. Descriptors are loaded from the catalog at the start
// of a selection cycle and treated as immutable for its duration.
type Descriptor struct {
	Type                Type
	Code                string
	Enabled             bool
	Priority            int // lower = preferred
	SupportedCurrencies []string
	MinAmountCents      int64 // 0 = unbounded below
	MaxAmountCents      int64 // 0 = unbounded above
	SupportsHealthCheck bool
	DefaultCurrency     string
	CreatedAt           time.Time
}

// SupportsCurrency reports whether the descriptor accepts the given currency.
// A descriptor with no explicit currency set falls back to its single default
// currency.
func (d *Descriptor) SupportsCurrency(currency string) bool {
	if len(d.SupportedCurrencies) == 0 {
		return currency == d.DefaultCurrency
	}
	for _, c := range d.SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// AllowsAmount reports whether the amount lies within the descriptor's
// configured bounds. An unset bound leaves that side unbounded.
func (d *Descriptor) AllowsAmount(amountCents int64) bool {
	if d.MinAmountCents > 0 && amountCents < d.MinAmountCents {
		return false
	}
	if d.MaxAmountCents > 0 && amountCents > d.MaxAmountCents {
		return false
	}
	return true
}

// Fault records an operational gateway failure for visibility. Recording a
// fault never excludes the gateway from future selection.
type Fault struct {
	GatewayType Type
	Message     string
	OccurredAt  time.Time
}
