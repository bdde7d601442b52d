package services

import (
	"context"

	"github.com/google/uuid"
)

// PaymentMethod is a customer-facing payment method class.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// Charge carries the payment being processed through a gateway.
type Charge struct {
	ID          uuid.UUID
	Reference   string
	AmountCents int64 // in cents / minor units
	Currency    string
	Country     string
	Metadata    map[string]any
}

// Result is the gateway's answer to a process/status/refund call.
type Result struct {
	TransactionID string
	Status        string // "success", "failed", "pending"
	ErrorMessage  string
}

// PaymentService is the capability contract every registered gateway backend
// implements. Health checking is a separate optional capability; see
// HealthChecker.
type PaymentService interface {
	// Name returns the gateway's display name.
	Name() string
	// SupportsCountryAndCurrency reports whether the gateway serves the pair.
	SupportsCountryAndCurrency(country, currency string) bool
	// SupportedPaymentMethods returns the method classes the gateway accepts.
	SupportedPaymentMethods() []PaymentMethod
	// ProcessPayment processes a charge through the gateway.
	ProcessPayment(ctx context.Context, charge Charge, paymentData map[string]any) (*Result, error)
	// CheckPaymentStatus queries the gateway for the charge's current state.
	CheckPaymentStatus(ctx context.Context, charge Charge) (*Result, error)
	// ProcessRefund refunds (part of) a charge.
	ProcessRefund(ctx context.Context, charge Charge, amountCents int64, metadata map[string]any) (*Result, error)
	// ValidatePaymentMethod checks method details without side effects.
	ValidatePaymentMethod(details map[string]any) bool
}

// HealthChecker is the optional liveness capability. Services that do not
// implement it are treated as healthy by the probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
