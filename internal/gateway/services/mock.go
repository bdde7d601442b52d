package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/google/uuid"
)

// MockService is a configurable in-process gateway backend used for local
// development and tests.
type MockService struct {
	name        string
	countries   map[string]bool
	currencies  map[string]bool
	methods     []PaymentMethod
	latency     time.Duration
	failureRate float64 // 0.0 to 1.0
	healthErr   error
	healthDelay time.Duration
	noHealth    bool
}

type MockOption func(*MockService)

func WithCountries(countries ...string) MockOption {
	return func(s *MockService) {
		for _, c := range countries {
			s.countries[c] = true
		}
	}
}

func WithCurrencies(currencies ...string) MockOption {
	return func(s *MockService) {
		for _, c := range currencies {
			s.currencies[c] = true
		}
	}
}

func WithMethods(methods ...PaymentMethod) MockOption {
	return func(s *MockService) { s.methods = methods }
}

func WithLatency(d time.Duration) MockOption {
	return func(s *MockService) { s.latency = d }
}

func WithFailureRate(rate float64) MockOption {
	return func(s *MockService) { s.failureRate = rate }
}

// WithHealthError makes HealthCheck return the given error.
func WithHealthError(err error) MockOption {
	return func(s *MockService) { s.healthErr = err }
}

// WithHealthDelay delays HealthCheck, for probe timeout tests.
func WithHealthDelay(d time.Duration) MockOption {
	return func(s *MockService) { s.healthDelay = d }
}

// WithoutHealthCheck builds a service lacking the health capability entirely.
// Returned as PaymentService so type assertions against HealthChecker fail.
func WithoutHealthCheck() MockOption {
	return func(s *MockService) { s.noHealth = true }
}

func NewMockService(name string, opts ...MockOption) PaymentService {
	s := &MockService{
		name:       name,
		countries:  make(map[string]bool),
		currencies: make(map[string]bool),
		methods:    []PaymentMethod{MethodMobileMoney},
	}
	for _, o := range opts {
		o(s)
	}
	if s.noHealth {
		return &noHealthService{inner: s}
	}
	return s
}

func (s *MockService) Name() string { return s.name }

func (s *MockService) SupportsCountryAndCurrency(country, currency string) bool {
	if len(s.countries) > 0 && !s.countries[country] {
		return false
	}
	if len(s.currencies) > 0 && !s.currencies[currency] {
		return false
	}
	return true
}

func (s *MockService) SupportedPaymentMethods() []PaymentMethod {
	return s.methods
}

func (s *MockService) ProcessPayment(ctx context.Context, charge Charge, paymentData map[string]any) (*Result, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < s.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated processing failure for charge %s", s.name, charge.ID),
		}, domainErrors.NewDomainError("gateway_rejected", "payment rejected by gateway", nil)
	}
	return &Result{
		TransactionID: fmt.Sprintf("%s_txn_%s", s.name, uuid.New().String()[:8]),
		Status:        "success",
	}, nil
}

func (s *MockService) CheckPaymentStatus(ctx context.Context, charge Charge) (*Result, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}
	return &Result{
		TransactionID: fmt.Sprintf("%s_txn_%s", s.name, charge.ID.String()[:8]),
		Status:        "success",
	}, nil
}

func (s *MockService) ProcessRefund(ctx context.Context, charge Charge, amountCents int64, metadata map[string]any) (*Result, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < s.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated refund failure", s.name),
		}, domainErrors.NewDomainError("gateway_rejected", "refund rejected by gateway", nil)
	}
	return &Result{
		TransactionID: fmt.Sprintf("%s_refund_%s", s.name, uuid.New().String()[:8]),
		Status:        "success",
	}, nil
}

func (s *MockService) ValidatePaymentMethod(details map[string]any) bool {
	return len(details) > 0
}

func (s *MockService) HealthCheck(ctx context.Context) error {
	if s.healthDelay > 0 {
		select {
		case <-time.After(s.healthDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.healthErr
}

func (s *MockService) simulateLatency(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noHealthService wraps a mock without exposing the HealthCheck capability,
// so type assertions against HealthChecker fail.
type noHealthService struct {
	inner *MockService
}

func (s *noHealthService) Name() string { return s.inner.Name() }

func (s *noHealthService) SupportsCountryAndCurrency(country, currency string) bool {
	return s.inner.SupportsCountryAndCurrency(country, currency)
}

func (s *noHealthService) SupportedPaymentMethods() []PaymentMethod {
	return s.inner.SupportedPaymentMethods()
}

func (s *noHealthService) ProcessPayment(ctx context.Context, charge Charge, paymentData map[string]any) (*Result, error) {
	return s.inner.ProcessPayment(ctx, charge, paymentData)
}

func (s *noHealthService) CheckPaymentStatus(ctx context.Context, charge Charge) (*Result, error) {
	return s.inner.CheckPaymentStatus(ctx, charge)
}

func (s *noHealthService) ProcessRefund(ctx context.Context, charge Charge, amountCents int64, metadata map[string]any) (*Result, error) {
	return s.inner.ProcessRefund(ctx, charge, amountCents, metadata)
}

func (s *noHealthService) ValidatePaymentMethod(details map[string]any) bool {
	return s.inner.ValidatePaymentMethod(details)
}
