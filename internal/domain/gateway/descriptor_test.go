package gateway_test

import (
	"testing"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/stretchr/testify/assert"
)

func TestDescriptor_SupportsCurrency(t *testing.T) {
	d := &gateway.Descriptor{SupportedCurrencies: []string{"KES", "UGX"}}

	assert.True(t, d.SupportsCurrency("KES"))
	assert.True(t, d.SupportsCurrency("UGX"))
	assert.False(t, d.SupportsCurrency("USD"))
}

func TestDescriptor_SupportsCurrency_DefaultFallback(t *testing.T) {
	d := &gateway.Descriptor{DefaultCurrency: "NGN"}

	assert.True(t, d.SupportsCurrency("NGN"))
	assert.False(t, d.SupportsCurrency("KES"))
}

func TestDescriptor_AllowsAmount(t *testing.T) {
	d := &gateway.Descriptor{MinAmountCents: 100, MaxAmountCents: 10000}

	assert.True(t, d.AllowsAmount(100))
	assert.True(t, d.AllowsAmount(10000))
	assert.True(t, d.AllowsAmount(5000))
	assert.False(t, d.AllowsAmount(99))
	assert.False(t, d.AllowsAmount(10001))
}

func TestDescriptor_AllowsAmount_UnsetBoundsAreUnbounded(t *testing.T) {
	assert.True(t, (&gateway.Descriptor{}).AllowsAmount(1))
	assert.True(t, (&gateway.Descriptor{}).AllowsAmount(1<<40))

	onlyMin := &gateway.Descriptor{MinAmountCents: 500}
	assert.True(t, onlyMin.AllowsAmount(1<<40))
	assert.False(t, onlyMin.AllowsAmount(499))

	onlyMax := &gateway.Descriptor{MaxAmountCents: 500}
	assert.True(t, onlyMax.AllowsAmount(1))
	assert.False(t, onlyMax.AllowsAmount(501))
}

func TestSelectionCriteria_AxisFlags(t *testing.T) {
	var empty gateway.SelectionCriteria
	assert.False(t, empty.HasAmount())
	assert.False(t, empty.HasCurrency())
	assert.False(t, empty.HasCountry())
	assert.False(t, empty.HasMethodClass())

	full := gateway.SelectionCriteria{
		AmountCents: 100,
		Currency:    "KES",
		Country:     "KE",
		MethodClass: gateway.MethodCard,
	}
	assert.True(t, full.HasAmount())
	assert.True(t, full.HasCurrency())
	assert.True(t, full.HasCountry())
	assert.True(t, full.HasMethodClass())
}

func TestMobileMoneyTypes(t *testing.T) {
	assert.True(t, gateway.MobileMoneyTypes[gateway.TypeMpesa])
	assert.True(t, gateway.MobileMoneyTypes[gateway.TypeMTNMomo])
	assert.True(t, gateway.MobileMoneyTypes[gateway.TypeAirtelMoney])
	assert.False(t, gateway.MobileMoneyTypes[gateway.TypeBankTransfer])
	assert.False(t, gateway.MobileMoneyTypes[gateway.TypeCard])
}
