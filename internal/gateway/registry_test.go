package gateway_test

import (
	"context"
	"testing"

	domainGateway "github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupRegistered(t *testing.T) {
	r := gateway.NewRegistry()
	r.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	svc, ok := r.Lookup(domainGateway.TypeMpesa)
	require.True(t, ok)
	assert.Equal(t, "mpesa", svc.Name())
}

func TestRegistry_LookupUnknownTypeIsNotAnError(t *testing.T) {
	r := gateway.NewRegistry()

	svc, ok := r.Lookup(domainGateway.TypeCard)
	assert.False(t, ok)
	assert.Nil(t, svc)
}

func TestRegistry_BreakerGuardsProcessing(t *testing.T) {
	r := gateway.NewRegistry()
	r.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	breaker, ok := r.Breaker(domainGateway.TypeMpesa)
	require.True(t, ok)

	svc, _ := r.Lookup(domainGateway.TypeMpesa)
	result, err := breaker.Execute(func() (*services.Result, error) {
		return svc.ProcessPayment(context.Background(), services.Charge{ID: uuid.New(), Currency: "KES"}, map[string]any{"phone": "1"})
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
}

func TestRegistry_Types(t *testing.T) {
	r := gateway.NewRegistry()
	r.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))
	r.Register(domainGateway.TypeCard, services.NewMockService("card"))

	types := r.Types()
	assert.Len(t, types, 2)
	assert.Contains(t, types, domainGateway.TypeMpesa)
	assert.Contains(t, types, domainGateway.TypeCard)
}

func TestNewDefaultRegistry_CoversStockServices(t *testing.T) {
	r := gateway.NewDefaultRegistry()

	for _, typ := range []domainGateway.Type{
		domainGateway.TypeMpesa,
		domainGateway.TypeMTNMomo,
		domainGateway.TypeAirtelMoney,
		domainGateway.TypeBankTransfer,
		domainGateway.TypeCard,
	} {
		_, ok := r.Lookup(typ)
		assert.True(t, ok, "expected default registry to cover %s", typ)
		_, ok = r.Breaker(typ)
		assert.True(t, ok, "expected a breaker for %s", typ)
	}
}
