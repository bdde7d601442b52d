package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domainGateway "github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/odhiambodaniel/pesaflow/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(catalog *testutil.MockCatalog, registry *gateway.Registry) *gateway.Selector {
	probe := gateway.NewHealthProbe(gateway.NewMemoryProbeCache(time.Minute), time.Second, zerolog.Nop())
	return gateway.NewSelector(catalog, registry, probe, zerolog.Nop())
}

func TestSelect_HealthyBeforeUnhealthy(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa,
		services.NewMockService("mpesa", services.WithHealthError(errors.New("gateway degraded"))))
	registry.Register(domainGateway.TypeMTNMomo, services.NewMockService("mtn_momo"))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "KES"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// mtn_momo has worse priority but is healthy, so it ranks first.
	assert.Equal(t, domainGateway.TypeMTNMomo, ranked[0].Descriptor.Type)
	assert.True(t, ranked[0].Healthy)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[1].Descriptor.Type)
	assert.False(t, ranked[1].Healthy)
}

func TestSelect_PriorityWithinHealthTier(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeAirtelMoney, 3, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))
	registry.Register(domainGateway.TypeMTNMomo, services.NewMockService("mtn_momo"))
	registry.Register(domainGateway.TypeAirtelMoney, services.NewMockService("airtel_money"))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, domainGateway.TypeMpesa, ranked[0].Descriptor.Type)
	assert.Equal(t, domainGateway.TypeMTNMomo, ranked[1].Descriptor.Type)
	assert.Equal(t, domainGateway.TypeAirtelMoney, ranked[2].Descriptor.Type)
}

func TestSelect_EqualPriorityKeepsCatalogOrder(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeAirtelMoney, 2, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 2, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeAirtelMoney, services.NewMockService("airtel_money"))
	registry.Register(domainGateway.TypeMTNMomo, services.NewMockService("mtn_momo"))
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "KES"})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// Same priority, same health tier: the catalog's order is the tie-break.
	assert.Equal(t, domainGateway.TypeAirtelMoney, ranked[0].Descriptor.Type)
	assert.Equal(t, domainGateway.TypeMTNMomo, ranked[1].Descriptor.Type)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[2].Descriptor.Type)
}

func TestSelect_MobileMoneyCriteriaRanksDegradedPreferredLast(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeBankTransfer, 3, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa,
		services.NewMockService("mpesa", services.WithHealthError(errors.New("degraded"))))
	registry.Register(domainGateway.TypeMTNMomo, services.NewMockService("mtn_momo"))
	registry.Register(domainGateway.TypeBankTransfer, services.NewMockService("bank_transfer"))

	selector := newTestSelector(catalog, registry)
	criteria := domainGateway.SelectionCriteria{
		AmountCents: 5000,
		Currency:    "KES",
		MethodClass: domainGateway.MethodMobileMoney,
	}

	ranked, err := selector.Select(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// bank_transfer drops on method class; the healthy momo gateway outranks
	// the preferred but degraded one.
	assert.Equal(t, domainGateway.TypeMTNMomo, ranked[0].Descriptor.Type)
	assert.True(t, ranked[0].Healthy)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[1].Descriptor.Type)
	assert.False(t, ranked[1].Healthy)

	best, err := selector.Best(context.Background(), criteria)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, domainGateway.TypeMTNMomo, best.Descriptor.Type)
}

func TestSelect_UnregisteredTypeSkipped(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeCard, 2, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[0].Descriptor.Type)
}

func TestSelect_FiltersByCriteria(t *testing.T) {
	mpesa := testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES")
	mpesa.MaxAmountCents = 15000000
	bank := testutil.NewTestDescriptor(domainGateway.TypeBankTransfer, 2, "KES")

	catalog := testutil.NewMockCatalog(mpesa, bank)
	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))
	registry.Register(domainGateway.TypeBankTransfer, services.NewMockService("bank_transfer"))

	selector := newTestSelector(catalog, registry)

	// Amount above mpesa's cap leaves only bank_transfer.
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{AmountCents: 20000000, Currency: "KES"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, domainGateway.TypeBankTransfer, ranked[0].Descriptor.Type)
}

func TestSelect_CountryAnsweredByServiceCapability(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa,
		services.NewMockService("mpesa", services.WithCountries("KE")))
	registry.Register(domainGateway.TypeMTNMomo,
		services.NewMockService("mtn_momo", services.WithCountries("UG", "GH")))

	selector := newTestSelector(catalog, registry)

	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "KES", Country: "KE"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[0].Descriptor.Type)

	// No country constraint keeps both.
	ranked, err = selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "KES"})
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestSelect_DescriptorWithoutHealthCheckIsNotProbed(t *testing.T) {
	unprobed := testutil.NewTestDescriptor(domainGateway.TypeBankTransfer, 2, "KES")
	unprobed.SupportsHealthCheck = false
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		unprobed,
	)

	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa,
		services.NewMockService("mpesa", services.WithHealthError(errors.New("degraded"))))
	// The service would report unhealthy if asked, but the catalog says the
	// gateway has no health check, so it counts as healthy unprobed.
	registry.Register(domainGateway.TypeBankTransfer,
		services.NewMockService("bank_transfer", services.WithHealthError(errors.New("should never be probed"))))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "KES"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, domainGateway.TypeBankTransfer, ranked[0].Descriptor.Type)
	assert.True(t, ranked[0].Healthy)
	assert.Equal(t, domainGateway.TypeMpesa, ranked[1].Descriptor.Type)
	assert.False(t, ranked[1].Healthy)
}

func TestSelect_EmptyResultIsNotAnError(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
	)
	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	selector := newTestSelector(catalog, registry)
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{Currency: "EUR"})
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestSelect_CatalogError(t *testing.T) {
	catalog := testutil.NewMockCatalog()
	catalog.ListEnabledFunc = func(ctx context.Context) ([]*domainGateway.Descriptor, error) {
		return nil, errors.New("connection refused")
	}

	selector := newTestSelector(catalog, gateway.NewRegistry())
	_, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{})
	assert.Error(t, err)
}

func TestBest_ReturnsTopRanked(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
		testutil.NewTestDescriptor(domainGateway.TypeMTNMomo, 2, "KES"),
	)
	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa,
		services.NewMockService("mpesa", services.WithHealthError(errors.New("down"))))
	registry.Register(domainGateway.TypeMTNMomo, services.NewMockService("mtn_momo"))

	selector := newTestSelector(catalog, registry)
	best, err := selector.Best(context.Background(), domainGateway.SelectionCriteria{Currency: "KES"})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, domainGateway.TypeMTNMomo, best.Descriptor.Type)
}

func TestBest_NoMatchReturnsNil(t *testing.T) {
	selector := newTestSelector(testutil.NewMockCatalog(), gateway.NewRegistry())

	best, err := selector.Best(context.Background(), domainGateway.SelectionCriteria{})
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestReportFault_RecordsThroughCatalog(t *testing.T) {
	catalog := testutil.NewMockCatalog(
		testutil.NewTestDescriptor(domainGateway.TypeMpesa, 1, "KES"),
	)
	registry := gateway.NewRegistry()
	registry.Register(domainGateway.TypeMpesa, services.NewMockService("mpesa"))

	selector := newTestSelector(catalog, registry)
	at := time.Now().UTC()
	require.NoError(t, selector.ReportFault(context.Background(), domainGateway.TypeMpesa, "timeout on STK push", at))

	faults := catalog.Faults()
	require.Len(t, faults, 1)
	assert.Equal(t, domainGateway.TypeMpesa, faults[0].GatewayType)
	assert.Equal(t, "timeout on STK push", faults[0].Message)

	// Recording a fault does not exclude the gateway from selection.
	ranked, err := selector.Select(context.Background(), domainGateway.SelectionCriteria{})
	require.NoError(t, err)
	assert.Len(t, ranked, 1)
}
