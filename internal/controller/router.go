package controller

import (
	"time"

	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	domainWebhook "github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/internal/fees"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/infrastructure/config"
	"github.com/odhiambodaniel/pesaflow/internal/infrastructure/observability"
	customMW "github.com/odhiambodaniel/pesaflow/internal/middleware"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/webhook"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool          *pgxpool.Pool
	RedisClient   *redis.Client
	Selector      *gateway.Selector
	Registry      *gateway.Registry
	Dispatcher    *webhook.Dispatcher
	Deliveries    domainWebhook.DeliveryRepository
	Endpoints     domainWebhook.EndpointRepository
	FeeCalculator *fees.Calculator
	Checker       *rbac.Checker
	Assignments   domainRBAC.AssignmentStore
	Metrics       *observability.Metrics
	CORSConfig    config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerActorID, headerActorRoles},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	gatewayH := NewGatewayController(deps.Selector, deps.Registry, deps.Checker, deps.Metrics)
	endpointH := NewEndpointController(deps.Endpoints, deps.Checker)
	eventH := NewEventController(deps.Dispatcher, deps.Deliveries, deps.Endpoints, deps.Checker, deps.Metrics)
	feeH := NewFeeController(deps.FeeCalculator, deps.Checker)
	roleH := NewRoleController(deps.Assignments, deps.Checker)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway selection
		r.Post("/gateways/select", gatewayH.Select)
		r.Post("/gateways/{type}/faults", gatewayH.ReportFault)

		// Webhook endpoints
		r.Post("/endpoints", endpointH.Create)
		r.Get("/endpoints/{id}", endpointH.Get)
		r.Put("/endpoints/{id}", endpointH.Update)
		r.Delete("/endpoints/{id}", endpointH.Delete)
		r.Get("/endpoints/{id}/deliveries", eventH.ListDeliveries)
		r.Get("/applications/{id}/endpoints", endpointH.List)

		// Webhook events and deliveries
		r.Post("/events", eventH.Dispatch)
		r.Get("/deliveries/{id}", eventH.GetDelivery)

		// Payout fees
		r.Post("/fees/quote", feeH.Quote)

		// Role assignments
		r.Get("/actors/{id}/roles", roleH.ListRoles)
		r.Post("/actors/{id}/roles", roleH.AssignRole)
		r.Delete("/actors/{id}/roles/{role}", roleH.RevokeRole)
	})

	return r
}
