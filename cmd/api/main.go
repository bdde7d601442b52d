package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/odhiambodaniel/pesaflow/internal/bootstrap"
	"github.com/odhiambodaniel/pesaflow/internal/controller"
	"github.com/odhiambodaniel/pesaflow/internal/fees"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	domainWebhook "github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	infraRedis "github.com/odhiambodaniel/pesaflow/internal/infrastructure/redis"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/repository/postgres"
	"github.com/odhiambodaniel/pesaflow/internal/webhook"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "pesaflow-api", "pesaflow")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	catalogRepo := postgres.NewCatalogRepository(app.Pool)
	endpointRepo := postgres.NewEndpointRepository(app.Pool)
	deliveryRepo := postgres.NewDeliveryRepository(app.Pool)
	auditRepo := postgres.NewAuditRepository(app.Pool)

	// --- Gateway selection ---
	registry := gateway.NewDefaultRegistry()
	probeCache := infraRedis.NewProbeCache(app.Redis, app.Config.Gateway.ProbeCacheTTL)
	probe := gateway.NewHealthProbe(probeCache, app.Config.Gateway.ProbeTimeout, app.Logger)
	selector := gateway.NewSelector(catalogRepo, registry, probe, app.Logger)

	// --- Webhook dispatch ---
	producer := infraRedis.NewDeliveryProducer(app.Redis)
	policy := domainWebhook.ExponentialBackoff(
		app.Config.Webhook.MaxAttempts,
		app.Config.Webhook.InitialBackoff,
		app.Config.Webhook.BackoffMultiplier,
		app.Config.Webhook.MaxBackoff,
	)
	client := webhook.NewHTTPClient(app.Config.Webhook.ConnectTimeout)
	txManager := postgres.NewTxManager(app.Pool)
	dispatcher := webhook.NewDispatcher(deliveryRepo, endpointRepo, producer, client, policy, app.Config.Webhook.SendTimeout, txManager, app.Logger)

	// --- Fees and authorization ---
	calculator := fees.NewCalculator(defaultFeeSchedule())
	checker := rbac.NewDefaultChecker(auditRepo, app.Logger)

	router := controller.NewRouter(controller.RouterDeps{
		Pool:          app.Pool,
		RedisClient:   app.Redis,
		Selector:      selector,
		Registry:      registry,
		Dispatcher:    dispatcher,
		Deliveries:    deliveryRepo,
		Endpoints:     endpointRepo,
		FeeCalculator: calculator,
		Checker:       checker,
		Assignments:   auditRepo,
		Metrics:       app.Metrics,
		CORSConfig:    app.Config.Server.CORS,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

// defaultFeeSchedule covers the launch corridors. Rates move to a catalog
// table once pricing stabilizes.
func defaultFeeSchedule() *fees.StaticSchedule {
	return fees.NewStaticSchedule().
		Add("KE", services.MethodMobileMoney, fees.Rate{PercentBps: 150, FixedCents: 0, Currency: "KES"}).
		Add("KE", services.MethodBankTransfer, fees.Rate{PercentBps: 50, FixedCents: 5000, Currency: "KES"}).
		Add("KE", services.MethodCard, fees.Rate{PercentBps: 290, FixedCents: 3000, Currency: "KES"}).
		Add("UG", services.MethodMobileMoney, fees.Rate{PercentBps: 180, FixedCents: 0, Currency: "UGX"}).
		Add("GH", services.MethodMobileMoney, fees.Rate{PercentBps: 190, FixedCents: 0, Currency: "GHS"}).
		Add("NG", services.MethodBankTransfer, fees.Rate{PercentBps: 60, FixedCents: 5000, Currency: "NGN"}).
		Add("NG", services.MethodCard, fees.Rate{PercentBps: 280, FixedCents: 10000, Currency: "NGN"})
}
