// Package app contains the application setup for the product catalog.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/fscatalog/internal/config"
	"github.com/abgdnv/fscatalog/internal/service"
	"github.com/abgdnv/fscatalog/internal/store"
	grpcImpl "github.com/abgdnv/fscatalog/internal/transport/grpc"
	"github.com/abgdnv/fscatalog/internal/transport/rest"
	pkgconfig "github.com/abgdnv/fscatalog/pkg/config"
	"github.com/abgdnv/fscatalog/pkg/messaging"
	"github.com/abgdnv/fscatalog/pkg/metrics"
	"github.com/abgdnv/fscatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

type Dependencies struct {
	ProductService service.ProductService
	Health         *grpcImpl.HealthServer
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

// NewStore opens the product store selected by cfg.
func NewStore(cfg pkgconfig.StoreConfig, logger *slog.Logger) (*store.FileStore, error) {
	var backend store.Backend
	switch cfg.Backend {
	case pkgconfig.StoreBackendMemory:
		backend = store.NewInMemoryBackend()
	default:
		fileBackend, err := store.NewFileBackend(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		backend = fileBackend
	}
	return store.NewFileStore(backend, store.Options{
		ReadPolicy:  store.ReadPolicy(cfg.ReadPolicy),
		Placeholder: cfg.Placeholder,
	}, logger), nil
}

// SetupDependencies wires the store, service and health server.
// A nil publisher disables change events.
func SetupDependencies(productStore store.ProductStore, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) *Dependencies {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var storeMetrics *metrics.StoreMetrics
	if cfg.Metrics.Enabled {
		storeMetrics = metrics.NewStoreMetrics(registry)
	}

	pService := service.NewService(productStore, service.Options{
		Publisher:     publisher,
		Metrics:       storeMetrics,
		SubjectPrefix: cfg.NATS.Subject,
	}, logger)

	return &Dependencies{
		ProductService: pService,
		Health:         grpcImpl.NewHealthServer(pService, logger),
		Registry:       registry,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the routes and middleware of the catalog.
// Used by tests to exercise the HTTP surface without a listener.
func SetupHttpHandler(deps *Dependencies, metricsCfg pkgconfig.MetricsConfig) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, metricsCfg)
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog.
func wireRoutes(mux *chi.Mux, deps *Dependencies, metricsCfg pkgconfig.MetricsConfig) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)

	if metricsCfg.Enabled {
		mux.Handle(metricsCfg.Path, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, serviceName string) *http.Server {
	mux := SetupHttpHandler(deps, cfg.Metrics)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, serviceName, mux)
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(reflectionEnabled, deps.Health.Register)
}
