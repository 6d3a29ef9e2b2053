// Command server runs the New York sales-tax order import service: the
// HTTP/WS gateway, the resumable CSV import executor, and the in-memory
// reporting-code resolver and tax rate catalog that back them.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/qhato/taxorders/config"
	"github.com/qhato/taxorders/internal/bootstrap"
	"github.com/qhato/taxorders/internal/geozone"
	"github.com/qhato/taxorders/internal/importtask"
	importtaskhttp "github.com/qhato/taxorders/internal/importtask/ports/http"
	importtaskpersistence "github.com/qhato/taxorders/internal/importtask/infrastructure/persistence"
	"github.com/qhato/taxorders/internal/objectstore"
	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	orderhttp "github.com/qhato/taxorders/internal/order/ports/http"
	orderpersistence "github.com/qhato/taxorders/internal/order/infrastructure/persistence"
	"github.com/qhato/taxorders/internal/taxrate"
	"github.com/qhato/taxorders/migrations"
	"github.com/qhato/taxorders/pkg/auth"
	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/logger"
	"github.com/qhato/taxorders/pkg/metrics"
	"github.com/qhato/taxorders/pkg/middleware"
	"github.com/qhato/taxorders/pkg/tracing"
	"github.com/qhato/taxorders/pkg/validator"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	if err := logger.Initialize(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracerProvider, err := tracing.Init(tracing.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		ExporterType:   cfg.Tracing.ExporterType,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	db, err := database.New(ctx, database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections, MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime, MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		logger.WithError(err).Fatal("failed to apply migrations")
	}

	if err := bootstrap.Run(ctx, db, bootstrap.Config{
		TaxRatesPath:   os.Getenv("TAX_RATES_SEED_PATH"),
		TaxRegionsPath: os.Getenv("TAX_REGIONS_SEED_PATH"),
	}); err != nil {
		logger.WithError(err).Fatal("bootstrap seeding failed")
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
	} else {
		logger.Warn("redis.host not configured; tax rate catalog falls back to an in-process cache")
	}

	resolver, err := geozone.NewRegionRepository(db).LoadResolver(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to load reporting code resolver")
	}

	rawRates, err := taxrate.LoadRawPayloads(ctx, db)
	if err != nil {
		logger.WithError(err).Fatal("failed to load tax rate catalog")
	}
	catalog, err := taxrate.NewCatalog(rawRates)
	if err != nil {
		logger.WithError(err).Fatal("failed to build tax rate catalog")
	}
	cachedCatalog := taxrate.NewCachedCatalog(catalog, taxrate.NewCache(redisClient))
	if err := cachedCatalog.WarmFromCache(ctx); err != nil {
		logger.WithError(err).Warn("tax rate cache warm failed")
	}

	calc := orderdomain.NewCalculator(resolver, cachedCatalog)

	store := objectstore.New(objectstore.Config{
		Endpoint: cfg.Storage.Endpoint, Region: cfg.Storage.Region, Bucket: cfg.Storage.Bucket,
		AccessKeyID: cfg.Storage.AccessKeyID, SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL: cfg.Storage.UseSSL, BaseURL: cfg.Storage.BaseURL,
	})
	if err := store.EnsureBucket(ctx); err != nil {
		logger.WithError(err).Fatal("failed to ensure object store bucket")
	}

	orderRepo := orderpersistence.NewPostgresOrderRepository(db)
	taskRepo := importtaskpersistence.NewPostgresTaskRepository(db)

	executor := importtask.NewExecutor(taskRepo, orderRepo, store, calc, cachedCatalog)
	if err := executor.ResumeOnStartup(ctx); err != nil {
		logger.WithError(err).Error("failed to resume in-progress import tasks")
	}

	metrics.Init(cfg.App.Name)
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)

	v := validator.New()
	orderHandler := orderhttp.NewHandler(calc, orderRepo, v)
	importHandler := importtaskhttp.NewHandler(executor, taskRepo, calc, jwtService)

	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics)
	router.Use(middleware.Tracing(cfg.App.Name))
	router.Use(middleware.Security())
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		orderHandler.Routes(r)
		importHandler.Routes(r)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
