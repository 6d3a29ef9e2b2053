// Command importcli drives the CSV import executor outside the HTTP server:
// submit a file from the local filesystem, resume any tasks left in
// progress from a previous run, or list known tasks and their status.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/qhato/taxorders/config"
	"github.com/qhato/taxorders/internal/bootstrap"
	"github.com/qhato/taxorders/internal/geozone"
	"github.com/qhato/taxorders/internal/importtask"
	importtaskdomain "github.com/qhato/taxorders/internal/importtask/domain"
	importtaskpersistence "github.com/qhato/taxorders/internal/importtask/infrastructure/persistence"
	"github.com/qhato/taxorders/internal/objectstore"
	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	orderpersistence "github.com/qhato/taxorders/internal/order/infrastructure/persistence"
	"github.com/qhato/taxorders/internal/taxrate"
	"github.com/qhato/taxorders/migrations"
	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: importcli [-config path] <submit FILE|resume|list>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Initialize(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	executor, taskRepo, db := mustWireExecutor(ctx, cfg)
	defer db.Close()

	switch args[0] {
	case "submit":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: importcli submit FILE")
			os.Exit(2)
		}
		submit(ctx, executor, args[1])
	case "resume":
		if err := executor.ResumeOnStartup(ctx); err != nil {
			logger.WithError(err).Fatal("resume failed")
		}
		fmt.Println("resume scheduled; tasks continue running in the background")
	case "list":
		list(ctx, taskRepo)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		os.Exit(2)
	}
}

func submit(ctx context.Context, executor *importtask.Executor, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to read input file")
	}

	objectName := time.Now().UTC().Format("2006/01/02") + "/" + uuid.NewString() + "-" + fileBaseName(filePath)
	task, err := executor.Submit(ctx, content, objectName, nil)
	if err != nil {
		logger.WithError(err).Fatal("submit failed")
	}
	fmt.Printf("submitted task %s (%d rows)\n", task.ID, task.TotalRows)
}

func list(ctx context.Context, taskRepo importtaskdomain.Repository) {
	tasks, err := taskRepo.ListAll(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to list tasks")
	}
	for _, t := range tasks {
		fmt.Printf("%s  %-12s  %d/%d rows  (%d failed)  %s\n",
			t.ID, t.Status, t.ProcessedRows(), t.TotalRows, t.FailedRows, t.FilePath)
	}
}

func fileBaseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func mustWireExecutor(ctx context.Context, cfg *config.Config) (*importtask.Executor, importtaskdomain.Repository, *database.DB) {
	db, err := database.New(ctx, database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections, MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime, MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

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

	return importtask.NewExecutor(taskRepo, orderRepo, store, calc, cachedCatalog), taskRepo, db
}
