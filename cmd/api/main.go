package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/jerrybuks/agentic-ecommerce/api"
	"github.com/jerrybuks/agentic-ecommerce/api/routes"
	"github.com/jerrybuks/agentic-ecommerce/internal/agent"
	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/checkout"
	"github.com/jerrybuks/agentic-ecommerce/internal/orders"
	"github.com/jerrybuks/agentic-ecommerce/internal/session"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/migrate"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
	"github.com/jerrybuks/agentic-ecommerce/pkg/redis"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := vectorstore.Open(cfg.VectorStore.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to open vector store", err)
		os.Exit(1)
	}

	voucherAmount, err := decimal.NewFromString(cfg.Voucher.Amount)
	if err != nil {
		logg.Error(context.Background(), "invalid voucher amount", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, catalogSvc, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	voucherRepo := voucher.NewRepository(conn)
	voucherSvc, err := voucher.NewService(voucherRepo, voucherAmount)
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher service", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	checkoutSvc, err := checkout.NewService(checkout.Deps{
		AddressRepo: checkout.NewRepository(conn),
		CartRepo:    cartRepo,
		CartSvc:     cartSvc,
		CatalogRepo: catalogRepo,
		VoucherRepo: voucherRepo,
		VoucherSvc:  voucherSvc,
		DBClient:    dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	sessions, err := session.NewStore(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	llm := openai.New(cfg.OpenAI)
	classifier, err := agent.NewClassifier(llm)
	if err != nil {
		logg.Error(context.Background(), "failed to create classifier", err)
		os.Exit(1)
	}
	agentSvc, err := agent.NewService(agent.Deps{
		Classifier:  classifier,
		LLM:         llm,
		Embedder:    llm,
		VectorStore: store,
		Sessions:    sessions,
		Catalog:     catalogSvc,
		Cart:        cartSvc,
		Orders:      ordersSvc,
		Vouchers:    voucherSvc,
		Checkout:    checkoutSvc,
		Retrieval:   cfg.Retrieval,
		Collections: cfg.VectorStore,
		Logger:      logg,
		Metrics:     metrics.NewAgentMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create agent service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Limiter:  redisClient,
		Agent:    agentSvc,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Orders:   ordersSvc,
		Vouchers: voucherSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := api.NewServer(addr, handler, logg)
	if err := server.Run(ctx); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
