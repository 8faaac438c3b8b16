package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jerrybuks/agentic-ecommerce/api/controllers"
	"github.com/jerrybuks/agentic-ecommerce/api/middleware"
	"github.com/jerrybuks/agentic-ecommerce/internal/agent"
	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/orders"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

// Pinger answers readiness probes for an external dependency.
type Pinger = controllers.Pinger

// Deps bundles everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       Pinger
	Redis    Pinger
	Limiter  middleware.Limiter
	Gatherer prometheus.Gatherer

	Agent    agent.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Orders   orders.Service
	Vouchers voucher.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))

		r.Route("/admin/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(deps.Catalog, logg))
			r.Get("/sku/{sku}", controllers.AdminProductBySKU(deps.Catalog, logg))
			r.Put("/{id}", controllers.AdminProductUpdate(deps.Catalog, logg))
			r.Patch("/{id}", controllers.AdminProductUpdate(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.UserContext(logg))

			r.With(middleware.RateLimit(cfg.RateLimit, deps.Limiter, logg)).
				Post("/agent/query", controllers.AgentQuery(deps.Agent, logg))

			r.Get("/cart", controllers.CartFetch(deps.Cart, logg))
			r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
			r.Post("/vouchers/generate", controllers.VoucherGenerate(deps.Vouchers, logg))
		})
	})

	return r
}
