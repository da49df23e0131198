package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mishafoods/storefront-backend/api/controllers"
	"github.com/mishafoods/storefront-backend/api/middleware"
	cartsvc "github.com/mishafoods/storefront-backend/internal/cart"
	"github.com/mishafoods/storefront-backend/internal/catalog"
	"github.com/mishafoods/storefront-backend/internal/checkout"
	"github.com/mishafoods/storefront-backend/pkg/config"
	"github.com/mishafoods/storefront-backend/pkg/kv"
	"github.com/mishafoods/storefront-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store kv.Store,
	registry *cartsvc.Registry,
	cat *catalog.Catalog,
	builder *checkout.Builder,
	prom *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	provider := controllers.EngineProvider(
		func(ctx context.Context, session string) (controllers.CartEngine, error) {
			return registry.Engine(ctx, session)
		},
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if prom != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(prom, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(provider, logg))
			r.Delete("/", controllers.CartClear(provider, logg))
			r.Post("/items", controllers.CartAddItem(provider, logg))
			r.Put("/items/{productId}", controllers.CartUpdateItem(provider, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(provider, logg))
			r.Get("/summary", controllers.CartSummary(provider, logg))
			r.Get("/stats", controllers.CartStats(provider, logg))
			r.Get("/export", controllers.CartExport(provider, logg))
			r.Post("/import", controllers.CartImport(provider, logg))
			r.Post("/checkout", controllers.CartCheckout(provider, builder, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(cat, logg))
			r.Get("/{productId}", controllers.ProductsGet(cat, logg))
		})
	})

	return r
}
