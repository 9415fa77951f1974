package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	shippingcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/shipping"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/countries"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Deps is everything the API router wires into its handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	// Limiter throttles writes per user; nil disables it.
	Limiter *middleware.WriteLimiter

	Checkout  checkoutsvc.Service
	Cart      cart.Service
	Orders    orders.Service
	Shipping  shipping.Service
	Countries countries.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": d.DB,
			"redis":    d.Redis,
		}))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(d.Limiter, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/countries", func(r chi.Router) {
			r.Get("/", controllers.Countries(d.Countries, logg))
			r.Get("/{countryId}", controllers.Country(d.Countries, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))
			r.Route("/cart/items", func(r chi.Router) {
				r.Get("/", cartcontrollers.List(d.Cart, logg))
				r.Post("/", cartcontrollers.AddItem(d.Cart, logg))
				r.Patch("/{itemId}", cartcontrollers.UpdateItem(d.Cart, logg))
				r.Delete("/{itemId}", cartcontrollers.RemoveItem(d.Cart, logg))
			})
			r.Post("/checkout/quote", controllers.CheckoutQuote(d.Checkout, logg))
			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Get("/orders", ordercontrollers.List(d.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleVendor, enums.UserRoleAdmin))
			r.Patch("/orders/{orderId}/groups/{groupId}/status", ordercontrollers.UpdateGroupStatus(d.Orders, logg))
			r.Route("/vendors/{vendorId}/shipping", func(r chi.Router) {
				r.Get("/", shippingcontrollers.Get(d.Shipping, logg))
				r.Put("/", shippingcontrollers.UpdateDefaults(d.Shipping, logg))
				r.Get("/resolve", shippingcontrollers.Resolve(d.Shipping, logg))
				r.Put("/overrides/{countryId}", shippingcontrollers.PutOverride(d.Shipping, logg))
				r.Delete("/overrides/{countryId}", shippingcontrollers.DeleteOverride(d.Shipping, logg))
			})
		})
	})

	return r
}
