package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crumbhouse/bakery-backend/api/controllers"
	"github.com/crumbhouse/bakery-backend/api/middleware"
	"github.com/crumbhouse/bakery-backend/internal/address"
	"github.com/crumbhouse/bakery-backend/internal/auth"
	"github.com/crumbhouse/bakery-backend/internal/checkout"
	"github.com/crumbhouse/bakery-backend/internal/coupons"
	"github.com/crumbhouse/bakery-backend/internal/homepage"
	"github.com/crumbhouse/bakery-backend/internal/orders"
	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/redis"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// Dependencies carries everything the HTTP surface is built from. Nil services
// answer INTERNAL_ERROR from their controllers rather than panicking.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimits  rateLimiterStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth      auth.Service
	Products  products.Service
	Homepage  homepage.Service
	Coupons   coupons.Service
	Addresses address.Service
	Checkout  checkout.Service
	Orders    orders.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authenticated := middleware.Auth(cfg.JWT, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.LoginRateLimit(cfg.RateLimit, deps.RateLimits, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{slug}", controllers.ProductBySlug(deps.Products, logg))
		r.Get("/homepage", controllers.Homepage(deps.Homepage, logg))
		r.Get("/coupons", controllers.CouponList(deps.Coupons, logg))
		r.Post("/coupons/validate", controllers.CouponValidate(deps.Coupons, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer, enums.UserRoleAdmin))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Get("/autocomplete", controllers.AddressAutocomplete(deps.Addresses, logg))
				r.Get("/{addressId}", controllers.AddressDetail(deps.Addresses, logg))
				r.Post("/{addressId}/refresh-distance", controllers.AddressRefreshDistance(deps.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(deps.Addresses, logg))
			})

			r.Post("/checkout/quote", controllers.CheckoutQuote(deps.Checkout, logg))
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Get("/orders", controllers.OrderList(deps.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		if cfg.App.IsDev() {
			r.Post("/auth/register", controllers.AdminAuthRegister(deps.Auth, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductList(deps.Products, logg))
				r.Post("/", controllers.AdminProductCreate(deps.Products, logg))
				r.Patch("/{productId}", controllers.AdminProductUpdate(deps.Products, logg))
				r.Delete("/{productId}", controllers.AdminProductDelete(deps.Products, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.AdminCouponList(deps.Coupons, logg))
				r.Post("/", controllers.AdminCouponCreate(deps.Coupons, logg))
				r.Get("/{couponId}", controllers.AdminCouponDetail(deps.Coupons, logg))
				r.Patch("/{couponId}", controllers.AdminCouponUpdate(deps.Coupons, logg))
				r.Delete("/{couponId}", controllers.AdminCouponDelete(deps.Coupons, logg))
			})

			r.Route("/homepage/sections", func(r chi.Router) {
				r.Get("/", controllers.AdminSectionList(deps.Homepage, logg))
				r.Post("/", controllers.AdminSectionCreate(deps.Homepage, logg))
				r.Put("/order", controllers.AdminSectionReorder(deps.Homepage, logg))
				r.Patch("/{sectionId}", controllers.AdminSectionUpdate(deps.Homepage, logg))
				r.Delete("/{sectionId}", controllers.AdminSectionDelete(deps.Homepage, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/events", controllers.AdminOrderEvent(deps.Orders, logg))
				r.Patch("/{orderId}/delivery", controllers.AdminOrderDelivery(deps.Orders, logg))
			})
		})
	})

	return r
}
