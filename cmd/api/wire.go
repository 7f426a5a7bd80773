package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crumbhouse/bakery-backend/api/routes"
	"github.com/crumbhouse/bakery-backend/internal/address"
	"github.com/crumbhouse/bakery-backend/internal/auth"
	"github.com/crumbhouse/bakery-backend/internal/checkout"
	"github.com/crumbhouse/bakery-backend/internal/coupons"
	"github.com/crumbhouse/bakery-backend/internal/homepage"
	"github.com/crumbhouse/bakery-backend/internal/orders"
	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/internal/users"
	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/maps"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
	"github.com/crumbhouse/bakery-backend/pkg/redis"
)

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Dependencies, error) {
	conn := dbClient.DB()
	shop := metrics.NewShopMetrics(reg)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	engine, err := pricing.EngineFromConfig(cfg.Pricing)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("pricing engine: %w", err)
	}

	catalog := products.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
		Now:            time.Now,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}

	productSvc, err := products.NewService(catalog)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("product service: %w", err)
	}

	homepageSvc, err := homepage.NewService(homepage.NewRepository(conn), catalog)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("homepage service: %w", err)
	}

	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: couponRepo, Metrics: shop, Now: time.Now})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("coupon service: %w", err)
	}

	addressParams := address.ServiceParams{
		Repo:   addressRepo,
		Zoner:  engine,
		Maps:   cfg.GoogleMaps,
		Logger: logg,
	}
	if cfg.GoogleMaps.APIKey != "" {
		geocoder, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("maps client: %w", err)
		}
		addressParams.Geocoder = geocoder
	}
	addressSvc, err := address.NewService(addressParams)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("address service: %w", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:           dbClient,
		Engine:       engine,
		Products:     catalog,
		Addresses:    addressRepo,
		Coupons:      couponRepo,
		Orders:       orderRepo,
		OrderNumbers: redisClient,
		Outbox:       emitter,
		Metrics:      shop,
		Logger:       logg,
		Currency:     cfg.Pricing.Currency,
		Now:          time.Now,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout service: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Metrics: shop,
		Logger:  logg,
		Now:     time.Now,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("order service: %w", err)
	}

	return routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		RateLimits:  redisClient,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Auth:        authSvc,
		Products:    productSvc,
		Homepage:    homepageSvc,
		Coupons:     couponSvc,
		Addresses:   addressSvc,
		Checkout:    checkoutSvc,
		Orders:      orderSvc,
	}, nil
}
