package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumbhouse/bakery-backend/internal/address"
	"github.com/crumbhouse/bakery-backend/internal/auth"
	"github.com/crumbhouse/bakery-backend/internal/checkout"
	"github.com/crumbhouse/bakery-backend/internal/coupons"
	"github.com/crumbhouse/bakery-backend/internal/homepage"
	"github.com/crumbhouse/bakery-backend/internal/orders"
	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/internal/users"
	pkgAuth "github.com/crumbhouse/bakery-backend/pkg/auth"
	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/dbtest"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memStore struct{ data map[string]string }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key], _ = value.(string)
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type sequence struct{ next int64 }

func (s *sequence) NextOrderNumber(context.Context) (int64, error) {
	s.next++
	return 5000 + s.next, nil
}

type harness struct {
	handler   http.Handler
	cfg       *config.Config
	catalog   *products.Repository
	addresses *address.Repository
	customer  uuid.UUID
	admin     uuid.UUID
}

func newHarness(t *testing.T, readyErr error) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	cfg := &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "bakery", ExpirationMinutes: 30},
		Password: config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	schedule, err := pricing.NewSchedule([]pricing.Band{
		{Label: "near", MinMeters: 0, MaxMeters: 3000, BaseFee: decimal.NewFromInt(30)},
		{Label: "city", MinMeters: 3000, MaxMeters: 8000, BaseFee: decimal.NewFromInt(50)},
	}, decimal.Zero)
	require.NoError(t, err)
	engine, err := pricing.NewEngine(schedule, decimal.NewFromInt(5))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	shop := metrics.NewShopMetrics(reg)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	tx := db.Wrap(conn)

	catalog := products.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: users.NewRepository(conn), JWTConfig: cfg.JWT, PasswordConfig: cfg.Password})
	require.NoError(t, err)
	productSvc, err := products.NewService(catalog)
	require.NoError(t, err)
	homepageSvc, err := homepage.NewService(homepage.NewRepository(conn), catalog)
	require.NoError(t, err)
	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: couponRepo, Metrics: shop})
	require.NoError(t, err)
	addressSvc, err := address.NewService(address.ServiceParams{Repo: addressRepo, Zoner: engine})
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:           tx,
		Engine:       engine,
		Products:     catalog,
		Addresses:    addressRepo,
		Coupons:      couponRepo,
		Orders:       orderRepo,
		OrderNumbers: &sequence{},
		Outbox:       emitter,
		Metrics:      shop,
		Currency:     "INR",
	})
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{Repo: orderRepo, Tx: tx, Outbox: emitter, Metrics: shop})
	require.NoError(t, err)

	handler := NewRouter(cfg, nil, Dependencies{
		DB:          stubPinger{},
		Redis:       stubPinger{err: readyErr},
		Idempotency: &memStore{data: map[string]string{}},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Auth:        authSvc,
		Products:    productSvc,
		Homepage:    homepageSvc,
		Coupons:     couponSvc,
		Addresses:   addressSvc,
		Checkout:    checkoutSvc,
		Orders:      orderSvc,
	})

	return &harness{
		handler:   handler,
		cfg:       cfg,
		catalog:   catalog,
		addresses: addressRepo,
		customer:  uuid.New(),
		admin:     uuid.New(),
	}
}

func (h *harness) token(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func (h *harness) seedCart(t *testing.T, distance *int) (models.Product, models.Address) {
	t.Helper()
	p := models.Product{
		Name:        "Pineapple Cake",
		Slug:        "pineapple-cake",
		Category:    "cakes",
		Variants:    []models.ProductVariant{{Label: "500g", Price: decimal.NewFromInt(250)}},
		IsAvailable: true,
	}
	require.NoError(t, h.catalog.Create(context.Background(), &p))
	a := models.Address{UserID: h.customer, FullAddress: "12 MG Road", DistanceMeters: distance}
	require.NoError(t, h.addresses.Create(context.Background(), &a))
	return p, a
}

func cartBody(p models.Product, a models.Address) map[string]any {
	return map[string]any{
		"lines":      []map[string]any{{"product_id": p.ID, "variant_label": "500g", "quantity": 2}},
		"address_id": a.ID,
	}
}

func errorOf(body map[string]any) map[string]any {
	e, _ := body["error"].(map[string]any)
	return e
}

func dataOf(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Bakery-Env"))

	rec, _ = h.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	h := newHarness(t, errors.New("connection refused"))

	rec, body := h.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	details, _ := errorOf(body)["details"].(map[string]any)
	assert.Equal(t, "redis", details["dependency"])
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/health/live", "", nil)

	rec, _ := h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(t, nil)

	rec, body := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Anu", "email": "anu@example.com", "password": "shortbread9",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, dataOf(body)["access_token"])

	rec, body = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "anu@example.com", "password": "shortbread9",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	user, _ := dataOf(body)["user"].(map[string]any)
	assert.Equal(t, "customer", user["role"])

	rec, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "anu@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownBodyFieldsAreRejected(t *testing.T) {
	h := newHarness(t, nil)

	rec, body := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "anu@example.com", "password": "x", "remember": true,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(body)["code"])
}

func TestCustomerRoutesRequireToken(t *testing.T) {
	h := newHarness(t, nil)

	rec, body := h.do(t, http.MethodGet, "/api/v1/addresses", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorOf(body)["code"])
}

func TestAdminRoutesRefuseCustomers(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(t, http.MethodGet, "/api/admin/v1/orders", h.token(t, h.customer, enums.UserRoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/api/admin/v1/orders", h.token(t, h.admin, enums.UserRoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminListRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(t, http.MethodGet, "/api/admin/v1/orders?status=baking", h.token(t, h.admin, enums.UserRoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t, nil)
	p, a := h.seedCart(t, intPtr(2000))

	rec, _ := h.do(t, http.MethodPost, "/api/v1/checkout", h.token(t, h.customer, enums.UserRoleCustomer), cartBody(p, a))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutMissingDistance(t *testing.T) {
	h := newHarness(t, nil)
	p, a := h.seedCart(t, nil)

	rec, body := h.do(t, http.MethodPost, "/api/v1/checkout", h.token(t, h.customer, enums.UserRoleCustomer), cartBody(p, a),
		"Idempotency-Key", "k-missing")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	details, _ := errorOf(body)["details"].(map[string]any)
	assert.Equal(t, checkout.ReasonMissingDistance, details["reason"])
}

func TestQuoteThenCheckoutReplays(t *testing.T) {
	h := newHarness(t, nil)
	p, a := h.seedCart(t, intPtr(2000))
	token := h.token(t, h.customer, enums.UserRoleCustomer)

	rec, body := h.do(t, http.MethodPost, "/api/v1/checkout/quote", token, cartBody(p, a))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	breakdown, _ := dataOf(body)["breakdown"].(map[string]any)
	assert.Equal(t, "555", breakdown["total_amount"])

	rec, first := h.do(t, http.MethodPost, "/api/v1/checkout", token, cartBody(p, a), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5001), dataOf(first)["order_number"])

	rec, replay := h.do(t, http.MethodPost, "/api/v1/checkout", token, cartBody(p, a), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, dataOf(first)["order_id"], dataOf(replay)["order_id"])

	rec, list := h.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _ := dataOf(list)["items"].([]any)
	assert.Len(t, items, 1)
}

func TestAdminEventLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	p, a := h.seedCart(t, intPtr(2000))

	rec, placed := h.do(t, http.MethodPost, "/api/v1/checkout", h.token(t, h.customer, enums.UserRoleCustomer), cartBody(p, a),
		"Idempotency-Key", "k-2")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := dataOf(placed)["order_id"]
	admin := h.token(t, h.admin, enums.UserRoleAdmin)
	eventPath := fmt.Sprintf("/api/admin/v1/orders/%v/events", orderID)

	rec, body := h.do(t, http.MethodPost, eventPath, admin, map[string]any{"event": "mark_delivered"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "STATE_CONFLICT", errorOf(body)["code"])
	details, _ := errorOf(body)["details"].(map[string]any)
	assert.Equal(t, orders.ReasonInvalidTransition, details["reason"])

	rec, body = h.do(t, http.MethodPost, eventPath, admin, map[string]any{"event": "mark_paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, dataOf(body)["success"])
	assert.Equal(t, "confirmed", dataOf(body)["new_status"])
	assert.Equal(t, "paid", dataOf(body)["payment_status"])

	rec, body = h.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/v1/orders/%v/delivery", orderID), admin, map[string]any{
		"delivery_person_name": "Ravi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Ravi", dataOf(body)["delivery_person_name"])

	rec, _ = h.do(t, http.MethodPost, eventPath, admin, map[string]any{"event": "bake_more"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRegisterOnlyInDev(t *testing.T) {
	h := newHarness(t, nil)
	rec, _ := h.do(t, http.MethodPost, "/api/admin/v1/auth/register", "", map[string]any{
		"name": "Ops", "email": "ops@example.com", "password": "eclairs123",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	h.cfg.App.Env = "prod"
	prod := NewRouter(h.cfg, nil, Dependencies{})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", bytes.NewBufferString(`{}`))
	out := httptest.NewRecorder()
	prod.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}

func intPtr(v int) *int { return &v }
