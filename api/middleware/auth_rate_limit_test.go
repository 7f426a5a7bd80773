package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crumbhouse/bakery-backend/pkg/config"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
)

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func TestLoginRateLimitPreservesBody(t *testing.T) {
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 2, LoginEmailLimit: 2}
	handler := LoginRateLimit(cfg, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRateLimitEmailLimit(t *testing.T) {
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 2}
	handler := LoginRateLimit(cfg, newFakeRateStore(), nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// Case and whitespace differences count against the same email.
		email := "Blocked@example.com"
		if i == 1 {
			email = " blocked@example.com"
		}
		handler.ServeHTTP(rec, loginRequest(email, "1.2.3.4:5678"))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected success before limit, got %d", i, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestLoginRateLimitIPLimit(t *testing.T) {
	cfg := config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1}
	handler := LoginRateLimit(cfg, newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8:1234"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected success, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "5.6.7.8:9999"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, loginRequest("b@example.com", "9.9.9.9:1234"))
	if other.Code != http.StatusOK {
		t.Fatalf("expected another client to pass, got %d", other.Code)
	}
}

func TestLoginRateLimitDisabled(t *testing.T) {
	store := newFakeRateStore()
	handler := LoginRateLimit(config.RateLimitConfig{}, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "5.6.7.8:1234"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters, got %v", store.counts)
	}
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}
