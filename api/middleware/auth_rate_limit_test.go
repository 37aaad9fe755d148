package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

func postForm(target, remote string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remote
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimit_AllowsUnderLimitAndKeepsForm(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("senha") != " secret " {
			t.Fatalf("form must reach the handler untouched, got %v", r.PostForm)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postForm("/login", "1.2.3.4:5678", url.Values{"email": {"tester@example.com"}, "senha": {" secret "}}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimit_EmailLimitTriggers(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewAuthRateLimitPolicy("password_reset", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, limiter, nil)(okHandler())

	codes := []int{}
	for _, addr := range []string{"Reset@Example.com", "reset@example.com ", "RESET@example.com"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postForm("/recuperar-senha", "9.9.9.9:1000", url.Values{"email": {addr}}))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
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
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if limiter.counts["password_reset:email:"+hashValue("reset@example.com")] != 3 {
		t.Fatalf("expected one counter for the normalised email, got %v", limiter.counts)
	}
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	limiter := newFakeLimiter()
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, limiter, nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postForm("/registrar", "5.6.7.8:1234", url.Values{"email": {"a@example.com"}}))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postForm("/registrar", "5.6.7.8:4321", url.Values{"email": {"b@example.com"}}))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %d %d", first.Code, second.Code)
	}
	if _, ok := limiter.counts["register:ip:5.6.7.8"]; !ok {
		t.Fatalf("expected ip bucket, got %v", limiter.counts)
	}
}

func TestAuthRateLimit_LimiterFailure(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 0), limiter, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postForm("/login", "1.1.1.1:1", url.Values{}))
	if rec.Code == http.StatusOK {
		t.Fatal("limiter errors must not let the request through")
	}
}

func TestAuthRateLimit_DisabledPolicy(t *testing.T) {
	limiter := newFakeLimiter()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("", 0, 5, 5), limiter, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postForm("/login", "1.1.1.1:1", url.Values{"email": {"x@example.com"}}))
	if rec.Code != http.StatusOK || len(limiter.counts) != 0 {
		t.Fatalf("disabled policy should pass through, got %d %v", rec.Code, limiter.counts)
	}
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.2")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client ip %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}
