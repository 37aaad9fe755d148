package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/users"
	"github.com/lojafacil/lojas-backend/internal/views"
	pkgAuth "github.com/lojafacil/lojas-backend/pkg/auth"
	"github.com/lojafacil/lojas-backend/pkg/auth/session"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubChecker map[string]uuid.UUID

func (s stubChecker) Lookup(ctx context.Context, accessID string) (uuid.UUID, error) {
	if id, ok := s[accessID]; ok {
		return id, nil
	}
	return uuid.Nil, session.ErrNoSession
}

type stubAccounts struct{}

func (stubAccounts) Register(context.Context, accounts.RegisterInput) (*accounts.RegisterResult, error) {
	return &accounts.RegisterResult{}, nil
}

func (stubAccounts) Login(context.Context, accounts.LoginInput) (*accounts.LoginResult, error) {
	return &accounts.LoginResult{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubAccounts) Logout(context.Context, string) error { return nil }

func (stubAccounts) ConfirmEmail(context.Context, string, string) error { return nil }

func (stubAccounts) RequestPasswordReset(context.Context, accounts.ResetRequestInput) error {
	return nil
}

func (stubAccounts) CheckResetToken(context.Context, string, string) error { return nil }

func (stubAccounts) ResetPassword(context.Context, string, string, accounts.SetPasswordInput) error {
	return nil
}

func (stubAccounts) ChangePassword(context.Context, uuid.UUID, accounts.SetPasswordInput) error {
	return nil
}

func (stubAccounts) Profile(ctx context.Context, userID uuid.UUID) (*accounts.ProfileView, error) {
	return &accounts.ProfileView{User: &users.UserDTO{ID: userID, Name: "Alice", Email: "alice@example.com"}}, nil
}

func (stubAccounts) UpdateProfile(context.Context, uuid.UUID, accounts.ProfileInput) error {
	return nil
}

func newTestRouter(t *testing.T, checker session.Checker) (http.Handler, *config.Config) {
	t.Helper()
	return newLoggedTestRouter(t, checker, logger.Nop())
}

func newLoggedTestRouter(t *testing.T, checker session.Checker, logg *logger.Logger) (http.Handler, *config.Config) {
	t.Helper()
	pages, err := views.New()
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", HomePath: "/", CORSOrigins: []string{"http://localhost:8000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "lojas", ExpirationMinutes: 30, CookieName: "sessionid"},
	}
	reg := prometheus.NewRegistry()
	return NewRouter(Params{
		Config:      cfg,
		Logger:      logg,
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Sessions:    checker,
		Accounts:    stubAccounts{},
		Pages:       pages,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	}), cfg
}

func TestPublicRoutes(t *testing.T) {
	router, _ := newTestRouter(t, stubChecker{})

	for _, path := range []string{"/login", "/login/", "/registrar", "/recuperar-senha", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	router, _ := newTestRouter(t, stubChecker{})

	for _, path := range []string{"/", "/perfil", "/alterar-senha"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("GET %s: expected redirect to login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestSessionCookieUnlocksProfile(t *testing.T) {
	userID := uuid.New()
	router, cfg := newTestRouter(t, stubChecker{"acc-1": userID})

	token, err := pkgAuth.MintSessionToken(cfg.JWT, time.Now(), pkgAuth.SessionPayload{UserID: userID, AccessID: "acc-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/perfil", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alice@example.com") {
		t.Fatalf("expected profile page, got %d", rec.Code)
	}
}

func TestConfirmLinkRedirects(t *testing.T) {
	router, _ := newTestRouter(t, stubChecker{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/confirmar-email/"+uuid.NewString()+"/abc.def.ghi", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	router, _ := newTestRouter(t, stubChecker{})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected metrics exposition, got %d", rec.Code)
	}
}

func TestTokenLinksStayOutOfLogs(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	router, _ := newLoggedTestRouter(t, stubChecker{}, logger.New(logger.Options{ServiceName: "test", Output: &buf}))

	userID := uuid.NewString()
	const token = "eyJhbGciOiJIUzI1NiJ9.U0VDUkVUUEFZTE9BRA.SECRETSIG"
	for _, path := range []string{"/resetar-senha/" + userID + "/" + token, "/confirmar-email/" + userID + "/" + token} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code >= http.StatusInternalServerError {
			t.Fatalf("GET %s: unexpected %d", path, rec.Code)
		}
	}

	out := buf.String()
	if strings.Contains(out, "SECRETSIG") || strings.Contains(out, userID) {
		t.Fatalf("token link leaked into logs: %s", out)
	}
	for _, route := range []string{"/resetar-senha/{userId}/{token}", "/confirmar-email/{userId}/{token}"} {
		if !strings.Contains(out, `"route":"`+route+`"`) {
			t.Fatalf("expected route %s in logs: %s", route, out)
		}
	}
}

func TestUnmatchedPathsShareOneMetricLabel(t *testing.T) {
	router, _ := newTestRouter(t, stubChecker{})
	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x-"+uuid.NewString(), nil))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `path="unmatched"`) {
		t.Fatalf("expected unmatched label in %s", body)
	}
	if strings.Contains(body, `path="/x-`) {
		t.Fatalf("raw paths must not become labels: %s", body)
	}
}
