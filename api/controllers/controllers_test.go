package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/api/middleware"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/users"
	"github.com/lojafacil/lojas-backend/internal/views"
	pkgAuth "github.com/lojafacil/lojas-backend/pkg/auth"
	"github.com/lojafacil/lojas-backend/pkg/config"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

type stubAccounts struct {
	registerErr error
	loginResult *accounts.LoginResult
	loginErr    error
	confirmErr  error
	resetReqErr error
	checkErr    error
	resetErr    error
	changeErr   error
	profile     *accounts.ProfileView
	updateErr   error

	gotRegister   accounts.RegisterInput
	gotLogin      accounts.LoginInput
	loggedOut     []string
	changedFor    uuid.UUID
	gotSetPass    accounts.SetPasswordInput
	confirmCalled bool
}

func (s *stubAccounts) Register(ctx context.Context, in accounts.RegisterInput) (*accounts.RegisterResult, error) {
	s.gotRegister = in
	return &accounts.RegisterResult{}, s.registerErr
}

func (s *stubAccounts) Login(ctx context.Context, in accounts.LoginInput) (*accounts.LoginResult, error) {
	s.gotLogin = in
	return s.loginResult, s.loginErr
}

func (s *stubAccounts) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = append(s.loggedOut, accessID)
	return nil
}

func (s *stubAccounts) ConfirmEmail(ctx context.Context, rawID, token string) error {
	s.confirmCalled = true
	return s.confirmErr
}

func (s *stubAccounts) RequestPasswordReset(ctx context.Context, in accounts.ResetRequestInput) error {
	return s.resetReqErr
}

func (s *stubAccounts) CheckResetToken(ctx context.Context, rawID, token string) error {
	return s.checkErr
}

func (s *stubAccounts) ResetPassword(ctx context.Context, rawID, token string, in accounts.SetPasswordInput) error {
	s.gotSetPass = in
	return s.resetErr
}

func (s *stubAccounts) ChangePassword(ctx context.Context, userID uuid.UUID, in accounts.SetPasswordInput) error {
	s.changedFor = userID
	s.gotSetPass = in
	return s.changeErr
}

func (s *stubAccounts) Profile(ctx context.Context, userID uuid.UUID) (*accounts.ProfileView, error) {
	return s.profile, nil
}

func (s *stubAccounts) UpdateProfile(ctx context.Context, userID uuid.UUID, in accounts.ProfileInput) error {
	return s.updateErr
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", HomePath: "/"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "lojas", ExpirationMinutes: 30, CookieName: "sessionid"},
	}
}

func newPages(t *testing.T) *views.Renderer {
	t.Helper()
	pages, err := views.New()
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	return pages
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSubmitSetsCookieAndRedirectsHome(t *testing.T) {
	cfg := testConfig()
	svc := &stubAccounts{loginResult: &accounts.LoginResult{Token: "signed", ExpiresAt: time.Now().Add(time.Hour)}}
	h := LoginSubmit(svc, newPages(t), cfg, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postForm("/login", url.Values{"email": {" a@b.com "}, "senha": {" pw "}}))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	c := sessionCookie(rec, "sessionid")
	if c == nil || c.Value != "signed" || !c.HttpOnly {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if svc.gotLogin.Email != "a@b.com" || svc.gotLogin.Password != " pw " {
		t.Fatalf("unexpected decoded form %+v", svc.gotLogin)
	}
}

func TestLoginSubmitRendersGenericError(t *testing.T) {
	svc := &stubAccounts{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials").WithDetails(pkgerrors.FieldErrors{
		{Field: "email", Message: accounts.MsgInvalidCredentials},
		{Field: "senha", Message: ""},
	})}
	h := LoginSubmit(svc, newPages(t), testConfig(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postForm("/login", url.Values{"email": {"a@b.com"}, "senha": {"x"}}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), accounts.MsgInvalidCredentials) {
		t.Fatalf("expected generic error in body")
	}
	if sessionCookie(rec, "sessionid") != nil {
		t.Fatalf("no cookie expected on failure")
	}
}

func TestRegisterSubmit(t *testing.T) {
	t.Run("success redirects to login", func(t *testing.T) {
		svc := &stubAccounts{}
		rec := httptest.NewRecorder()
		RegisterSubmit(svc, newPages(t), nil).ServeHTTP(rec, postForm("/registrar", url.Values{
			"nome": {"Alice"}, "email": {"alice@example.com"}, "password1": {"pw123!"}, "password2": {"pw123!"},
			"nome_loja": {"Acme"}, "cnpj": {"12.345.678/0001-99"}, "endereco": {"Rua 1"}, "telefone": {"1199"},
		}))
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
		}
		if svc.gotRegister.StoreName != "Acme" || svc.gotRegister.TaxID != "12.345.678/0001-99" {
			t.Fatalf("form not decoded: %+v", svc.gotRegister)
		}
	})

	t.Run("field errors re-render with values", func(t *testing.T) {
		svc := &stubAccounts{registerErr: pkgerrors.FieldErrors{{Field: "email", Message: accounts.MsgDuplicateEmail}}.Err()}
		rec := httptest.NewRecorder()
		RegisterSubmit(svc, newPages(t), nil).ServeHTTP(rec, postForm("/registrar", url.Values{"email": {"alice@example.com"}, "nome_loja": {"Acme"}}))
		body := rec.Body.String()
		if rec.Code != http.StatusOK || !strings.Contains(body, accounts.MsgDuplicateEmail) || !strings.Contains(body, `value="Acme"`) {
			t.Fatalf("unexpected response %d: %s", rec.Code, body)
		}
	})

	t.Run("mail failure surfaces as error", func(t *testing.T) {
		svc := &stubAccounts{registerErr: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("smtp"), "send email")}
		rec := httptest.NewRecorder()
		RegisterSubmit(svc, newPages(t), nil).ServeHTTP(rec, postForm("/registrar", url.Values{"email": {"a@b.com"}}))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func linkRouter(svc AccountsService, pages Renderer) http.Handler {
	r := chi.NewRouter()
	r.Get("/confirmar-email/{userId}/{token}", ConfirmEmail(svc, nil))
	r.Get("/resetar-senha/{userId}/{token}", ResetPasswordForm(svc, pages, nil))
	r.Post("/resetar-senha/{userId}/{token}", ResetPasswordSubmit(svc, pages, nil))
	return r
}

func TestConfirmEmailAlwaysRedirectsToLogin(t *testing.T) {
	for name, err := range map[string]error{
		"valid":    nil,
		"tampered": pkgerrors.New(pkgerrors.CodeTokenInvalid, "check token"),
		"unknown":  pkgerrors.New(pkgerrors.CodeNotFound, "user not found"),
	} {
		t.Run(name, func(t *testing.T) {
			svc := &stubAccounts{confirmErr: err}
			rec := httptest.NewRecorder()
			linkRouter(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/confirmar-email/"+uuid.NewString()+"/tok", nil))
			if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
				t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
			}
			if !svc.confirmCalled {
				t.Fatalf("service not called")
			}
		})
	}
}

func TestResetPasswordLink(t *testing.T) {
	pages := newPages(t)
	id := uuid.NewString()

	svc := &stubAccounts{checkErr: pkgerrors.New(pkgerrors.CodeTokenInvalid, "bad")}
	rec := httptest.NewRecorder()
	linkRouter(svc, pages).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resetar-senha/"+id+"/tok", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("invalid link should redirect, got %d", rec.Code)
	}

	svc = &stubAccounts{}
	rec = httptest.NewRecorder()
	linkRouter(svc, pages).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resetar-senha/"+id+"/tok", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/resetar-senha/`+id+`/tok"`) {
		t.Fatalf("expected reset form, got %d: %s", rec.Code, rec.Body.String())
	}

	svc = &stubAccounts{resetErr: pkgerrors.FieldErrors{{Field: "confirmar_senha", Message: "As senhas não coincidem."}}.Err()}
	rec = httptest.NewRecorder()
	linkRouter(svc, pages).ServeHTTP(rec, postForm("/resetar-senha/"+id+"/tok", url.Values{"nova_senha": {"a"}, "confirmar_senha": {"b"}}))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "As senhas não coincidem.") {
		t.Fatalf("expected mismatch message, got %d", rec.Code)
	}

	svc = &stubAccounts{}
	rec = httptest.NewRecorder()
	linkRouter(svc, pages).ServeHTTP(rec, postForm("/resetar-senha/"+id+"/tok", url.Values{"nova_senha": {"novo"}, "confirmar_senha": {"novo"}}))
	if rec.Code != http.StatusFound || svc.gotSetPass.NewPassword != "novo" {
		t.Fatalf("expected redirect after reset, got %d %+v", rec.Code, svc.gotSetPass)
	}
}

func TestLogoutAlwaysRedirects(t *testing.T) {
	cfg := testConfig()

	svc := &stubAccounts{}
	rec := httptest.NewRecorder()
	Logout(svc, cfg.JWT, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response %d", rec.Code)
	}
	if c := sessionCookie(rec, "sessionid"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared, got %+v", c)
	}

	expired, err := pkgAuth.MintSessionToken(cfg.JWT, time.Now().Add(-2*time.Hour), pkgAuth.SessionPayload{UserID: uuid.New(), AccessID: "acc-old"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: expired})
	rec = httptest.NewRecorder()
	Logout(svc, cfg.JWT, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("unexpected response %d", rec.Code)
	}
	if len(svc.loggedOut) != 2 || svc.loggedOut[1] != "acc-old" {
		t.Fatalf("expected expired session revoked, got %v", svc.loggedOut)
	}
}

func TestChangePasswordSubmitEndsSession(t *testing.T) {
	cfg := testConfig()
	svc := &stubAccounts{}
	userID := uuid.New()

	req := postForm("/alterar-senha", url.Values{"nova_senha": {"nova"}, "confirmar_senha": {"nova"}})
	req = req.WithContext(middleware.WithSession(req.Context(), userID, "acc"))
	rec := httptest.NewRecorder()
	ChangePasswordSubmit(svc, newPages(t), cfg.JWT, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if svc.changedFor != userID {
		t.Fatalf("password changed for wrong user")
	}
	if c := sessionCookie(rec, "sessionid"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared")
	}
}

func TestProfileForm(t *testing.T) {
	svc := &stubAccounts{profile: &accounts.ProfileView{User: &users.UserDTO{Name: "Alice", Email: "alice@example.com"}}}
	req := httptest.NewRequest(http.MethodGet, "/perfil", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), uuid.New(), "acc"))
	rec := httptest.NewRecorder()
	ProfileForm(svc, newPages(t), nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="alice@example.com"`) {
		t.Fatalf("unexpected profile page %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHomeRedirectsToProfile(t *testing.T) {
	rec := httptest.NewRecorder()
	Home().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Location") != "/perfil" {
		t.Fatalf("unexpected location %q", rec.Header().Get("Location"))
	}
}

type failingPinger struct{ err error }

func (f failingPinger) Ping(context.Context) error { return f.err }

func TestHealthReady(t *testing.T) {
	cfg := testConfig()

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": failingPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": failingPinger{err: errors.New("down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
