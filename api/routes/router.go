package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lojafacil/lojas-backend/api/controllers"
	"github.com/lojafacil/lojas-backend/api/middleware"
	"github.com/lojafacil/lojas-backend/pkg/auth/session"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type requestObserver interface {
	Observe(method, path string, status int, d time.Duration)
}

// Params holds everything the router wires into handlers.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimits  rateLimiter
	Sessions    session.Checker
	Accounts    controllers.AccountsService
	Pages       controllers.Renderer
	HTTPMetrics requestObserver
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		chimw.StripSlashes,
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password_reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	limit := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		return middleware.AuthRateLimit(policy, p.RateLimits, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.JWT, p.Sessions, logg))

		r.Get("/login", controllers.LoginForm(p.Pages, logg))
		r.With(limit(loginPolicy)).Post("/login", controllers.LoginSubmit(p.Accounts, p.Pages, cfg, logg))
		r.Get("/registrar", controllers.RegisterForm(p.Pages, logg))
		r.With(limit(registerPolicy)).Post("/registrar", controllers.RegisterSubmit(p.Accounts, p.Pages, logg))
		r.Get("/recuperar-senha", controllers.ForgotPasswordForm(p.Pages, logg))
		r.With(limit(resetPolicy)).Post("/recuperar-senha", controllers.ForgotPasswordSubmit(p.Accounts, p.Pages, logg))
		r.Get("/resetar-senha/{userId}/{token}", controllers.ResetPasswordForm(p.Accounts, p.Pages, logg))
		r.Post("/resetar-senha/{userId}/{token}", controllers.ResetPasswordSubmit(p.Accounts, p.Pages, logg))
		r.Get("/confirmar-email/{userId}/{token}", controllers.ConfirmEmail(p.Accounts, logg))
		r.Get("/logout", controllers.Logout(p.Accounts, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(controllers.PathLogin))
			r.Get("/", controllers.Home())
			r.Get("/alterar-senha", controllers.ChangePasswordForm(p.Pages, logg))
			r.Post("/alterar-senha", controllers.ChangePasswordSubmit(p.Accounts, p.Pages, cfg.JWT, logg))
			r.Get("/perfil", controllers.ProfileForm(p.Accounts, p.Pages, logg))
			r.Post("/perfil", controllers.ProfileSubmit(p.Accounts, p.Pages, logg))
		})
	})

	return r
}
