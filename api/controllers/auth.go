package controllers

import (
	"net/http"

	"github.com/lojafacil/lojas-backend/api/middleware"
	"github.com/lojafacil/lojas-backend/api/responses"
	"github.com/lojafacil/lojas-backend/api/validators"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	pkgAuth "github.com/lojafacil/lojas-backend/pkg/auth"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

func loginPage() views.Page {
	return views.Page{Title: "Entrar"}
}

// LoginForm renders the login page.
func LoginForm(pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, logg, views.PageLogin, loginPage())
	}
}

// LoginSubmit authenticates the form and sets the session cookie.
func LoginSubmit(svc AccountsService, pages Renderer, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accounts.LoginInput
		values, err := validators.DecodeForm(r, &body, "senha")
		page := loginPage()
		page.Values = values
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			renderFormError(w, r, pages, logg, views.PageLogin, page, err)
			return
		}

		setSessionCookie(w, cfg.JWT, result.Token, result.ExpiresAt)
		responses.Redirect(w, r, cfg.App.HomePath)
	}
}

// Logout tears the session down and always lands on the login page, whatever
// state the cookie is in.
func Logout(svc AccountsService, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				if claims, err := pkgAuth.ParseSessionTokenAllowExpired(cfg, cookie.Value); err == nil {
					accessID = claims.ID
				}
			}
		}

		if err := svc.Logout(r.Context(), accessID); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "accounts.logout.revoke_failed")
		}

		clearSessionCookie(w, cfg)
		responses.Redirect(w, r, PathLogin)
	}
}

// Home sends visitors to their profile.
func Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.Redirect(w, r, PathProfile)
	}
}
