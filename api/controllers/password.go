package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/lojas-backend/api/middleware"
	"github.com/lojafacil/lojas-backend/api/responses"
	"github.com/lojafacil/lojas-backend/api/validators"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

func forgotPage() views.Page {
	return views.Page{Title: "Recuperar senha"}
}

// ForgotPasswordForm renders the reset request page.
func ForgotPasswordForm(pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, logg, views.PageForgotPassword, forgotPage())
	}
}

// ForgotPasswordSubmit mails the reset link.
func ForgotPasswordSubmit(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accounts.ResetRequestInput
		values, err := validators.DecodeForm(r, &body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := forgotPage()
		page.Values = values

		if err := svc.RequestPasswordReset(r.Context(), body); err != nil {
			renderFormError(w, r, pages, logg, views.PageForgotPassword, page, err)
			return
		}
		responses.Redirect(w, r, PathLogin)
	}
}

func resetPage(r *http.Request) views.Page {
	action := "/resetar-senha/" + url.PathEscape(chi.URLParam(r, "userId")) + "/" + url.PathEscape(chi.URLParam(r, "token"))
	return views.Page{Title: "Redefinir senha", Action: action}
}

// ResetPasswordForm renders the new password form once the link checks out.
func ResetPasswordForm(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckResetToken(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token")); err != nil {
			if isLinkRejection(err) {
				responses.Redirect(w, r, PathLogin)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, pages, logg, views.PageResetPassword, resetPage(r))
	}
}

// ResetPasswordSubmit revalidates the link and stores the new password.
func ResetPasswordSubmit(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accounts.SetPasswordInput
		if _, err := validators.DecodeForm(r, &body, "nova_senha", "confirmar_senha"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := svc.ResetPassword(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token"), body)
		switch {
		case err == nil:
			responses.Redirect(w, r, PathLogin)
		case isLinkRejection(err):
			responses.Redirect(w, r, PathLogin)
		default:
			renderFormError(w, r, pages, logg, views.PageResetPassword, resetPage(r), err)
		}
	}
}

func changePage() views.Page {
	return views.Page{Title: "Alterar senha", Session: true}
}

// ChangePasswordForm renders the authenticated password change page.
func ChangePasswordForm(pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, logg, views.PageChangePassword, changePage())
	}
}

// ChangePasswordSubmit sets the new password, ends the session and sends the
// user back to the login page.
func ChangePasswordSubmit(svc AccountsService, pages Renderer, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Redirect(w, r, PathLogin)
			return
		}

		var body accounts.SetPasswordInput
		if _, err := validators.DecodeForm(r, &body, "nova_senha", "confirmar_senha"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), userID, body); err != nil {
			renderFormError(w, r, pages, logg, views.PageChangePassword, changePage(), err)
			return
		}
		clearSessionCookie(w, cfg)
		responses.Redirect(w, r, PathLogin)
	}
}
