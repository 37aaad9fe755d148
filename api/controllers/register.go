package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/lojas-backend/api/responses"
	"github.com/lojafacil/lojas-backend/api/validators"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

func registerPage() views.Page {
	return views.Page{Title: "Criar conta"}
}

// RegisterForm renders the registration page.
func RegisterForm(pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, logg, views.PageRegister, registerPage())
	}
}

// RegisterSubmit creates the account and its store.
func RegisterSubmit(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accounts.RegisterInput
		values, err := validators.DecodeForm(r, &body, "password1", "password2")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := registerPage()
		page.Values = values

		if _, err := svc.Register(r.Context(), body); err != nil {
			renderFormError(w, r, pages, logg, views.PageRegister, page, err)
			return
		}
		responses.Redirect(w, r, PathLogin)
	}
}

// ConfirmEmail activates the account. Success and every rejection end on the
// login page; failures carry no detail.
func ConfirmEmail(svc AccountsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.ConfirmEmail(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "token"))
		if err != nil && !isLinkRejection(err) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, PathLogin)
	}
}
