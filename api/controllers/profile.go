package controllers

import (
	"net/http"

	"github.com/lojafacil/lojas-backend/api/middleware"
	"github.com/lojafacil/lojas-backend/api/responses"
	"github.com/lojafacil/lojas-backend/api/validators"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

func profilePage(view *accounts.ProfileView) views.Page {
	page := views.Page{Title: "Perfil", Session: true}
	if view != nil {
		page.Data = view
		if view.User != nil {
			page.Values = map[string]string{"nome": view.User.Name, "email": view.User.Email}
		}
	}
	return page
}

// ProfileForm shows the profile with the current values.
func ProfileForm(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Redirect(w, r, PathLogin)
			return
		}
		view, err := svc.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		render(w, r, pages, logg, views.PageProfile, profilePage(view))
	}
}

// ProfileSubmit saves name and email.
func ProfileSubmit(svc AccountsService, pages Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Redirect(w, r, PathLogin)
			return
		}

		var body accounts.ProfileInput
		values, err := validators.DecodeForm(r, &body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateProfile(r.Context(), userID, body); err != nil {
			page := profilePage(nil)
			page.Values = values
			renderFormError(w, r, pages, logg, views.PageProfile, page, err)
			return
		}
		responses.Redirect(w, r, PathProfile)
	}
}
