package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/api/responses"
	"github.com/lojafacil/lojas-backend/internal/accounts"
	"github.com/lojafacil/lojas-backend/internal/views"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

// Route paths the controllers redirect between.
const (
	PathLogin   = "/login"
	PathProfile = "/perfil"
)

// AccountsService is the account lifecycle surface used by the controllers.
type AccountsService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*accounts.RegisterResult, error)
	Login(ctx context.Context, in accounts.LoginInput) (*accounts.LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	ConfirmEmail(ctx context.Context, rawID, token string) error
	RequestPasswordReset(ctx context.Context, in accounts.ResetRequestInput) error
	CheckResetToken(ctx context.Context, rawID, token string) error
	ResetPassword(ctx context.Context, rawID, token string, in accounts.SetPasswordInput) error
	ChangePassword(ctx context.Context, userID uuid.UUID, in accounts.SetPasswordInput) error
	Profile(ctx context.Context, userID uuid.UUID) (*accounts.ProfileView, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in accounts.ProfileInput) error
}

// Renderer renders a named HTML page.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page views.Page) error
}

// render writes the page or, when the template fails, the JSON error envelope.
func render(w http.ResponseWriter, r *http.Request, pages Renderer, logg *logger.Logger, name string, page views.Page) {
	if err := pages.Render(w, http.StatusOK, name, page); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render page"))
	}
}

// renderFormError redisplays the form for field-level failures and falls back
// to the error envelope for everything else.
func renderFormError(w http.ResponseWriter, r *http.Request, pages Renderer, logg *logger.Logger, name string, page views.Page, err error) {
	if fe := pkgerrors.FieldErrorsFrom(err); len(fe) > 0 &&
		(pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized)) {
		render(w, r, pages, logg, name, page.WithErrors(fe))
		return
	}
	responses.WriteError(r.Context(), logg, w, err)
}

// isLinkRejection reports failures of emailed links, which are answered with a
// silent redirect.
func isLinkRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeTokenInvalid)
}
