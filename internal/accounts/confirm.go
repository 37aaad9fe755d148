package accounts

import (
	"context"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/internal/users"
	"github.com/lojafacil/lojas-backend/pkg/db/models"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/tokens"
)

func subjectOf(u *models.User) tokens.Subject {
	return tokens.Subject{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}
}

// userForToken resolves rawID and checks token against the user's current
// state. Unknown users yield CodeNotFound, bad tokens CodeTokenInvalid.
func (s *Service) userForToken(ctx context.Context, purpose tokens.Purpose, rawID, token string) (*models.User, error) {
	id, err := parseUserID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := s.tokens.Check(purpose, subjectOf(user), token); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTokenInvalid, err, "check token")
	}
	return user, nil
}

// ConfirmEmail activates the account when the token matches.
func (s *Service) ConfirmEmail(ctx context.Context, rawID, token string) (err error) {
	defer func() { s.record(metrics.EventConfirmEmail, err) }()

	user, err := s.userForToken(ctx, tokens.PurposeEmailConfirmation, rawID, token)
	if err != nil {
		return err
	}
	if err := users.NewRepository(s.db.DB()).Activate(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "accounts.confirm_email.success")
	return nil
}
