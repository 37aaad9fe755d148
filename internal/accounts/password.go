package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/internal/users"
	"github.com/lojafacil/lojas-backend/pkg/db/models"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/tokens"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

// RequestPasswordReset mails a reset link to the account owning the email.
func (s *Service) RequestPasswordReset(ctx context.Context, in ResetRequestInput) (err error) {
	defer func() { s.record(metrics.EventResetRequest, err) }()

	in.Email = validation.NormalizeEmail(in.Email)
	if fieldErrs := validation.Struct(in); len(fieldErrs) > 0 {
		return fieldErrs.Err()
	}

	user, err := users.NewRepository(s.db.DB()).FindByEmail(ctx, in.Email)
	if err != nil {
		if repo.IsNotFound(err) {
			return pkgerrors.FieldErrors{{Field: "email", Message: MsgUserNotFound}}.Err()
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := s.tokens.Make(tokens.PurposePasswordReset, subjectOf(user))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "make reset token")
	}
	if err := s.notifier.sendPasswordReset(ctx, user, s.link("resetar-senha", user.ID, token)); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "accounts.password_reset.requested")
	return nil
}

// CheckResetToken validates a reset link before the form is shown.
func (s *Service) CheckResetToken(ctx context.Context, rawID, token string) error {
	_, err := s.userForToken(ctx, tokens.PurposePasswordReset, rawID, token)
	return err
}

// ResetPassword revalidates the token and stores the new password. Every
// session of the user is revoked.
func (s *Service) ResetPassword(ctx context.Context, rawID, token string, in SetPasswordInput) (err error) {
	defer func() { s.record(metrics.EventResetPassword, err) }()

	user, err := s.userForToken(ctx, tokens.PurposePasswordReset, rawID, token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, in); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "accounts.password_reset.success")
	return nil
}

// ChangePassword sets a new password for an authenticated user and revokes
// every session, including the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, in SetPasswordInput) (err error) {
	defer func() { s.record(metrics.EventChangePass, err) }()

	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := s.setPassword(ctx, user, in); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "accounts.password_change.success")
	return nil
}

func (s *Service) setPassword(ctx context.Context, user *models.User, in SetPasswordInput) error {
	fieldErrs := validation.Struct(in)
	validation.CheckPasswordPair(&fieldErrs, in.NewPassword, in.Confirmation, "confirmar_senha")
	if err := fieldErrs.Err(); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	// A failed revoke leaves the old password in place.
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	if err := users.NewRepository(s.db.DB()).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	// Sweep logins that raced the update with the old password.
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "error": err.Error()}), "accounts.password.revoke_failed")
	}
	return nil
}
