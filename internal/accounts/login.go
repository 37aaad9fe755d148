package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/internal/users"
	pkgauth "github.com/lojafacil/lojas-backend/pkg/auth"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

// invalidCredentials is identical for unknown emails and wrong passwords.
func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials").WithDetails(pkgerrors.FieldErrors{
		{Field: "email", Message: MsgInvalidCredentials},
		{Field: "senha", Message: ""},
	})
}

// Login authenticates the credentials and opens a session.
func (s *Service) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	defer func() { s.record(metrics.EventLogin, err) }()

	if fieldErrs := validation.Struct(in); len(fieldErrs) > 0 {
		return nil, fieldErrs.Err()
	}

	userRepo := users.NewRepository(s.db.DB())
	user, err := userRepo.FindByEmail(ctx, validation.NormalizeEmail(in.Email))
	if err != nil {
		if repo.IsNotFound(err) {
			s.hasher.VerifyDummy(in.Password)
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || (s.requireConfirmation && !user.IsActive) {
		return nil, invalidCredentials()
	}
	s.upgradeHash(ctx, userRepo, user.ID, in.Password, user.PasswordHash)

	accessID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	now := s.now().UTC()
	token, err := pkgauth.MintSessionToken(s.jwtCfg, now, pkgauth.SessionPayload{UserID: user.ID, AccessID: accessID})
	if err != nil {
		s.discardSession(ctx, accessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	if err := userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.discardSession(ctx, accessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "accounts.login.success")
	return &LoginResult{
		Token:     token,
		AccessID:  accessID,
		ExpiresAt: now.Add(s.jwtCfg.SessionTTL()),
		User:      users.FromModel(user),
	}, nil
}

// Logout drops the session record. An empty access id is a no-op.
func (s *Service) Logout(ctx context.Context, accessID string) error {
	if accessID == "" {
		s.record(metrics.EventLogout, nil)
		return nil
	}
	err := s.sessions.Revoke(ctx, accessID)
	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.record(metrics.EventLogout, err)
	return err
}

// discardSession drops a session whose login failed before the token reached
// the visitor.
func (s *Service) discardSession(ctx context.Context, accessID string) {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "accounts.login.discard_session_failed")
	}
}

// upgradeHash re-hashes a verified password stored under an older cost.
// Failures only cost the upgrade; the login proceeds.
func (s *Service) upgradeHash(ctx context.Context, userRepo *users.Repository, userID uuid.UUID, password, encoded string) {
	if !s.hasher.NeedsRehash(encoded) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = userRepo.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "error": err.Error()}), "accounts.login.rehash_failed")
		return
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "accounts.login.rehashed")
}
