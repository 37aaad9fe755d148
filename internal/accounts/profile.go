package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/internal/stores"
	"github.com/lojafacil/lojas-backend/internal/users"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

// Profile loads the user with their linked stores.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	rows, err := stores.NewRepository(s.db.DB()).ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	view := &ProfileView{User: users.FromModel(user), Stores: make([]*stores.StoreDTO, 0, len(rows))}
	for i := range rows {
		view.Stores = append(view.Stores, stores.FromModel(&rows[i]))
	}
	return view, nil
}

// UpdateProfile changes name and email, keeping emails unique.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (err error) {
	defer func() { s.record(metrics.EventProfileUpdate, err) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = validation.NormalizeEmail(in.Email)
	fieldErrs := validation.Struct(in)

	userRepo := users.NewRepository(s.db.DB())
	if !fieldErrs.Has("email") {
		taken, err := userRepo.EmailTaken(ctx, in.Email, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			fieldErrs.Add("email", MsgDuplicateEmail)
		}
	}
	if err := fieldErrs.Err(); err != nil {
		return err
	}

	if err := userRepo.UpdateProfile(ctx, userID, in.Name, in.Email); err != nil {
		if users.IsDuplicateEmail(err) {
			return pkgerrors.FieldErrors{{Field: "email", Message: MsgDuplicateEmail}}.Err()
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "accounts.profile.updated")
	return nil
}
