package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojafacil/lojas-backend/internal/memberships"
	"github.com/lojafacil/lojas-backend/internal/stores"
	"github.com/lojafacil/lojas-backend/internal/users"
	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
	"github.com/lojafacil/lojas-backend/pkg/metrics"
	"github.com/lojafacil/lojas-backend/pkg/tokens"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

// Register creates the user, their store and the link between them, then
// mails the confirmation link. Nothing is persisted when any step fails.
func (s *Service) Register(ctx context.Context, in RegisterInput) (result *RegisterResult, err error) {
	defer func() { s.record(metrics.EventRegister, err) }()

	in.Email = validation.NormalizeEmail(in.Email)
	in.TaxID = strings.TrimSpace(in.TaxID)

	fieldErrs := validation.Struct(in)
	validation.CheckPasswordPair(&fieldErrs, in.Password, in.PasswordConfirmation, "password2")

	userRepo := users.NewRepository(s.db.DB())
	storeRepo := stores.NewRepository(s.db.DB())
	if !fieldErrs.Has("email") {
		taken, err := userRepo.EmailTaken(ctx, in.Email, uuid.Nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			fieldErrs.Add("email", MsgDuplicateEmail)
		}
	}
	if !fieldErrs.Has("cnpj") {
		taken, err := storeRepo.TaxIDTaken(ctx, in.TaxID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check store tax id")
		}
		if taken {
			fieldErrs.Add("cnpj", MsgDuplicateTaxID)
		}
	}
	if err := fieldErrs.Err(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	active := !s.requireConfirmation

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).Create(ctx, users.CreateUserDTO{
			Name:         strings.TrimSpace(in.Name),
			Email:        in.Email,
			PasswordHash: passwordHash,
			IsActive:     &active,
		})
		if err != nil {
			if users.IsDuplicateEmail(err) {
				return pkgerrors.FieldErrors{{Field: "email", Message: MsgDuplicateEmail}}.Err()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		store, err := stores.NewRepository(tx).Create(ctx, stores.CreateStoreDTO{
			Name:    strings.TrimSpace(in.StoreName),
			TaxID:   in.TaxID,
			Address: strings.TrimSpace(in.Address),
			Phone:   strings.TrimSpace(in.Phone),
		})
		if err != nil {
			if stores.IsDuplicateTaxID(err) {
				return pkgerrors.FieldErrors{{Field: "cnpj", Message: MsgDuplicateTaxID}}.Err()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}

		linker := memberships.NewLinker(memberships.NewRepository(tx), s.logg)
		if _, err := linker.Link(ctx, user.ID, store.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link user to store")
		}

		token, err := s.tokens.Make(tokens.PurposeEmailConfirmation, subjectOf(user))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "make confirmation token")
		}
		if err := s.notifier.sendConfirmation(ctx, user, s.link("confirmar-email", user.ID, token)); err != nil {
			return err
		}

		result = &RegisterResult{User: users.FromModel(user), Store: stores.FromModel(store)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithStoreID(s.logg.WithUserID(ctx, result.User.ID.String()), result.Store.ID.String())
	s.logg.Info(logCtx, "accounts.register.success")
	return result, nil
}
