package accounts

import (
	"time"

	"github.com/lojafacil/lojas-backend/internal/stores"
	"github.com/lojafacil/lojas-backend/internal/users"
)

// RegisterInput is the registration form. Form names match the HTML fields.
type RegisterInput struct {
	Name                 string `form:"nome" validate:"required,max=150"`
	Email                string `form:"email" validate:"required,email,max=254"`
	Password             string `form:"password1" validate:"required"`
	PasswordConfirmation string `form:"password2" validate:"required"`
	StoreName            string `form:"nome_loja" validate:"required,max=150"`
	TaxID                string `form:"cnpj" validate:"required,max=20"`
	Address              string `form:"endereco" validate:"required"`
	Phone                string `form:"telefone" validate:"required,max=20"`
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"senha" validate:"required"`
}

// ResetRequestInput asks for a reset link.
type ResetRequestInput struct {
	Email string `form:"email" validate:"required,email"`
}

// SetPasswordInput is shared by the token reset and the authenticated change.
type SetPasswordInput struct {
	NewPassword  string `form:"nova_senha" validate:"required"`
	Confirmation string `form:"confirmar_senha" validate:"required"`
}

// ProfileInput edits the account's name and email.
type ProfileInput struct {
	Name  string `form:"nome" validate:"required,max=150"`
	Email string `form:"email" validate:"required,email,max=254"`
}

// RegisterResult describes the records created by a registration.
type RegisterResult struct {
	User  *users.UserDTO
	Store *stores.StoreDTO
}

// LoginResult carries the signed session cookie value.
type LoginResult struct {
	Token     string
	AccessID  string
	ExpiresAt time.Time
	User      *users.UserDTO
}

// ProfileView is what the profile page shows.
type ProfileView struct {
	User   *users.UserDTO
	Stores []*stores.StoreDTO
}
