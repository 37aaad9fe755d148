// Package validation checks form input structs and reports Portuguese,
// user-facing messages keyed by form field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/lojafacil/lojas-backend/pkg/errors"
)

const (
	MsgRequired         = "Este campo é obrigatório."
	MsgInvalidEmail     = "Digite um email válido."
	MsgPasswordMismatch = "As senhas não coincidem."
	MsgInvalid          = "Informe um valor válido."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Struct validates dest and returns one message per failing field, in
// declaration order. A nil result means the input is valid.
func Struct(dest any) pkgerrors.FieldErrors {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}

	var fieldErrs pkgerrors.FieldErrors
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fieldErrs.Add("__all__", MsgInvalid)
		return fieldErrs
	}
	for _, fe := range verrs {
		fieldErrs.Add(fe.Field(), message(fe))
	}
	return fieldErrs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "email":
		return MsgInvalidEmail
	case "max":
		if s, ok := fe.Value().(string); ok {
			return fmt.Sprintf("Certifique-se de que o valor tenha no máximo %s caracteres (ele possui %d).", fe.Param(), utf8.RuneCountInString(s))
		}
	case "eqfield":
		return MsgPasswordMismatch
	case "uuid":
		return MsgInvalid
	}
	return MsgInvalid
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckPasswordPair records a mismatch on confirmField when both values are
// present and differ.
func CheckPasswordPair(errs *pkgerrors.FieldErrors, password, confirmation, confirmField string) {
	if password == "" || confirmation == "" {
		return
	}
	if password != confirmation {
		errs.Add(confirmField, MsgPasswordMismatch)
	}
}
