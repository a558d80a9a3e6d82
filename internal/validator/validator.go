package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
)

const minPasswordLength = 8

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_]{3,30}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateUsername(username string) error {
	if validate.Var(username, "username") != nil {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if validate.Var(password, fmt.Sprintf("min=%d", minPasswordLength)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Struct checks the validate tags of a request and reports the first failing
// field by its json name, e.g. "invalid receiver".
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	first := fieldErrs[0]
	switch first.Tag() {
	case "username":
		return ErrInvalidUsername
	case "eqfield":
		return fmt.Errorf("%s does not match", first.Field())
	}
	if first.Field() == "password" {
		return ErrInvalidPassword
	}
	return fmt.Errorf("invalid %s", first.Field())
}
