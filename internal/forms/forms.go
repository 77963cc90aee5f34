// Package forms binds and validates request payloads.
package forms

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"quill/internal/models"

	"github.com/go-playground/validator/v10"
)

// Field messages.
const (
	MsgRequired          = "This field is required."
	MsgEmail             = "Invalid email address."
	MsgLength            = "Field must be between 1 and 64 characters long."
	MsgPasswordsMatch    = "Passwords must match."
	MsgUsername          = "Usernames must have only letters, numbers, dots or underscores"
	MsgEmailRegistered   = "Email already registered."
	MsgUsernameInUse     = "Username already in use."
	MsgUnknownEmail      = "Unknown email address."
	MsgInvalidRole       = "Not a valid choice."
	MsgInvalidCredential = "Invalid password."
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Errors maps a field name to its messages. An empty Errors means valid.
type Errors map[string][]string

// Add appends msg to field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns nil when e is empty and a field validation AppError otherwise.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return models.NewFieldValidationError(e)
}

// Users is the lookup forms use for uniqueness checks. Both methods return
// nil, nil when no account matches.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Roles resolves role choices.
type Roles interface {
	GetByID(ctx context.Context, id uint) (*models.Role, error)
}

// check runs the struct tags of form and translates failures to messages.
func check(form any) Errors {
	errs := Errors{}
	err := engine().Struct(form)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add("form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "email":
		return MsgEmail
	case "max", "min":
		return MsgLength
	case "eqfield":
		return MsgPasswordsMatch
	case "username":
		return MsgUsername
	default:
		return "Invalid value."
	}
}

// emailTaken adds MsgEmailRegistered when email belongs to an account other than self.
func emailTaken(ctx context.Context, users Users, errs Errors, email string, self uint) error {
	if errs.Has("email") {
		return nil
	}
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		errs.Add("email", MsgEmailRegistered)
	}
	return nil
}

func usernameTaken(ctx context.Context, users Users, errs Errors, username string, self uint) error {
	if errs.Has("username") {
		return nil
	}
	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		errs.Add("username", MsgUsernameInUse)
	}
	return nil
}
