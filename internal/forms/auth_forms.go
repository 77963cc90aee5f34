package forms

import (
	"context"
	"strings"
)

// LoginForm authenticates an account.
type LoginForm struct {
	Email      string `json:"email" form:"email" validate:"required,max=64,email"`
	Password   string `json:"password" form:"password" validate:"required"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

// Validate checks field shapes only.
func (f *LoginForm) Validate(_ context.Context) Errors {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

// RegistrationForm creates an account.
type RegistrationForm struct {
	Email     string `json:"email" form:"email" validate:"required,max=64,email"`
	Username  string `json:"username" form:"username" validate:"required,max=64,username"`
	Password  string `json:"password" form:"password" validate:"required,eqfield=Password2"`
	Password2 string `json:"password2" form:"password2"`
}

// Validate also rejects an email or username that already has an account.
func (f *RegistrationForm) Validate(ctx context.Context, users Users) (Errors, error) {
	f.Email = strings.TrimSpace(f.Email)
	f.Username = strings.TrimSpace(f.Username)
	errs := check(f)
	if err := emailTaken(ctx, users, errs, f.Email, 0); err != nil {
		return nil, err
	}
	if err := usernameTaken(ctx, users, errs, f.Username, 0); err != nil {
		return nil, err
	}
	return errs, nil
}

// ChangeEmailForm requests a move to a new address. The password is
// verified by the caller.
type ChangeEmailForm struct {
	Email    string `json:"email" form:"email" validate:"required,max=64,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (f *ChangeEmailForm) Validate(ctx context.Context, users Users) (Errors, error) {
	f.Email = strings.TrimSpace(f.Email)
	errs := check(f)
	if err := emailTaken(ctx, users, errs, f.Email, 0); err != nil {
		return nil, err
	}
	return errs, nil
}

// ChangePasswordForm replaces the password of the current account.
type ChangePasswordForm struct {
	OldPassword string `json:"old_password" form:"old_password" validate:"required"`
	Password    string `json:"password" form:"password" validate:"required,eqfield=Password2"`
	Password2   string `json:"password2" form:"password2"`
}

func (f *ChangePasswordForm) Validate(_ context.Context) Errors {
	return check(f)
}

// PasswordResetRequestForm asks for a reset link.
type PasswordResetRequestForm struct {
	Email string `json:"email" form:"email" validate:"required,max=64,email"`
}

func (f *PasswordResetRequestForm) Validate(_ context.Context) Errors {
	f.Email = strings.TrimSpace(f.Email)
	return check(f)
}

// PasswordResetForm sets a new password using a reset token.
type PasswordResetForm struct {
	Email     string `json:"email" form:"email" validate:"required,max=64,email"`
	Password  string `json:"password" form:"password" validate:"required,eqfield=Password2"`
	Password2 string `json:"password2" form:"password2"`
}

// Validate rejects an email with no account.
func (f *PasswordResetForm) Validate(ctx context.Context, users Users) (Errors, error) {
	f.Email = strings.TrimSpace(f.Email)
	errs := check(f)
	if errs.Has("email") {
		return errs, nil
	}
	existing, err := users.GetByEmail(ctx, f.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		errs.Add("email", MsgUnknownEmail)
	}
	return errs, nil
}
