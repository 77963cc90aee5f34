package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/internal/auth"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// Notifier delivers account emails. *mail.Mailer implements it.
type Notifier interface {
	SendConfirmation(ctx context.Context, u *models.User, token string) error
	SendPasswordReset(ctx context.Context, u *models.User, token string) error
	SendEmailChange(ctx context.Context, u *models.User, newEmail, token string) error
	SendNewUser(ctx context.Context, admin string, u *models.User) error
}

// AccountService runs registration, login and the token-confirmed account flows.
type AccountService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	signer     *auth.Signer
	ledger     *auth.Ledger
	notifier   Notifier
	adminEmail string
	now        func() time.Time
}

// AccountDeps groups the collaborators of AccountService.
type AccountDeps struct {
	Users      repository.UserRepository
	Roles      repository.RoleRepository
	Signer     *auth.Signer
	Ledger     *auth.Ledger
	Notifier   Notifier
	AdminEmail string
}

func NewAccountService(deps AccountDeps) *AccountService {
	return &AccountService{
		users:      deps.Users,
		roles:      deps.Roles,
		signer:     deps.Signer,
		ledger:     deps.Ledger,
		notifier:   deps.Notifier,
		adminEmail: deps.AdminEmail,
		now:        time.Now,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

const msgInvalidLogin = "Invalid username or password."

// AssignRole gives u the administrator role when its email is the configured
// admin address, otherwise the default role. u keeps its role if it has one.
func (s *AccountService) AssignRole(ctx context.Context, u *models.User) error {
	if u.RoleID != nil {
		return nil
	}

	var role *models.Role
	var err error
	if s.adminEmail != "" && strings.EqualFold(u.Email, s.adminEmail) {
		role, err = s.roles.GetByPermissions(ctx, 0xff)
		if err != nil {
			return err
		}
	}
	if role == nil {
		role, err = s.roles.GetDefault(ctx)
		if err != nil {
			return err
		}
	}
	if role != nil {
		u.RoleID = &role.ID
		u.Role = role
	}
	return nil
}

// Register creates an unconfirmed account and mails the confirmation link.
func (s *AccountService) Register(ctx context.Context, form forms.RegistrationForm) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "Register")
	defer func() { observability.EndSpan(span, err) }()

	errs, err := form.Validate(ctx, s.users)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user = &models.User{Email: form.Email, Username: form.Username}
	if err := user.SetPassword(form.Password); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.AssignRole(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		middleware.RecordAccountEvent("register", false)
		return nil, err
	}
	middleware.RecordAccountEvent("register", true)

	s.sendConfirmation(ctx, user)
	if s.adminEmail != "" {
		if err := s.notifier.SendNewUser(ctx, s.adminEmail, user); err != nil {
			middleware.Logger.WarnContext(ctx, "new user notification failed", slog.String("error", err.Error()))
		}
	}
	return user, nil
}

func (s *AccountService) sendConfirmation(ctx context.Context, user *models.User) {
	token, err := s.signer.ConfirmationToken(user.ID, auth.DefaultExpiration)
	if err == nil {
		err = s.notifier.SendConfirmation(ctx, user, token)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "confirmation email failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
}

// Authenticate checks credentials and issues a session token.
func (s *AccountService) Authenticate(ctx context.Context, form forms.LoginForm) (*Session, error) {
	if err := form.Validate(ctx).Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.VerifyPassword(form.Password) {
		middleware.RecordAccountEvent("login", false)
		return nil, models.NewUnauthorizedError(msgInvalidLogin)
	}

	token, err := s.signer.SessionToken(user.ID, form.RememberMe)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	ttl := auth.SessionTTL
	if form.RememberMe {
		ttl = auth.RememberMeTTL
	}
	middleware.RecordAccountEvent("login", true)
	return &Session{Token: token, ExpiresAt: s.now().Add(ttl), User: user}, nil
}

// ResolveSession loads the account behind a session token.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.signer.Parse(token, auth.ActionSession)
	if err != nil {
		return nil, err
	}
	revoked, err := s.ledger.IsRevoked(ctx, claims)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrInvalidToken
	}
	return s.users.GetByID(ctx, claims.UserID)
}

// Logout revokes the session token. Unknown or expired tokens are ignored.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	claims, err := s.signer.Parse(token, auth.ActionSession)
	if err != nil {
		return nil
	}
	if err := s.ledger.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// consume parses token for action, checks it belongs to userID and marks it used.
func (s *AccountService) consume(ctx context.Context, token string, action auth.Action, userID uint) (*auth.Claims, error) {
	claims, err := s.signer.Parse(token, action)
	if err != nil || claims.UserID != userID {
		middleware.RecordAccountEvent(string(action), false)
		return nil, models.NewInvalidTokenError()
	}
	fresh, err := s.ledger.Consume(ctx, claims)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !fresh {
		middleware.RecordAccountEvent(string(action), false)
		return nil, models.NewInvalidTokenError()
	}
	return claims, nil
}

// release frees a consumed token whose account update failed, so the link
// still works on retry.
func (s *AccountService) release(ctx context.Context, claims *auth.Claims) {
	if err := s.ledger.Release(ctx, claims); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to release token",
			slog.String("action", string(claims.Action)),
			slog.String("error", err.Error()),
		)
	}
}

// Confirm marks user confirmed. Confirming twice is a no-op.
func (s *AccountService) Confirm(ctx context.Context, user *models.User, token string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "Confirm")
	defer func() { observability.EndSpan(span, err) }()

	if user.Confirmed {
		return nil
	}
	claims, err := s.consume(ctx, token, auth.ActionConfirm, user.ID)
	if err != nil {
		return err
	}
	user.Confirmed = true
	if err := s.users.Update(ctx, user); err != nil {
		user.Confirmed = false
		s.release(ctx, claims)
		return err
	}
	middleware.RecordAccountEvent(string(auth.ActionConfirm), true)
	return nil
}

// ResendConfirmation mails a fresh confirmation link.
func (s *AccountService) ResendConfirmation(ctx context.Context, user *models.User) error {
	if user.Confirmed {
		return models.NewValidationError("Account already confirmed.")
	}
	token, err := s.signer.ConfirmationToken(user.ID, auth.DefaultExpiration)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.notifier.SendConfirmation(ctx, user, token)
}

// ChangePassword replaces the password after checking the old one.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, form forms.ChangePasswordForm) error {
	errs := form.Validate(ctx)
	if !errs.Has("old_password") && !user.VerifyPassword(form.OldPassword) {
		errs.Add("old_password", forms.MsgInvalidCredential)
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if err := user.SetPassword(form.Password); err != nil {
		return models.NewInternalError(err)
	}
	return s.users.Update(ctx, user)
}

// RequestPasswordReset mails a reset link when the address has an account.
// It succeeds either way so callers cannot probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, form forms.PasswordResetRequestForm) error {
	if err := form.Validate(ctx).Err(); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	token, err := s.signer.ResetToken(user.ID, auth.DefaultExpiration)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.notifier.SendPasswordReset(ctx, user, token)
}

// ResetPassword sets a new password for the account named in the form, if
// token was issued to that account.
func (s *AccountService) ResetPassword(ctx context.Context, token string, form forms.PasswordResetForm) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "ResetPassword")
	defer func() { observability.EndSpan(span, err) }()

	errs, err := form.Validate(ctx, s.users)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewInvalidTokenError()
	}
	claims, err := s.consume(ctx, token, auth.ActionReset, user.ID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(form.Password); err != nil {
		s.release(ctx, claims)
		return models.NewInternalError(err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.release(ctx, claims)
		return err
	}
	middleware.RecordAccountEvent(string(auth.ActionReset), true)
	return nil
}

// RequestEmailChange mails a confirmation link to the new address.
func (s *AccountService) RequestEmailChange(ctx context.Context, user *models.User, form forms.ChangeEmailForm) error {
	errs, err := form.Validate(ctx, s.users)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !errs.Has("password") && !user.VerifyPassword(form.Password) {
		errs.Add("password", forms.MsgInvalidCredential)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	token, err := s.signer.EmailChangeToken(user.ID, form.Email, auth.DefaultExpiration)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.notifier.SendEmailChange(ctx, user, form.Email, token)
}

// ChangeEmail applies a change_email token issued to user.
func (s *AccountService) ChangeEmail(ctx context.Context, user *models.User, token string) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "ChangeEmail")
	defer func() { observability.EndSpan(span, err) }()

	claims, err := s.signer.Parse(token, auth.ActionChangeEmail)
	if err != nil || claims.UserID != user.ID || claims.NewEmail == "" {
		middleware.RecordAccountEvent(string(auth.ActionChangeEmail), false)
		return models.NewInvalidTokenError()
	}
	taken, err := s.users.GetByEmail(ctx, claims.NewEmail)
	if err != nil {
		return err
	}
	if taken != nil {
		middleware.RecordAccountEvent(string(auth.ActionChangeEmail), false)
		return models.NewInvalidTokenError()
	}
	if _, err := s.consume(ctx, token, auth.ActionChangeEmail, user.ID); err != nil {
		return err
	}

	oldEmail := user.Email
	user.SetEmail(claims.NewEmail)
	if err := s.users.Update(ctx, user); err != nil {
		user.SetEmail(oldEmail)
		s.release(ctx, claims)
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			return models.NewInvalidTokenError()
		}
		return err
	}
	middleware.RecordAccountEvent(string(auth.ActionChangeEmail), true)
	return nil
}

// GetUser loads an account by ID.
func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByUsername returns a not-found error for unknown names.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// UpdateProfile saves the self-service profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, form forms.EditProfileForm) (*models.User, error) {
	if err := form.Validate(ctx).Err(); err != nil {
		return nil, err
	}
	form.Apply(user)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdminUpdateProfile lets an administrator edit every field of targetID.
func (s *AccountService) AdminUpdateProfile(ctx context.Context, targetID uint, form forms.EditProfileAdminForm) (*models.User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	errs, err := form.Validate(ctx, target, s.users, s.roles)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	form.Apply(target)
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, form.RoleID)
	if err != nil {
		return nil, err
	}
	target.Role = role
	return target, nil
}

// LastSeenInterval is the minimum gap between two last_seen writes for one account.
const LastSeenInterval = time.Minute

// Ping records activity for user at most once per LastSeenInterval, so the
// cached account survives consecutive requests. Failures are logged, not returned.
func (s *AccountService) Ping(ctx context.Context, user *models.User) {
	now := s.now()
	if now.Sub(user.LastSeen) < LastSeenInterval {
		return
	}
	user.Ping(now)
	if err := s.users.Touch(ctx, user.ID, now); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to update last_seen",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
}
