package server

import (
	"strings"
	"time"

	"quill/internal/featureflags"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.Registration, 0) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Registration is closed."))
	}

	var form forms.RegistrationForm
	if err := bind(c, &form); err != nil {
		return nil
	}

	user, err := s.accounts.Register(c.UserContext(), form)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "A confirmation email has been sent to you by email.",
		"user":     user,
		"redirect": "/auth/login",
	})
}

// Login handles POST /auth/login. The session token is returned in the body
// and as an HttpOnly cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := bind(c, &form); err != nil {
		return nil
	}

	session, err := s.accounts.Authenticate(c.UserContext(), form)
	if err != nil {
		return models.Respond(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
		"redirect":   safeNext(c.Query("next")),
	})
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// Logout handles POST /auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if token := middleware.SessionToken(c); token != "" {
		if err := s.accounts.Logout(c.UserContext(), token); err != nil {
			return models.Respond(c, err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"message":  "You have been logged out.",
		"redirect": "/",
	})
}

// Confirm handles GET /auth/confirm/:token
func (s *Server) Confirm(c *fiber.Ctx) error {
	if err := s.accounts.Confirm(c.UserContext(), mustUser(c), c.Params("token")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "You have confirmed your account. Thanks!",
		"redirect": "/",
	})
}

// ResendConfirmation handles POST /auth/confirm
func (s *Server) ResendConfirmation(c *fiber.Ctx) error {
	if err := s.accounts.ResendConfirmation(c.UserContext(), mustUser(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "A new confirmation email has been sent to you by email.",
	})
}

// ChangePassword handles POST /auth/change-password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var form forms.ChangePasswordForm
	if err := bind(c, &form); err != nil {
		return nil
	}
	if err := s.accounts.ChangePassword(c.UserContext(), mustUser(c), form); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Your password has been updated.",
		"redirect": "/",
	})
}

// RequestPasswordReset handles POST /auth/reset. The response is the same
// whether or not the address belongs to an account.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var form forms.PasswordResetRequestForm
	if err := bind(c, &form); err != nil {
		return nil
	}
	if err := s.accounts.RequestPasswordReset(c.UserContext(), form); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "An email with instructions to reset your password has been sent to you.",
		"redirect": "/auth/login",
	})
}

// ResetPassword handles POST /auth/reset/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var form forms.PasswordResetForm
	if err := bind(c, &form); err != nil {
		return nil
	}
	if err := s.accounts.ResetPassword(c.UserContext(), c.Params("token"), form); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Your password has been updated.",
		"redirect": "/auth/login",
	})
}

// RequestEmailChange handles POST /auth/change-email
func (s *Server) RequestEmailChange(c *fiber.Ctx) error {
	var form forms.ChangeEmailForm
	if err := bind(c, &form); err != nil {
		return nil
	}
	if err := s.accounts.RequestEmailChange(c.UserContext(), mustUser(c), form); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "An email with instructions to confirm your new email address has been sent to you.",
		"redirect": "/",
	})
}

// ChangeEmail handles GET /auth/change-email/:token
func (s *Server) ChangeEmail(c *fiber.Ctx) error {
	user := mustUser(c)
	if err := s.accounts.ChangeEmail(c.UserContext(), user, c.Params("token")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Your email address has been updated.",
		"user":     user,
		"redirect": "/",
	})
}
