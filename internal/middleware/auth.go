package middleware

import (
	"context"
	"log/slog"
	"strings"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie carrying the session token for browser clients.
const SessionCookie = "session"

// IdentityLoader resolves a session token to its account. It returns a nil
// user and nil error when the token is unknown, expired or revoked.
type IdentityLoader func(ctx context.Context, token string) (*models.User, error)

// SessionToken extracts the bearer token, falling back to the session cookie.
func SessionToken(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(SessionCookie)
}

// LoadIdentity stores the acting identity in c.Locals for every request.
// Requests without a usable session run as models.AnonymousUser.
func LoadIdentity(load IdentityLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalIdentity, models.Identity(models.AnonymousUser{}))

		token := SessionToken(c)
		if token == "" {
			return c.Next()
		}

		user, err := load(c.UserContext(), token)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "failed to resolve session", slog.String("error", err.Error()))
			return c.Next()
		}
		if user == nil {
			return c.Next()
		}

		c.Locals(LocalIdentity, models.Identity(user))
		c.Locals(LocalUserID, user.ID)
		c.SetUserContext(WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// CurrentIdentity returns the identity loaded for this request.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	if id, ok := c.Locals(LocalIdentity).(models.Identity); ok && id != nil {
		return id
	}
	return models.AnonymousUser{}
}

// CurrentUser returns the authenticated account, if any.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := CurrentIdentity(c).(*models.User)
	return user, ok && user != nil
}

// LoginRequired rejects anonymous requests with 401.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentIdentity(c).IsAuthenticated() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		return c.Next()
	}
}

// PermissionRequired rejects identities lacking every bit of p with 403.
func PermissionRequired(p models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentIdentity(c).Can(p) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient permissions"))
		}
		return c.Next()
	}
}

// AdminRequired is PermissionRequired(models.PermAdminister).
func AdminRequired() fiber.Handler {
	return PermissionRequired(models.PermAdminister)
}
