package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleUser(perms models.Permission) *models.User {
	return &models.User{ID: 7, Username: "john", Role: &models.Role{Permissions: perms}}
}

func stubLoader(users map[string]*models.User) IdentityLoader {
	return func(_ context.Context, token string) (*models.User, error) {
		if token == "broken" {
			return nil, errors.New("store down")
		}
		return users[token], nil
	}
}

func TestLoadIdentity(t *testing.T) {
	users := map[string]*models.User{"good": roleUser(0x07)}

	app := fiber.New()
	app.Use(LoadIdentity(stubLoader(users)))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(fiber.Map{"authenticated": false})
		}
		return c.JSON(fiber.Map{"authenticated": true, "id": user.ID, "local": c.Locals(LocalUserID)})
	})

	tests := []struct {
		name          string
		setup         func(r *http.Request)
		authenticated bool
	}{
		{name: "no token", setup: func(*http.Request) {}},
		{name: "bearer token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, authenticated: true},
		{name: "session cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"}) }, authenticated: true},
		{name: "unknown token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
		{name: "malformed header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }},
		{name: "loader error degrades to anonymous", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer broken") }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.authenticated, body["authenticated"])
			if tt.authenticated {
				assert.Equal(t, float64(7), body["id"])
				assert.Equal(t, float64(7), body["local"])
			}
		})
	}
}

func TestGuards(t *testing.T) {
	users := map[string]*models.User{
		"user":      roleUser(0x07),
		"moderator": roleUser(0x0f),
		"admin":     roleUser(0xff),
	}

	app := fiber.New()
	app.Use(LoadIdentity(stubLoader(users)))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/login", LoginRequired(), ok)
	app.Get("/moderate", LoginRequired(), PermissionRequired(models.PermModerateComments), ok)
	app.Get("/admin", LoginRequired(), AdminRequired(), ok)

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{"/login", "", http.StatusUnauthorized},
		{"/login", "user", http.StatusOK},
		{"/moderate", "", http.StatusUnauthorized},
		{"/moderate", "user", http.StatusForbidden},
		{"/moderate", "moderator", http.StatusOK},
		{"/admin", "moderator", http.StatusForbidden},
		{"/admin", "admin", http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path+"/"+tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCurrentIdentity_DefaultsToAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, anon := CurrentIdentity(c).(models.AnonymousUser)
		return c.JSON(fiber.Map{"anonymous": anon})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["anonymous"])
}
