package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/auth"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/forms"
	"quill/internal/models"
	"quill/internal/seed"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret     = "test-secret-key-12345678901234567890123456789012"
	testAdminEmail = "admin@example.com"
	testPassword   = "correct horse battery staple"
)

type testEnv struct {
	srv    *Server
	app    *fiber.App
	db     *gorm.DB
	signer *auth.Signer
	mini   *miniredis.Miniredis
}

type envOption func(*config.Config)

func withFlags(raw string) envOption {
	return func(c *config.Config) { c.FeatureFlags = raw }
}

func testConfig(opts ...envOption) *config.Config {
	cfg := &config.Config{
		SecretKey:         testSecret,
		AdminEmail:        testAdminEmail,
		Port:              "0",
		Env:               "test",
		DBDriver:          "sqlite",
		FeatureFlags:      "markdown=on,registration=on",
		MailProvider:      "log",
		MailFrom:          "Quill Admin <quill@example.com>",
		MailSubjectPrefix: "[Quill]",
		BaseURL:           "http://localhost:8375",
		PostsPerPage:      20,
		AllowedOrigins:    "http://localhost:5173",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, seed.EnsureRoles(context.Background(), db))
	return db
}

// newTestEnv builds a server over a seeded in-memory database without Redis.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	return buildEnv(t, nil, opts...)
}

// newRedisTestEnv is newTestEnv backed by miniredis for caching and token ledgers.
func newRedisTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	env := buildEnv(t, rdb, opts...)
	env.mini = mr
	return env
}

func buildEnv(t *testing.T, rdb *redis.Client, opts ...envOption) *testEnv {
	t.Helper()
	cfg := testConfig(opts...)
	db := newTestDB(t)

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	signer, err := auth.NewSigner(cfg.SecretKey)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, signer: signer}
}

// register creates an account through the account service.
func (e *testEnv) register(t *testing.T, email, username string) *models.User {
	t.Helper()
	user, err := e.srv.accounts.Register(context.Background(), forms.RegistrationForm{
		Email:     email,
		Username:  username,
		Password:  testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	return user
}

// login returns a session token for email.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/login", fiber.Map{
		"email":    email,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

// do sends a JSON request and decodes the JSON response.
func (e *testEnv) do(t *testing.T, method, path string, payload any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp, body
}

// reload reads a user straight from the database.
func (e *testEnv) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.Preload("Role").First(&user, id).Error)
	return &user
}

func fieldErrors(t *testing.T, body map[string]any, field string) []any {
	t.Helper()
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, "response has no field errors: %v", body)
	msgs, _ := fields[field].([]any)
	return msgs
}
