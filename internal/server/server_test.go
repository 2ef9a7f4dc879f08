package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"discourse/internal/config"
	"discourse/internal/database"
	"discourse/internal/index"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{JWTSecret: "test-secret", Env: "test"}
	srv := NewServerWithDeps(cfg, db, index.NewWithClient(rdb))

	app := fiber.New()
	srv.SetupRoutes(app)
	return app
}

func jsonRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func signupUser(t *testing.T, app *fiber.App) (token string, userID uint) {
	t.Helper()
	resp, body := jsonRequest(t, app, fiber.MethodPost, "/api/auth/signup", "", fiber.Map{
		"name":     gofakeit.Name(),
		"mobile":   gofakeit.DigitN(10),
		"email":    gofakeit.DigitN(8) + gofakeit.Email(),
		"password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	token = body["token"].(string)
	user := body["user"].(map[string]any)
	return token, uint(user["id"].(float64))
}

func TestAuthRequired_NoToken(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := jsonRequest(t, app, fiber.MethodGet, "/api/discussions/me", "", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/likes", "garbage-token", fiber.Map{})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSignupAndLogin(t *testing.T) {
	app := setupTestApp(t)

	email := gofakeit.DigitN(8) + gofakeit.Email()
	signup := fiber.Map{
		"name":     "Test Person",
		"mobile":   gofakeit.DigitN(10),
		"email":    email,
		"password": "s3cret-pass",
	}

	resp, body := jsonRequest(t, app, fiber.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	// Duplicate email is a conflict.
	signup["mobile"] = gofakeit.DigitN(10)
	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    email,
		"password": "wrong-pass",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = jsonRequest(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestDiscussionEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token, _ := signupUser(t, app)
	otherToken, _ := signupUser(t, app)

	resp, body := jsonRequest(t, app, fiber.MethodPost, "/api/discussions", token, fiber.Map{
		"text":     "first discussion",
		"hashtags": "#go #testing",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	discussionID := uint(body["id"].(float64))

	resp, body = jsonRequest(t, app, fiber.MethodGet, "/api/discussions/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	// Someone else cannot edit it.
	resp, _ = jsonRequest(t, app, fiber.MethodPut,
		fmt.Sprintf("/api/discussions/%d", discussionID), otherToken, fiber.Map{
			"text": "hijacked",
		})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = jsonRequest(t, app, fiber.MethodGet, "/api/search?query=go", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = jsonRequest(t, app, fiber.MethodGet, "/api/search", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodDelete,
		fmt.Sprintf("/api/discussions/%d", discussionID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodGet,
		fmt.Sprintf("/api/discussions/%d", discussionID), token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLikeEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token, _ := signupUser(t, app)

	resp, body := jsonRequest(t, app, fiber.MethodPost, "/api/discussions", token, fiber.Map{
		"text": "likeable",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	discussionID := uint(body["id"].(float64))

	like := fiber.Map{"entity_type": "discussion", "entity_id": discussionID}
	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/likes", token, like)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/likes", token, like)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/likes", token, fiber.Map{
		"entity_type": "discussion", "entity_id": 9999,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost, "/api/likes", token, fiber.Map{
		"entity_type": "post", "entity_id": discussionID,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFollowEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token, userID := signupUser(t, app)
	_, otherID := signupUser(t, app)

	resp, _ := jsonRequest(t, app, fiber.MethodPost,
		fmt.Sprintf("/api/users/%d/follow", userID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost,
		fmt.Sprintf("/api/users/%d/follow", otherID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodPost,
		fmt.Sprintf("/api/users/%d/follow", otherID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := jsonRequest(t, app, fiber.MethodGet,
		fmt.Sprintf("/api/users/%d/followers", otherID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = jsonRequest(t, app, fiber.MethodDelete,
		fmt.Sprintf("/api/users/%d/follow", otherID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodDelete,
		fmt.Sprintf("/api/users/%d/follow", otherID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCommentEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token, _ := signupUser(t, app)

	resp, body := jsonRequest(t, app, fiber.MethodPost, "/api/discussions", token, fiber.Map{
		"text": "discuss me",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	discussionID := uint(body["id"].(float64))

	resp, body = jsonRequest(t, app, fiber.MethodPost,
		fmt.Sprintf("/api/discussions/%d/comments", discussionID), token, fiber.Map{
			"text": "a comment",
		})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	commentID := uint(body["id"].(float64))

	resp, _ = jsonRequest(t, app, fiber.MethodPost,
		"/api/discussions/9999/comments", token, fiber.Map{"text": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = jsonRequest(t, app, fiber.MethodGet,
		fmt.Sprintf("/api/discussions/%d/comments", discussionID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = jsonRequest(t, app, fiber.MethodPut,
		fmt.Sprintf("/api/comments/%d", commentID), token, fiber.Map{"text": "edited"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = jsonRequest(t, app, fiber.MethodDelete,
		fmt.Sprintf("/api/comments/%d", commentID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
