package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fractal-dashboard/config"
	"fractal-dashboard/middleware"
	"fractal-dashboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "test-webhook-secret"

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		DatabaseURL:         "sqlite::memory:",
		DiscordClientID:     "client-id",
		DiscordClientSecret: "client-secret",
		SessionSecret:       "session-secret",
		BaseURL:             "http://localhost:3000",
		WebhookSecret:       testWebhookSecret,
	}
}

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Fractal{},
		&models.FractalParticipant{},
		&models.VotingRound{},
		&models.Vote{},
		&models.Achievement{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// testEnv bundles the app under test with its database and session store.
type testEnv struct {
	App   *fiber.App
	DB    *gorm.DB
	Store *session.Store
}

// setupTestApp wires the full route surface against an in-memory database.
// It also registers a test-only login route so tests can obtain a session
// cookie without walking the OAuth flow.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := session.New(session.Config{KeyLookup: "cookie:fractal_session"})
	cfg := testConfig()

	achievements := NewAchievementService(db)
	authService := NewAuthService(db, store, cfg)
	fractalService := NewFractalService(db, achievements)
	webhookService := NewWebhookService(db, achievements)
	systemService := NewSystemService(db, cfg)

	app := fiber.New()

	app.Get("/auth/login", authService.Login)
	app.Get("/auth/callback", authService.Callback)
	app.Post("/auth/logout", authService.Logout)
	securedAuth := app.Group("/auth", middleware.RequireSession(store))
	securedAuth.Get("/session", authService.Session)
	securedAuth.Put("/wallet", authService.UpdateWallet)
	securedAuth.Get("/achievements", achievements.ListMine)

	secured := app.Group("/fractals", middleware.RequireSession(store))
	secured.Get("/", fractalService.ListFractals)
	secured.Post("/", fractalService.CreateFractal)
	secured.Get("/:id", fractalService.GetFractal)

	app.Post("/webhook", middleware.WebhookAuth(testWebhookSecret), webhookService.HandleEvent)

	app.Get("/health", systemService.Health)
	app.Post("/migrate", systemService.Migrate)

	app.Post("/test/login", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		sess.Set("discord_id", c.Query("discord_id"))
		if err := sess.Save(); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	return &testEnv{App: app, DB: db, Store: store}
}

// loginAs returns a session cookie for the given Discord id.
func (e *testEnv) loginAs(t *testing.T, discordID string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/test/login?discord_id="+discordID, nil)
	resp, err := e.App.Test(req)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "fractal_session" {
			return cookie.Name + "=" + cookie.Value
		}
	}
	t.Fatal("No session cookie issued")
	return ""
}

// createUser inserts a user row directly.
func createUser(t *testing.T, db *gorm.DB, discordID, username string) *models.User {
	t.Helper()

	user := models.User{
		DiscordID:   discordID,
		Username:    username,
		DisplayName: username,
		AvatarURL:   fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/abc.png", discordID),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", discordID, err)
	}
	return &user
}

// doJSON performs a JSON request against the app, optionally with a session
// cookie, and decodes the response body into out when it is non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path, cookie string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := e.App.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}

	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response from %s %s: %v", method, path, err)
		}
	}
	return resp
}

// postWebhook sends a webhook event with the given bearer token.
func (e *testEnv) postWebhook(t *testing.T, token, fractalID, event string, data interface{}) *http.Response {
	t.Helper()

	payload := map[string]interface{}{
		"fractalId": fractalID,
		"event":     event,
		"data":      data,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to encode webhook payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.App.Test(req)
	if err != nil {
		t.Fatalf("Webhook request failed: %v", err)
	}
	return resp
}
