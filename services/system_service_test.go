package services

import (
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	env := setupTestApp(t)

	var body map[string]interface{}
	resp := env.doJSON(t, http.MethodGet, "/health", "", nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}

	envCheck, ok := body["environment"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected environment flags, got %v", body["environment"])
	}
	for _, flag := range []string{
		"hasDiscordClientId", "hasDiscordClientSecret", "hasBaseUrl",
		"hasSessionSecret", "hasDatabaseUrl", "hasWebhookSecret",
	} {
		if envCheck[flag] != true {
			t.Errorf("Expected %s to be true, got %v", flag, envCheck[flag])
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	env := setupTestApp(t)
	createUser(t, env.DB, "111", "alice")

	for i := 0; i < 2; i++ {
		var body map[string]interface{}
		resp := env.doJSON(t, http.MethodPost, "/migrate", "", nil, &body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Migration run %d failed with %d", i+1, resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("Migration run %d not successful: %v", i+1, body)
		}
		if body["userCount"] != float64(1) {
			t.Errorf("Expected userCount 1 on run %d, got %v", i+1, body["userCount"])
		}
	}
}
