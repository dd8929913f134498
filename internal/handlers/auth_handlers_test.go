package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/docspace/backend/internal/models"
)

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("creates a user and normalizes the email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/register", map[string]any{
			"email":    "  NewUser@Example.COM ",
			"password": "supersecret",
		}, nil)
		assertStatus(t, resp, http.StatusCreated)
		resp.Body.Close()

		var user models.User
		if err := env.db.First(&user, "email = ?", "newuser@example.com").Error; err != nil {
			t.Fatalf("registered user not found: %v", err)
		}
		if user.Role != models.UserRoleUser {
			t.Fatalf("expected role %q, got %q", models.UserRoleUser, user.Role)
		}
		if user.PasswordHash == "supersecret" {
			t.Fatal("password must never be stored in the clear")
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/auth/register", strings.NewReader("{"), map[string]string{
			"Content-Type": "application/json",
		})
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid request body")
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/register", map[string]any{
			"email":    "not-an-email",
			"password": "supersecret",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid email format")
	})

	t.Run("rejects short password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/register", map[string]any{
			"email":    "short@example.com",
			"password": "tiny",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "password must be at least 8 characters")
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		createTestUser(t, env.db, "taken@example.com", "password123", models.UserRoleUser)

		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/register", map[string]any{
			"email":    "taken@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "user already exists")
	})
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "alice@example.com", "password123", models.UserRoleUser)

	t.Run("valid credentials set the session cookie", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "password123",
		}, nil)
		assertStatus(t, resp, http.StatusOK)

		var sessionCookie *http.Cookie
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "token" {
				sessionCookie = cookie
			}
		}
		if sessionCookie == nil {
			t.Fatal("expected a session cookie to be set")
		}
		if !sessionCookie.HttpOnly {
			t.Fatal("session cookie must be http-only")
		}
		resp.Body.Close()
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "alice@example.com",
			"password": "wrongpassword",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid email or password")
	})

	t.Run("unknown email answers exactly like a wrong password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid email or password")
	})

	t.Run("blocked account answers exactly like a wrong password", func(t *testing.T) {
		blocked, _ := createTestUser(t, env.db, "blocked@example.com", "password123", models.UserRoleUser)
		if err := env.db.Model(blocked).Update("is_blocked", true).Error; err != nil {
			t.Fatalf("failed blocking user: %v", err)
		}

		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "blocked@example.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid email or password")
	})
}

func TestGuestSession(t *testing.T) {
	env := setupTestEnv(t)

	firstResp := performJSONRequest(t, env.app, http.MethodPost, "/auth/guest", nil, nil)
	assertStatus(t, firstResp, http.StatusOK)
	first := envelopeData(t, decodeJSONMap(t, firstResp))

	secondResp := performJSONRequest(t, env.app, http.MethodPost, "/auth/guest", nil, nil)
	assertStatus(t, secondResp, http.StatusOK)
	second := envelopeData(t, decodeJSONMap(t, secondResp))

	firstUser, _ := first["user"].(map[string]any)
	secondUser, _ := second["user"].(map[string]any)
	if firstUser == nil || secondUser == nil {
		t.Fatalf("expected user objects, got %+v / %+v", first, second)
	}
	if firstUser["id"] == secondUser["id"] {
		t.Fatal("each guest session must get its own account")
	}
	if firstUser["role"] != string(models.UserRoleGuest) {
		t.Fatalf("expected guest role, got %v", firstUser["role"])
	}
}

func TestMe(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("returns the caller", func(t *testing.T) {
		user, token := createTestUser(t, env.db, "me@example.com", "password123", models.UserRoleUser)

		resp := performRequest(t, env.app, http.MethodGet, "/auth/me", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		body := decodeJSONMap(t, resp)

		data, _ := body["data"].(map[string]any)
		if data == nil || data["id"] != user.ID.String() {
			t.Fatalf("expected own user object, got %+v", body)
		}
	})

	t.Run("a blocked user can still see their session", func(t *testing.T) {
		blocked, token := createTestUser(t, env.db, "blockedme@example.com", "password123", models.UserRoleUser)
		if err := env.db.Model(blocked).Update("is_blocked", true).Error; err != nil {
			t.Fatalf("failed blocking user: %v", err)
		}

		resp := performRequest(t, env.app, http.MethodGet, "/auth/me", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		body := decodeJSONMap(t, resp)

		data, _ := body["data"].(map[string]any)
		if data == nil {
			t.Fatalf("expected user object, got %+v", body)
		}
		if data["isBlocked"] != true {
			t.Fatalf("expected isBlocked=true, got %v", data["isBlocked"])
		}
	})

	t.Run("blocked users hit a wall everywhere else", func(t *testing.T) {
		blocked, token := createTestUser(t, env.db, "walled@example.com", "password123", models.UserRoleUser)
		if err := env.db.Model(blocked).Update("is_blocked", true).Error; err != nil {
			t.Fatalf("failed blocking user: %v", err)
		}

		resp := performRequest(t, env.app, http.MethodGet, "/api/files", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "account blocked")
	})

	t.Run("requires a session", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/auth/me", nil, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	})
}

func TestLogout(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/logout", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var cleared *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" {
			cleared = cookie
		}
	}
	if cleared == nil {
		t.Fatal("expected the session cookie to be rewritten")
	}
	if cleared.Value != "" {
		t.Fatalf("expected an emptied cookie value, got %q", cleared.Value)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "rotate@example.com", "oldpassword", models.UserRoleUser)

	t.Run("rejects wrong current password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/auth/password", map[string]any{
			"currentPassword": "not-the-password",
			"newPassword":     "newpassword",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "current password is incorrect")
	})

	t.Run("rotates the password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/auth/password", map[string]any{
			"currentPassword": "oldpassword",
			"newPassword":     "newpassword",
		}, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		loginResp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "rotate@example.com",
			"password": "newpassword",
		}, nil)
		assertStatus(t, loginResp, http.StatusOK)
		loginResp.Body.Close()

		oldResp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "rotate@example.com",
			"password": "oldpassword",
		}, nil)
		assertStatus(t, oldResp, http.StatusUnauthorized)
		oldResp.Body.Close()
	})
}
