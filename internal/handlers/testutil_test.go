package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docspace/backend/internal/middleware"
	"github.com/docspace/backend/internal/models"
	"github.com/docspace/backend/internal/services"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const testPublicURL = "http://localhost:8080"

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	blobs *memoryBlobStore
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.File{},
		&models.ShareLink{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	blobs := newMemoryBlobStore()
	catalog := services.NewCatalog(db, blobs)
	shareRegistry := services.NewShareRegistry(db, blobs, 7*24*time.Hour, 15*time.Minute)

	authHandler := NewAuthHandler(db)
	filesHandler := NewFilesHandler(catalog, 5, 15*time.Minute)
	foldersHandler := NewFoldersHandler(catalog)
	sharesHandler := NewSharesHandler(shareRegistry, testPublicURL)
	adminHandler := NewAdminHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	authRoutes := app.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/guest", authHandler.Guest)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireIdentity, authHandler.Me)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	app.Get("/share/:token", sharesHandler.Resolve)

	api := app.Group("/api", authMiddleware.RequireAuth)
	api.Post("/upload", filesHandler.Upload)
	api.Get("/files", filesHandler.List)
	api.Get("/files/:id/download", filesHandler.Download)
	api.Post("/files/:id/share", sharesHandler.ShareFile)
	api.Delete("/files/:id", filesHandler.Delete)
	api.Post("/files/bulk-delete", filesHandler.BulkDelete)

	api.Post("/folders", foldersHandler.Create)
	api.Get("/folders", foldersHandler.List)
	api.Get("/folders/:id", foldersHandler.Get)
	api.Delete("/folders/:id", foldersHandler.Delete)

	adminRoutes := api.Group("/admin", middleware.AdminOnly)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Patch("/users/:id", adminHandler.UpdateUser)
	adminRoutes.Get("/files", adminHandler.ListFiles)

	return &testEnv{app: app, db: db, blobs: blobs}
}

// memoryBlobStore keeps blobs in a map so handler tests exercise the full
// upload and delete paths without a running object store.
type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}}
}

func (m *memoryBlobStore) Put(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = data
	return nil
}

func (m *memoryBlobStore) Delete(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

func (m *memoryBlobStore) PresignedGetURL(_ context.Context, objectKey string, expiry time.Duration, _ string) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?ttl=%d", objectKey, int(expiry.Seconds())), nil
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func envelopeData(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	if success, _ := body["success"].(bool); !success {
		t.Fatalf("expected success=true, got %+v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %+v", body["data"])
	}
	return data
}

// uploadTestFile pushes one file through the multipart upload endpoint and
// returns the created file id.
func uploadTestFile(t *testing.T, env *testEnv, token, filename, content, folderID string) string {
	t.Helper()

	body, contentType := multipartUpload(t, filename, content, folderID)
	headers := authHeaders(token)
	headers["Content-Type"] = contentType

	resp := performRequest(t, env.app, http.MethodPost, "/api/upload", body, headers)
	assertStatus(t, resp, http.StatusCreated)

	data := envelopeData(t, decodeJSONMap(t, resp))
	files, ok := data["files"].([]any)
	if !ok || len(files) != 1 {
		t.Fatalf("expected one created file, got %+v", data["files"])
	}
	file, ok := files[0].(map[string]any)
	if !ok {
		t.Fatalf("expected file object, got %+v", files[0])
	}
	id, _ := file["id"].(string)
	if id == "" {
		t.Fatalf("created file has no id: %+v", file)
	}
	return id
}

func multipartUpload(t *testing.T, filename, content, folderID string) (io.Reader, string) {
	t.Helper()
	return multipartBody(t, map[string]string{"folderId": folderID}, map[string]string{filename: content})
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field %s: %v", key, err)
		}
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files[]", name)
		if err != nil {
			t.Fatalf("failed creating form file %s: %v", name, err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("failed writing form file %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}
