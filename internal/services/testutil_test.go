package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docspace/backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed opening in-memory sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.File{},
		&models.ShareLink{},
	)
	require.NoError(t, err, "failed automigrating models")

	return db
}

// fakeBlobStore records every stored object in memory and can be told to
// fail specific operations.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPut    bool
	failDelete bool
	failSign   bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("put rejected")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectKey] = data
	return nil
}

func (f *fakeBlobStore) Delete(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("delete rejected")
	}
	delete(f.objects, objectKey)
	return nil
}

func (f *fakeBlobStore) PresignedGetURL(_ context.Context, objectKey string, expiry time.Duration, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSign {
		return "", errors.New("presign rejected")
	}
	return fmt.Sprintf("https://blobs.test/%s?ttl=%d", objectKey, int(expiry.Seconds())), nil
}

func (f *fakeBlobStore) has(objectKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[objectKey]
	return ok
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error, "failed creating test user")
	return user
}

func mustPrincipal(user *models.User) Principal {
	return PrincipalForUser(user)
}

func seedFile(t *testing.T, catalog *Catalog, ownerID uuid.UUID, name string, folderID *uuid.UUID, content string) *models.File {
	t.Helper()

	file, err := catalog.CreateFile(context.Background(), ownerID, NewUpload{
		Reader:       bytesReader(content),
		Size:         int64(len(content)),
		OriginalName: name,
		MimeType:     "text/plain",
		FolderID:     folderID,
	})
	require.NoError(t, err, "failed seeding file %s", name)
	return file
}

func bytesReader(content string) io.Reader {
	return strings.NewReader(content)
}
