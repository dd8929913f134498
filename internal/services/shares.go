package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/docspace/backend/internal/models"
	"github.com/docspace/backend/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// shareTokenBytes gives 128 bits of entropy per token.
const shareTokenBytes = 16

// ShareRegistry issues and resolves time-limited public tokens. Expiry is
// checked lazily at resolution; tokens are never deleted on their own.
type ShareRegistry struct {
	DB          *gorm.DB
	Blobs       storage.BlobStore
	DefaultTTL  time.Duration
	URLValidity time.Duration
}

func NewShareRegistry(db *gorm.DB, blobs storage.BlobStore, defaultTTL, urlValidity time.Duration) *ShareRegistry {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	if urlValidity <= 0 {
		urlValidity = 15 * time.Minute
	}
	return &ShareRegistry{DB: db, Blobs: blobs, DefaultTTL: defaultTTL, URLValidity: urlValidity}
}

// CreateShare issues a fresh unguessable token for the file. Every call
// creates a new link; earlier links stay valid until their own expiry.
func (s *ShareRegistry) CreateShare(ctx context.Context, p Principal, fileID uuid.UUID, ttl time.Duration) (*models.ShareLink, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !CanShareFile(p, &file) {
		return nil, ErrAccessDenied
	}

	if ttl <= 0 {
		ttl = s.DefaultTTL
	}

	token, err := generateShareToken()
	if err != nil {
		return nil, err
	}

	link := models.ShareLink{
		Token:     token,
		FileID:    file.ID,
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := s.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}

	return &link, nil
}

// SharedFileView is the public projection of a shared file. It carries no
// owner identity and no internal file id.
type SharedFileView struct {
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	DownloadURL string    `json:"downloadUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Views       int64     `json:"views"`
}

// ResolveShare turns a token into the shared file's public view. Unknown
// tokens are ErrNotFound, expired ones ErrShareExpired — an expired token
// never yields file data. The view counter increment is best-effort; lost
// updates under concurrent resolution are acceptable.
func (s *ShareRegistry) ResolveShare(ctx context.Context, token string) (*SharedFileView, error) {
	var link models.ShareLink
	if err := s.DB.WithContext(ctx).First(&link, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if link.IsExpired(time.Now()) {
		return nil, ErrShareExpired
	}

	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", link.FileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	downloadURL, err := s.Blobs.PresignedGetURL(ctx, file.ObjectKey, s.URLValidity, file.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	s.DB.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", link.ID).
		UpdateColumn("views", gorm.Expr("views + 1"))

	return &SharedFileView{
		Filename:    file.OriginalName,
		Size:        file.Size,
		MimeType:    file.MimeType,
		DownloadURL: downloadURL,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		Views:       link.Views + 1,
	}, nil
}

func generateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
