package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docspace/backend/internal/models"
	"github.com/docspace/backend/internal/storage"
	"github.com/docspace/backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Catalog owns files and folders: ownership and hierarchy invariants,
// scoped listing, and cascading deletion. Blob content lives behind the
// injected BlobStore gateway.
type Catalog struct {
	DB       *gorm.DB
	Blobs    storage.BlobStore
	validate *validator.Validate
}

func NewCatalog(db *gorm.DB, blobs storage.BlobStore) *Catalog {
	return &Catalog{
		DB:       db,
		Blobs:    blobs,
		validate: validator.New(),
	}
}

// FolderScopeKind selects how a listing is restricted by folder.
type FolderScopeKind string

const (
	ScopeAll    FolderScopeKind = "all"
	ScopeRoot   FolderScopeKind = "root"
	ScopeFolder FolderScopeKind = "folder"
)

type FolderScope struct {
	Kind     FolderScopeKind
	FolderID uuid.UUID
}

// ListFilesQuery enumerates every recognized filter axis of a file listing.
// All axes are validated before any SQL is built.
type ListFilesQuery struct {
	OwnerID   uuid.UUID `validate:"required"`
	Scope     FolderScope
	Search    string
	SortField string `validate:"oneof=created_at original_name size mime_type"`
	SortDir   string `validate:"oneof=asc desc"`
	Page      int    `validate:"min=1"`
	PageSize  int    `validate:"min=1,max=100"`
}

// ListFiles returns one page of the owner's files plus the total match count.
// The search term matches case-insensitively against the original filename.
func (s *Catalog) ListFiles(ctx context.Context, q ListFilesQuery) ([]models.File, int64, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	switch q.Scope.Kind {
	case ScopeAll, ScopeRoot:
	case ScopeFolder:
		if q.Scope.FolderID == uuid.Nil {
			return nil, 0, fmt.Errorf("%w: folder scope requires a folder id", ErrInvalidArgument)
		}
	default:
		return nil, 0, fmt.Errorf("%w: unknown folder scope %q", ErrInvalidArgument, q.Scope.Kind)
	}

	query := s.DB.WithContext(ctx).Model(&models.File{}).Where("owner_id = ?", q.OwnerID)

	switch q.Scope.Kind {
	case ScopeRoot:
		query = query.Where("folder_id IS NULL")
	case ScopeFolder:
		query = query.Where("folder_id = ?", q.Scope.FolderID)
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		query = query.Where("LOWER(original_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []models.File
	err := query.
		Order(fmt.Sprintf("%s %s", q.SortField, strings.ToUpper(q.SortDir))).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&files).Error
	if err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// NewUpload describes one incoming blob destined for the catalog.
type NewUpload struct {
	Reader       io.Reader
	Size         int64
	OriginalName string
	MimeType     string
	FolderID     *uuid.UUID
}

// CreateFile stores the blob first and only then persists metadata, so a
// failed store write never leaves an orphan row. A failed row insert triggers
// a best-effort blob cleanup.
func (s *Catalog) CreateFile(ctx context.Context, ownerID uuid.UUID, upload NewUpload) (*models.File, error) {
	name := strings.TrimSpace(upload.OriginalName)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidArgument)
	}

	if upload.FolderID != nil {
		if err := s.requireOwnedFolder(ctx, ownerID, *upload.FolderID); err != nil {
			return nil, err
		}
	}

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	objectKey := fmt.Sprintf("%s/%s/%s", ownerID.String(), uuid.New().String(), name)
	if err := s.Blobs.Put(ctx, objectKey, upload.Reader, upload.Size, mimeType); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	file := models.File{
		ObjectKey:    objectKey,
		OriginalName: name,
		Size:         upload.Size,
		MimeType:     mimeType,
		OwnerID:      ownerID,
		FolderID:     upload.FolderID,
	}

	if err := s.DB.WithContext(ctx).Create(&file).Error; err != nil {
		if cleanupErr := s.Blobs.Delete(ctx, objectKey); cleanupErr != nil {
			logger.Error("blob_cleanup_failed", cleanupErr, map[string]interface{}{
				"object_key": objectKey,
			})
		}
		return nil, err
	}

	return &file, nil
}

// GetFile loads a file the principal is allowed to manage.
func (s *Catalog) GetFile(ctx context.Context, p Principal, fileID uuid.UUID) (*models.File, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !CanManageFile(p, &file) {
		return nil, ErrAccessDenied
	}
	return &file, nil
}

// DeleteFile removes a file's blob and then its metadata. The blob goes
// first: a failed store delete keeps the row intact and reports an upstream
// failure so the caller can retry. Deleting an already-deleted id returns
// ErrNotFound.
func (s *Catalog) DeleteFile(ctx context.Context, p Principal, fileID uuid.UUID) error {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !CanManageFile(p, &file) {
		return ErrAccessDenied
	}

	return s.deleteFileRow(ctx, &file)
}

func (s *Catalog) deleteFileRow(ctx context.Context, file *models.File) error {
	if err := s.Blobs.Delete(ctx, file.ObjectKey); err != nil {
		return fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	if err := s.DB.WithContext(ctx).Where("file_id = ?", file.ID).Delete(&models.ShareLink{}).Error; err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Delete(&models.File{}, "id = ?", file.ID).Error
}

// FileDeleteResult is the outcome of one item of a bulk deletion.
type FileDeleteResult struct {
	FileID uuid.UUID
	Err    error
}

// DeleteFiles issues the deletions concurrently; each item succeeds or fails
// on its own and a failure never rolls back or aborts its siblings.
func (s *Catalog) DeleteFiles(ctx context.Context, p Principal, fileIDs []uuid.UUID) []FileDeleteResult {
	results := make([]FileDeleteResult, len(fileIDs))

	var wg sync.WaitGroup
	for i, id := range fileIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			results[i] = FileDeleteResult{FileID: id, Err: s.DeleteFile(ctx, p, id)}
		}(i, id)
	}
	wg.Wait()

	return results
}

// CreateFolder creates a folder for the owner. A parent, when given, must
// exist and belong to the same owner.
func (s *Catalog) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidArgument)
	}

	if parentID != nil {
		if err := s.requireOwnedFolder(ctx, ownerID, *parentID); err != nil {
			return nil, err
		}
	}

	folder := models.Folder{
		Name:     name,
		OwnerID:  ownerID,
		ParentID: parentID,
	}

	if err := s.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, err
	}

	return &folder, nil
}

// ListFolders returns the owner's folders under the given parent; a nil
// parent means the root level.
func (s *Catalog) ListFolders(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	query := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var folders []models.Folder
	if err := query.Order("name ASC").Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

// GetFolder loads a folder with its parent preloaded for breadcrumbs.
func (s *Catalog) GetFolder(ctx context.Context, p Principal, folderID uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).Preload("Parent").First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !CanManageFolder(p, &folder) {
		return nil, ErrAccessDenied
	}

	return &folder, nil
}

// DeleteFolder cascades over the whole subtree: every contained file (blob,
// share links, row) and every nested subfolder is removed before the folder
// row itself. Nothing is ever orphaned. A blob failure stops the cascade and
// leaves the remaining rows intact for a retry.
func (s *Catalog) DeleteFolder(ctx context.Context, p Principal, folderID uuid.UUID) error {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !CanManageFolder(p, &folder) {
		return ErrAccessDenied
	}

	return s.deleteFolderRecursive(ctx, folder.ID)
}

func (s *Catalog) deleteFolderRecursive(ctx context.Context, folderID uuid.UUID) error {
	var subfolders []models.Folder
	if err := s.DB.WithContext(ctx).Where("parent_id = ?", folderID).Find(&subfolders).Error; err != nil {
		return err
	}
	for _, sub := range subfolders {
		if err := s.deleteFolderRecursive(ctx, sub.ID); err != nil {
			return err
		}
	}

	var files []models.File
	if err := s.DB.WithContext(ctx).Where("folder_id = ?", folderID).Find(&files).Error; err != nil {
		return err
	}
	for i := range files {
		if err := s.deleteFileRow(ctx, &files[i]); err != nil {
			return err
		}
	}

	return s.DB.WithContext(ctx).Delete(&models.Folder{}, "id = ?", folderID).Error
}

// requireOwnedFolder enforces the hierarchy invariant: a referenced folder
// must exist and belong to the same owner.
func (s *Catalog) requireOwnedFolder(ctx context.Context, ownerID, folderID uuid.UUID) error {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if folder.OwnerID != ownerID {
		return ErrAccessDenied
	}
	return nil
}
