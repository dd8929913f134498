package handlers

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/docspace/backend/internal/middleware"
	"github.com/docspace/backend/internal/services"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Catalog     *services.Catalog
	MaxFiles    int
	URLValidity time.Duration
}

func NewFilesHandler(catalog *services.Catalog, maxFiles int, urlValidity time.Duration) *FilesHandler {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	if urlValidity <= 0 {
		urlValidity = 15 * time.Minute
	}
	return &FilesHandler{Catalog: catalog, MaxFiles: maxFiles, URLValidity: urlValidity}
}

var sortFieldAliases = map[string]string{
	"createdAt":     "created_at",
	"created_at":    "created_at",
	"originalName":  "original_name",
	"original_name": "original_name",
	"size":          "size",
	"mimeType":      "mime_type",
	"mime_type":     "mime_type",
}

// Upload accepts a multipart batch (field "files[]", optional "folderId") and
// creates one catalog entry per part. The batch is processed in order; a
// storage failure aborts the request while parts already stored stay valid.
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "multipart form is required")
	}

	parts := form.File["files[]"]
	if len(parts) == 0 {
		parts = form.File["files"]
	}
	if len(parts) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no files uploaded")
	}
	if len(parts) > h.MaxFiles {
		return utils.Error(c, fiber.StatusBadRequest, "too many files in one request")
	}

	var folderID *uuid.UUID
	if raw := strings.TrimSpace(c.FormValue("folderId")); raw != "" {
		parsed, parseErr := parseUUID(raw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderId")
		}
		folderID = &parsed
	}

	created := make([]interface{}, 0, len(parts))
	for _, part := range parts {
		stream, openErr := part.Open()
		if openErr != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
		}

		filename := filepath.Base(strings.TrimSpace(part.Filename))
		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(filename))
		}

		file, createErr := h.Catalog.CreateFile(c.Context(), currentUser.ID, services.NewUpload{
			Reader:       stream,
			Size:         part.Size,
			OriginalName: filename,
			MimeType:     contentType,
			FolderID:     folderID,
		})
		stream.Close()
		if createErr != nil {
			return serviceError(c, createErr, "folder not found")
		}

		logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]interface{}{
			"file_id":   file.ID.String(),
			"file_name": file.OriginalName,
			"file_size": file.Size,
			"mime_type": file.MimeType,
		})
		created = append(created, file)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"files": created})
}

// List serves the paginated, sorted, searchable file listing. The folderId
// parameter understands the distinguished value "root" (files outside any
// folder); when absent the listing spans all folders.
func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p, err := utils.ParsePagination(c)
	if err != nil {
		ferr := err.(*fiber.Error)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	sortField, ok := sortFieldAliases[strings.TrimSpace(c.Query("sortBy", "createdAt"))]
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "unknown sort field")
	}
	sortDir := strings.ToLower(strings.TrimSpace(c.Query("order", "desc")))
	if sortDir != "asc" && sortDir != "desc" {
		return utils.Error(c, fiber.StatusBadRequest, "order must be asc or desc")
	}

	scope := services.FolderScope{Kind: services.ScopeAll}
	switch raw := strings.TrimSpace(c.Query("folderId")); raw {
	case "":
	case "root":
		scope.Kind = services.ScopeRoot
	default:
		folderID, parseErr := parseUUID(raw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderId")
		}
		scope = services.FolderScope{Kind: services.ScopeFolder, FolderID: folderID}
	}

	files, total, err := h.Catalog.ListFiles(c.Context(), services.ListFilesQuery{
		OwnerID:   currentUser.ID,
		Scope:     scope,
		Search:    c.Query("search"),
		SortField: sortField,
		SortDir:   sortDir,
		Page:      p.Page,
		PageSize:  p.Limit,
	})
	if err != nil {
		return serviceError(c, err, "not found")
	}

	return utils.Paginated(c, files, p.Page, p.Limit, total)
}

// Download answers with a redirect to a short-lived presigned blob URL.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	file, err := h.Catalog.GetFile(c.Context(), services.PrincipalForUser(currentUser), fileID)
	if err != nil {
		return serviceError(c, err, "file not found")
	}

	url, err := h.Catalog.Blobs.PresignedGetURL(c.Context(), file.ObjectKey, h.URLValidity, file.OriginalName)
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "storage backend unavailable")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_downloaded", map[string]interface{}{
		"file_id":   file.ID.String(),
		"file_name": file.OriginalName,
	})

	return c.Redirect(url, fiber.StatusFound)
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	if err := h.Catalog.DeleteFile(c.Context(), services.PrincipalForUser(currentUser), fileID); err != nil {
		return serviceError(c, err, "file not found")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]interface{}{
		"file_id": fileID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkDeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// BulkDelete fires the deletions concurrently and reports each outcome on
// its own; one failed item never aborts its siblings.
func (h *FilesHandler) BulkDelete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "ids are required")
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid file id: "+raw)
		}
		ids = append(ids, id)
	}

	outcomes := h.Catalog.DeleteFiles(c.Context(), services.PrincipalForUser(currentUser), ids)

	results := make([]bulkDeleteResult, len(outcomes))
	for i, outcome := range outcomes {
		results[i] = bulkDeleteResult{ID: outcome.FileID.String(), Deleted: outcome.Err == nil}
		if outcome.Err != nil {
			results[i].Error = outcome.Err.Error()
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"results": results})
}
