package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/docspace/backend/internal/middleware"
	"github.com/docspace/backend/internal/services"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type SharesHandler struct {
	Registry *services.ShareRegistry
	// PublicURL is the base used when building the user-facing share link.
	PublicURL string
}

func NewSharesHandler(registry *services.ShareRegistry, publicURL string) *SharesHandler {
	return &SharesHandler{Registry: registry, PublicURL: strings.TrimRight(publicURL, "/")}
}

type createShareRequest struct {
	ExpiresInDays int `json:"expiresInDays"`
}

func (h *SharesHandler) ShareFile(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req createShareRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.ExpiresInDays < 0 || req.ExpiresInDays > 365 {
		return utils.Error(c, fiber.StatusBadRequest, "expiresInDays must be between 1 and 365")
	}

	ttl := time.Duration(req.ExpiresInDays) * 24 * time.Hour

	link, err := h.Registry.CreateShare(c.Context(), services.PrincipalForUser(currentUser), fileID, ttl)
	if err != nil {
		return serviceError(c, err, "file not found")
	}

	logger.InfoWithUser(currentUser.ID.String(), "share_created", map[string]interface{}{
		"file_id":    fileID.String(),
		"share_id":   link.ID.String(),
		"expires_at": link.ExpiresAt,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"link":      fmt.Sprintf("%s/share/%s", h.PublicURL, link.Token),
		"token":     link.Token,
		"expiresAt": link.ExpiresAt,
	})
}

// Resolve serves a share token publicly, with no principal at all.
func (h *SharesHandler) Resolve(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return utils.Error(c, fiber.StatusBadRequest, "token is required")
	}

	view, err := h.Registry.ResolveShare(c.Context(), token)
	if err != nil {
		return serviceError(c, err, "link not found or invalid")
	}

	return utils.Success(c, fiber.StatusOK, view)
}
