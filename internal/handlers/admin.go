package handlers

import (
	"strings"

	"github.com/docspace/backend/internal/middleware"
	"github.com/docspace/backend/internal/models"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminHandler serves the admin-only user and file management surface.
type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p, err := utils.ParsePagination(c)
	if err != nil {
		ferr := err.(*fiber.Error)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	query := h.DB.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

type updateUserRequest struct {
	IsBlocked *bool `json:"isBlocked"`
	IsAdmin   *bool `json:"isAdmin"`
}

// UpdateUser toggles a user's block status and admin role.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.IsBlocked == nil && req.IsAdmin == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}
	if user.ID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot modify your own account")
	}

	updates := map[string]interface{}{}
	if req.IsBlocked != nil {
		updates["is_blocked"] = *req.IsBlocked
	}
	if req.IsAdmin != nil {
		// Guests never gain roles; only registered accounts are promotable.
		if user.Role == models.UserRoleGuest {
			return utils.Error(c, fiber.StatusBadRequest, "guest accounts cannot change role")
		}
		if *req.IsAdmin {
			updates["role"] = models.UserRoleAdmin
		} else {
			updates["role"] = models.UserRoleUser
		}
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}

	if err := h.DB.First(&user, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reloading user")
	}

	logger.InfoWithUser(currentUser.ID.String(), "admin_user_updated", map[string]interface{}{
		"target_user_id": user.ID.String(),
		"is_blocked":     user.IsBlocked,
		"role":           string(user.Role),
	})

	return utils.Success(c, fiber.StatusOK, user)
}

// ListFiles returns every file in the system with its owner preloaded.
func (h *AdminHandler) ListFiles(c *fiber.Ctx) error {
	p, err := utils.ParsePagination(c)
	if err != nil {
		ferr := err.(*fiber.Error)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	query := h.DB.Model(&models.File{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting files")
	}

	var files []models.File
	if err := utils.ApplyPagination(query.Preload("Owner").Order("created_at DESC"), p).Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	return utils.Paginated(c, files, p.Page, p.Limit, total)
}
