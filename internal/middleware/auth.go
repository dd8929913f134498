package middleware

import (
	"strings"

	"github.com/docspace/backend/internal/models"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

const currentUserKey = "currentUser"

type AuthMiddleware struct {
	DB *gorm.DB
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{DB: db}
}

func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     "http://localhost:5173,http://127.0.0.1:5173",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

// sessionToken reads the signed session token from the http-only cookie,
// falling back to an Authorization bearer header for non-browser clients.
func sessionToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(utils.SessionCookieName); cookie != "" {
		return cookie
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == authHeader {
		return ""
	}
	return token
}

func (a *AuthMiddleware) resolveUser(c *fiber.Ctx) (*models.User, error) {
	token := sessionToken(c)
	if token == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Warn("session_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid or expired session")
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		logger.Warn("session_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID,
		})
		return nil, fiber.NewError(fiber.StatusUnauthorized, "user not found")
	}

	return &user, nil
}

// RequireAuth resolves the caller and rejects blocked accounts outright.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	user, err := a.resolveUser(c)
	if err != nil {
		ferr := err.(*fiber.Error)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	if user.IsBlocked {
		logger.WarnWithUser(user.ID.String(), "blocked_user_rejected", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusForbidden, "account blocked")
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// RequireIdentity resolves the caller without the block check. The only
// route using it is the session status endpoint, so a blocked user can still
// see that their account is blocked.
func (a *AuthMiddleware) RequireIdentity(c *fiber.Ctx) error {
	user, err := a.resolveUser(c)
	if err != nil {
		ferr := err.(*fiber.Error)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

func AdminOnly(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if user.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}
	return c.Next()
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
