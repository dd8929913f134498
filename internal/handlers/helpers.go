package handlers

import (
	"errors"
	"strings"

	"github.com/docspace/backend/internal/services"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError maps the service-layer failure taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAccessDenied):
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, notFoundMsg)
	case errors.Is(err, services.ErrShareExpired):
		return utils.Error(c, fiber.StatusGone, "link expired")
	case errors.Is(err, services.ErrUpstream):
		return utils.Error(c, fiber.StatusBadGateway, "storage backend unavailable")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
