package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page/limit query parameters. Absent parameters fall
// back to page 1 / limit 20; explicitly non-positive values are reported so
// handlers can reject them instead of silently clamping.
func ParsePagination(c *fiber.Ctx) (PaginationParams, error) {
	page, err := parsePositiveInt(c.Query("page"), 1)
	if err != nil {
		return PaginationParams{}, err
	}
	limit, err := parsePositiveInt(c.Query("limit"), 20)
	if err != nil {
		return PaginationParams{}, err
	}
	if limit > 100 {
		limit = 100
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func parsePositiveInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "page and limit must be positive integers")
	}
	return parsed, nil
}
