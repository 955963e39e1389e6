package server

import (
	"strconv"

	"guestpost/internal/catalog"
	"guestpost/internal/models"
	"guestpost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCatalogOptions handles GET /api/catalog/options
func (s *Server) GetCatalogOptions(c *fiber.Ctx) error {
	opts, err := catalog.Options()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return models.Respond(c, fiber.StatusOK, "", opts)
}

// GetCatalogWebsites handles GET /api/catalog/websites
func (s *Server) GetCatalogWebsites(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	var maxPrice float64
	if raw := c.Query("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("maxPrice must be a number"))
		}
		maxPrice = v
	}
	if maxPrice < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("maxPrice must not be negative"))
	}

	result, err := s.websites.Catalog(c.UserContext(), service.CatalogFilter{
		Category:           c.Query("category"),
		Country:            c.Query("country"),
		Language:           c.Query("language"),
		MaxPublishingPrice: maxPrice,
		Limit:              page.Limit,
		Offset:             page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", result)
}
