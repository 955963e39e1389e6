package server

import (
	"guestpost/internal/models"
	"guestpost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListMyWebsites handles GET /api/websites?status=
func (s *Server) ListMyWebsites(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	result, err := s.websites.ListMine(c.UserContext(), currentUserID(c),
		models.WebsiteStatus(c.Query("status")), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", result)
}

// AddWebsite handles POST /api/websites. An existing listing for the same
// domain is returned with existed=true instead of creating a duplicate.
func (s *Server) AddWebsite(c *fiber.Ctx) error {
	var req service.AddWebsiteInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.websites.AddWebsite(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	status := fiber.StatusCreated
	message := "Website added"
	if res.Existed {
		status = fiber.StatusOK
		message = "Website already added"
	}
	return c.Status(status).JSON(models.Envelope{
		OK:       true,
		Message:  message,
		Data:     res.Website,
		Existed:  res.Existed,
		NextStep: res.NextStep,
	})
}

// GetWebsite handles GET /api/websites/:id
func (s *Server) GetWebsite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	w, err := s.websites.GetWebsite(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", w)
}

// UpdateWebsite handles PUT /api/websites/:id
func (s *Server) UpdateWebsite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdateWebsiteInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	w, err := s.websites.UpdateWebsite(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "Website saved"
	if w.NeedsReModeration && w.Status == models.WebsiteStatusSubmitted {
		message = "Website saved and sent back for moderation"
	}
	return models.Respond(c, fiber.StatusOK, message, w)
}
