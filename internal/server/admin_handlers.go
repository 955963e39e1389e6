package server

import (
	"context"

	"guestpost/internal/models"
	"guestpost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListAdminWebsites handles GET /api/admin/websites?status=&stage=
func (s *Server) ListAdminWebsites(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	result, err := s.moderation.List(c.UserContext(), service.ModerationFilter{
		Status: models.WebsiteStatus(c.Query("status")),
		Stage:  c.Query("stage"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", result)
}

type moderationAction func(ctx context.Context, adminID, id uint) (*models.Website, error)

func (s *Server) moderate(c *fiber.Ctx, message string, act moderationAction) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	w, err := act(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, message, w)
}

// ReviewWebsite handles POST /api/admin/websites/:id/review
func (s *Server) ReviewWebsite(c *fiber.Ctx) error {
	return s.moderate(c, "Website under review", s.moderation.StartReview)
}

// ApproveWebsite handles POST /api/admin/websites/:id/approve
func (s *Server) ApproveWebsite(c *fiber.Ctx) error {
	return s.moderate(c, "Website approved", s.moderation.Approve)
}

// RejectWebsite handles POST /api/admin/websites/:id/reject
func (s *Server) RejectWebsite(c *fiber.Ctx) error {
	var req service.RejectInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.moderate(c, "Website rejected", func(ctx context.Context, adminID, id uint) (*models.Website, error) {
		return s.moderation.Reject(ctx, adminID, id, req)
	})
}

// PauseWebsite handles POST /api/admin/websites/:id/pause
func (s *Server) PauseWebsite(c *fiber.Ctx) error {
	return s.moderate(c, "Website paused", s.moderation.Pause)
}

// ResumeWebsite handles POST /api/admin/websites/:id/resume
func (s *Server) ResumeWebsite(c *fiber.Ctx) error {
	return s.moderate(c, "Website resumed", s.moderation.Resume)
}

// SetVerificationMethods handles PUT /api/admin/websites/:id/verification-methods
func (s *Server) SetVerificationMethods(c *fiber.Ctx) error {
	var req models.MethodFlags
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.moderate(c, "Verification methods updated", func(ctx context.Context, adminID, id uint) (*models.Website, error) {
		return s.moderation.SetMethodFlags(ctx, adminID, id, req)
	})
}

// DeleteWebsite handles DELETE /api/admin/websites/:id
func (s *Server) DeleteWebsite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.moderation.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Website deleted", nil)
}
