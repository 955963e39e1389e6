package server

import (
	"guestpost/internal/models"
	"guestpost/internal/service"

	"github.com/gofiber/fiber/v2"
)

// InitiateVerification handles POST /api/websites/:id/verification/initiate
func (s *Server) InitiateVerification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.InitiateInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.verification.Initiate(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "", res)
}

// VerifyWebsite handles POST /api/websites/:id/verification/verify
func (s *Server) VerifyWebsite(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.VerifyInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	res, err := s.verification.Verify(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "Ownership verified"
	switch {
	case res.OwnershipTransferred:
		message = "Ownership verified and transferred to your account"
	case !res.Verified:
		message = "Request submitted for manual review"
	}
	return models.Respond(c, fiber.StatusOK, message, res)
}

// GoogleOAuthCallback handles GET /api/oauth/google/callback and redirects
// the browser back to the frontend with the outcome.
func (s *Server) GoogleOAuthCallback(c *fiber.Ctx) error {
	target := s.verification.HandleOAuthCallback(c.UserContext(), c.Query("code"), c.Query("state"), c.Query("error"))
	return c.Redirect(target, fiber.StatusFound)
}
