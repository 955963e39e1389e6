package server

import (
	"strings"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/middleware"
	"guestpost/internal/models"
	"guestpost/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	role, err := validation.ValidateSignupRole(req.Role)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	existing, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("User already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		return models.RespondWithAppError(c, err)
	}

	token, _, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Role, time.Now())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.Respond(c, fiber.StatusCreated, "Account created", authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, _, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Role, time.Now())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return models.Respond(c, fiber.StatusOK, "", authResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the token's jti until it expires.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	expiresAt, _ := c.Locals("tokenExpiresAt").(time.Time)

	if jti != "" && s.redis != nil {
		ttl := time.Until(expiresAt)
		if ttl <= 0 {
			ttl = middleware.TokenTTL
		}
		if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(jti), "1", ttl).Err(); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
	}

	return models.Respond(c, fiber.StatusOK, "Logged out", nil)
}
