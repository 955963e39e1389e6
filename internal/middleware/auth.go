package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guestpost/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token constants shared by issuer and verifier.
const (
	TokenIssuer   = "guestpost-api"
	TokenAudience = "guestpost-client"
	TokenTTL      = 7 * 24 * time.Hour
)

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	UserID    uint
	Role      models.Role
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 access token for the user.
func IssueToken(secret string, userID uint, role models.Role, now time.Time) (string, *TokenClaims, error) {
	if secret == "" {
		return "", nil, errors.New("JWT secret not configured")
	}

	tc := &TokenClaims{
		UserID:    userID,
		Role:      role,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(TokenTTL),
	}
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": string(role),
		"iss":  TokenIssuer,
		"aud":  TokenAudience,
		"exp":  tc.ExpiresAt.Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  tc.JTI,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, tc, nil
}

// ParseToken validates signature, issuer, audience and expiry and returns the claims.
func ParseToken(secret, raw string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	tc := &TokenClaims{UserID: uint(userID)}
	if role, ok := claims["role"].(string); ok {
		tc.Role = models.Role(role)
	}
	if jti, ok := claims["jti"].(string); ok {
		tc.JTI = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
