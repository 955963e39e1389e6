package ownership

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateAudience = "guestpost-oauth-state"

var (
	// ErrInvalidState is returned for tampered, expired or malformed state.
	ErrInvalidState = errors.New("invalid OAuth state")
	// ErrStateReplayed is returned when a state's nonce was already consumed.
	ErrStateReplayed = errors.New("OAuth state already used")
)

// OAuthState is the context threaded through the Google redirect.
type OAuthState struct {
	WebsiteID uint
	UserID    uint
	Method    models.VerificationMethod
	Nonce     string
}

// StateSigner issues and consumes signed single-use OAuth state tokens.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner returns a signer using secret for HS256.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = cache.OAuthStateTTL
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a state for the pending verification and registers its nonce.
func (s *StateSigner) Issue(ctx context.Context, websiteID, userID uint, method models.VerificationMethod) (string, error) {
	nonce := uuid.NewString()
	now := s.now()

	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"wid":   strconv.FormatUint(uint64(websiteID), 10),
		"mth":   string(method),
		"nonce": nonce,
		"aud":   stateAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}

	if err := cache.StoreOnce(ctx, cache.OAuthStateKey(nonce), strconv.FormatUint(uint64(userID), 10), s.ttl); err != nil {
		return "", fmt.Errorf("store state nonce: %w", err)
	}
	return signed, nil
}

// Consume validates raw and burns its nonce. A second call with the same state fails.
func (s *StateSigner) Consume(ctx context.Context, raw string) (*OAuthState, error) {
	st, err := s.Parse(raw)
	if err != nil {
		return nil, err
	}

	owner, ok, err := cache.TakeOnce(ctx, cache.OAuthStateKey(st.Nonce))
	if err != nil {
		return nil, fmt.Errorf("consume state nonce: %w", err)
	}
	if !ok {
		return nil, ErrStateReplayed
	}
	if owner != strconv.FormatUint(uint64(st.UserID), 10) {
		return nil, ErrInvalidState
	}
	return st, nil
}

// Parse validates the signature and claims without touching the nonce.
func (s *StateSigner) Parse(raw string) (*OAuthState, error) {
	token, err := jwt.Parse(raw, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidState
	}

	userID, err1 := parseUintClaim(claims, "sub")
	websiteID, err2 := parseUintClaim(claims, "wid")
	method, _ := claims["mth"].(string)
	nonce, _ := claims["nonce"].(string)
	if err1 != nil || err2 != nil || nonce == "" || !models.VerificationMethod(method).IsGoogle() {
		return nil, ErrInvalidState
	}

	return &OAuthState{
		WebsiteID: websiteID,
		UserID:    userID,
		Method:    models.VerificationMethod(method),
		Nonce:     nonce,
	}, nil
}

func parseUintClaim(claims jwt.MapClaims, key string) (uint, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(v), nil
}
