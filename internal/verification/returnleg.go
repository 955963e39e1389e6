package verification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"guestpost/internal/models"
	"guestpost/internal/ownership"
)

// ReturnLeg is what the server's OAuth redirect carries back to the client.
// Error is set instead of the other fields when Google sign-in failed.
type ReturnLeg struct {
	WebsiteID uint
	Method    models.VerificationMethod
	Tokens    *ownership.Tokens
	Error     string
}

// ParseReturnLeg decodes the success or error redirect URL.
func ParseReturnLeg(rawURL string) (ReturnLeg, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ReturnLeg{}, fmt.Errorf("parse return url: %w", err)
	}
	q := u.Query()

	if msg := q.Get("error"); msg != "" {
		return ReturnLeg{Error: msg}, nil
	}

	id, err := strconv.ParseUint(q.Get("websiteId"), 10, 32)
	if err != nil || id == 0 {
		return ReturnLeg{}, errors.New("return url has no valid websiteId")
	}

	method := models.VerificationMethod(q.Get("method"))
	if !method.IsGoogle() {
		return ReturnLeg{}, fmt.Errorf("return url has unsupported method %q", method)
	}

	raw := q.Get("tokens")
	if raw == "" {
		return ReturnLeg{}, errors.New("return url has no tokens")
	}
	var tokens ownership.Tokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return ReturnLeg{}, fmt.Errorf("decode tokens: %w", err)
	}
	if tokens.AccessToken == "" {
		return ReturnLeg{}, errors.New("return url tokens have no access token")
	}

	return ReturnLeg{WebsiteID: uint(id), Method: method, Tokens: &tokens}, nil
}
