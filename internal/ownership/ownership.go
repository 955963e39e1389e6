// Package ownership proves that a user controls a domain.
//
// Each verification method has its own checker: the HTML file checker fetches a
// challenge file from the site, the Google checker asks Search Console or
// Analytics which properties the signed-in account can see. OAuth round trips
// carry their context in a signed, single-use state token.
package ownership

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotVerified reports that a check ran but found no proof of ownership.
var ErrNotVerified = errors.New("ownership not verified")

// FilePrefix and ContentPrefix shape the HTML challenge.
const (
	FilePrefix    = "guestpost-verification-"
	ContentPrefix = "guestpost-site-verification: "
)

// Challenge is what a publisher uploads for html_file verification.
type Challenge struct {
	Token    string
	FileName string
	Content  string
}

// NewChallenge returns a fresh random challenge.
func NewChallenge() Challenge {
	token := uuid.NewString()
	return ChallengeFor(token)
}

// ChallengeFor rebuilds the challenge for a stored token.
func ChallengeFor(token string) Challenge {
	short := strings.ReplaceAll(token, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return Challenge{
		Token:    token,
		FileName: FilePrefix + short + ".html",
		Content:  ContentPrefix + token,
	}
}

// Tokens is the Google token bundle handed back to the client after the OAuth redirect.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
}

// Result describes a successful check.
type Result struct {
	AccountEmail string
}

func notVerified(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotVerified, fmt.Sprintf(format, args...))
}
