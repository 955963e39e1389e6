package ownership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"guestpost/internal/models"
	"guestpost/internal/observability"
	"guestpost/internal/validation"

	"github.com/coreos/go-oidc"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

// Google endpoints. Overridable for tests through GoogleConfig.
const (
	GoogleIssuer          = "https://accounts.google.com"
	GoogleAuthURL         = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL        = "https://oauth2.googleapis.com/token"
	GoogleJWKSURL         = "https://www.googleapis.com/oauth2/v3/certs"
	SearchConsoleBaseURL  = "https://www.googleapis.com/webmasters/v3"
	AnalyticsAdminBaseURL = "https://analyticsadmin.googleapis.com/v1beta"
)

const (
	scopeSearchConsole = "https://www.googleapis.com/auth/webmasters.readonly"
	scopeAnalytics     = "https://www.googleapis.com/auth/analytics.readonly"
)

// GoogleConfig configures the Google checker.
type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AuthURL       string
	TokenURL      string
	SearchConsole string
	Analytics     string
	JWKSURL       string
}

// GoogleChecker verifies ownership through Search Console and Analytics.
type GoogleChecker struct {
	oauth         *oauth2.Config
	searchConsole string
	analytics     string
	verifier      *oidc.IDTokenVerifier
}

// NewGoogleChecker builds a checker. Empty URLs fall back to Google's production endpoints.
func NewGoogleChecker(ctx context.Context, cfg GoogleConfig) *GoogleChecker {
	authURL := orDefault(cfg.AuthURL, GoogleAuthURL)
	tokenURL := orDefault(cfg.TokenURL, GoogleTokenURL)

	g := &GoogleChecker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL},
			Scopes:       []string{oidc.ScopeOpenID, "email", scopeSearchConsole, scopeAnalytics},
		},
		searchConsole: strings.TrimRight(orDefault(cfg.SearchConsole, SearchConsoleBaseURL), "/"),
		analytics:     strings.TrimRight(orDefault(cfg.Analytics, AnalyticsAdminBaseURL), "/"),
	}
	if cfg.ClientID != "" {
		keySet := oidc.NewRemoteKeySet(ctx, orDefault(cfg.JWKSURL, GoogleJWKSURL))
		g.verifier = oidc.NewVerifier(GoogleIssuer, keySet, &oidc.Config{ClientID: cfg.ClientID})
	}
	return g
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// AuthCodeURL returns the consent URL carrying state.
func (g *GoogleChecker) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens.
func (g *GoogleChecker) Exchange(ctx context.Context, code string) (*Tokens, error) {
	ctx, span := observability.StartClientSpan(ctx, "ownership.google.exchange")
	tok, err := g.oauth.Exchange(ctx, code)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	out := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = idToken
	}
	return out, nil
}

// Check looks for domain among the properties the token's account can access.
func (g *GoogleChecker) Check(ctx context.Context, method models.VerificationMethod, domain string, tokens Tokens) (res Result, err error) {
	if tokens.AccessToken == "" {
		return Result{}, notVerified("Google authorization is missing")
	}

	ctx, span := observability.StartClientSpan(ctx, "ownership.google.check",
		attribute.String("method", string(method)),
		attribute.String("domain", domain),
	)
	defer func() { observability.EndSpan(span, err) }()

	client := g.oauth.Client(ctx, &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Expiry:       tokens.Expiry,
	})

	switch method {
	case models.MethodGoogleSearchConsole:
		err = g.checkSearchConsole(ctx, client, domain)
	case models.MethodGoogleAnalytics:
		err = g.checkAnalytics(ctx, client, domain)
	default:
		return Result{}, fmt.Errorf("method %q is not a Google method", method)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{AccountEmail: g.accountEmail(ctx, tokens.IDToken)}, nil
}

func (g *GoogleChecker) accountEmail(ctx context.Context, rawIDToken string) string {
	if g.verifier == nil || rawIDToken == "" {
		return ""
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return ""
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil || !claims.EmailVerified {
		return ""
	}
	return claims.Email
}

type searchConsoleSites struct {
	SiteEntry []struct {
		SiteURL         string `json:"siteUrl"`
		PermissionLevel string `json:"permissionLevel"`
	} `json:"siteEntry"`
}

func (g *GoogleChecker) checkSearchConsole(ctx context.Context, client *http.Client, domain string) error {
	var sites searchConsoleSites
	if err := getJSON(ctx, client, g.searchConsole+"/sites", &sites); err != nil {
		return err
	}
	for _, s := range sites.SiteEntry {
		if s.PermissionLevel == "siteUnverifiedUser" {
			continue
		}
		if siteHost(s.SiteURL) == domain {
			return nil
		}
	}
	return notVerified("%s is not a verified Search Console property of this Google account", domain)
}

type accountSummaries struct {
	AccountSummaries []struct {
		PropertySummaries []struct {
			Property string `json:"property"`
		} `json:"propertySummaries"`
	} `json:"accountSummaries"`
}

type dataStreams struct {
	DataStreams []struct {
		WebStreamData *struct {
			DefaultURI string `json:"defaultUri"`
		} `json:"webStreamData"`
	} `json:"dataStreams"`
}

func (g *GoogleChecker) checkAnalytics(ctx context.Context, client *http.Client, domain string) error {
	var summaries accountSummaries
	if err := getJSON(ctx, client, g.analytics+"/accountSummaries", &summaries); err != nil {
		return err
	}
	for _, acct := range summaries.AccountSummaries {
		for _, prop := range acct.PropertySummaries {
			var streams dataStreams
			if err := getJSON(ctx, client, g.analytics+"/"+prop.Property+"/dataStreams", &streams); err != nil {
				return err
			}
			for _, st := range streams.DataStreams {
				if st.WebStreamData != nil && siteHost(st.WebStreamData.DefaultURI) == domain {
					return nil
				}
			}
		}
	}
	return notVerified("%s has no Google Analytics web stream in this Google account", domain)
}

// siteHost maps "https://www.example.com/" and "sc-domain:example.com" to "example.com".
func siteHost(raw string) string {
	raw = strings.TrimPrefix(raw, "sc-domain:")
	return validation.NormalizeDomain(raw)
}

var errGoogleUnauthorized = errors.New("google rejected the authorization, sign in again")

func getJSON(ctx context.Context, client *http.Client, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call Google API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrNotVerified, errGoogleUnauthorized)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("google API %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
