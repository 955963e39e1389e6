package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"guestpost/internal/models"
	"guestpost/internal/ownership"
	"guestpost/internal/validation"
)

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type SignupInput struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

// Instructions are what initiate returns for a verification method.
type Instructions struct {
	FileName         string `json:"fileName,omitempty"`
	FileContent      string `json:"fileContent,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
	AuthRequired     bool   `json:"authRequired,omitempty"`
	GoogleAuthURL    string `json:"googleAuthUrl,omitempty"`
}

type VerifyRequest struct {
	GoogleTokens *ownership.Tokens `json:"googleTokens"`
	Reason       string            `json:"reason,omitempty"`
}

type VerifyResult struct {
	Website              *models.Website `json:"website"`
	Verified             bool            `json:"verified"`
	OwnershipTransferred bool            `json:"ownershipTransferred"`
}

// UpdateRequest is the body of PUT /api/websites/:id.
type UpdateRequest struct {
	models.ListingFields
	Status models.WebsiteStatus `json:"status,omitempty"`
}

type WSTicket struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expiresIn"`
}

// Login authenticates and keeps the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Response[AuthResult], error) {
	res, err := call[AuthResult](ctx, c, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Data.Token)
	return res, nil
}

func (c *Client) Signup(ctx context.Context, in SignupInput) (*Response[AuthResult], error) {
	res, err := call[AuthResult](ctx, c, http.MethodPost, "/api/auth/signup", in)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Data.Token)
	return res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := call[struct{}](ctx, c, http.MethodPost, "/api/auth/logout", nil)
	if err == nil {
		c.SetToken("")
	}
	return err
}

// AddWebsite normalizes domain before sending it. Existed is set when the
// caller already had a listing for the domain.
func (c *Client) AddWebsite(ctx context.Context, domain string) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodPost, "/api/websites",
		map[string]string{"domain": validation.NormalizeDomain(domain)})
}

func (c *Client) GetWebsite(ctx context.Context, id uint) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodGet, fmt.Sprintf("/api/websites/%d", id), nil)
}

// ListWebsites returns the caller's listings, optionally filtered by status.
func (c *Client) ListWebsites(ctx context.Context, status models.WebsiteStatus) (*Response[models.Page[models.Website]], error) {
	return call[models.Page[models.Website]](ctx, c, http.MethodGet, withStatus("/api/websites", status), nil)
}

func (c *Client) UpdateWebsite(ctx context.Context, id uint, in UpdateRequest) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodPut, fmt.Sprintf("/api/websites/%d", id), in)
}

func (c *Client) InitiateVerification(ctx context.Context, id uint, method models.VerificationMethod) (*Response[Instructions], error) {
	return call[Instructions](ctx, c, http.MethodPost, fmt.Sprintf("/api/websites/%d/verification/initiate", id),
		map[string]models.VerificationMethod{"verificationMethod": method})
}

func (c *Client) Verify(ctx context.Context, id uint, in VerifyRequest) (*Response[VerifyResult], error) {
	return call[VerifyResult](ctx, c, http.MethodPost, fmt.Sprintf("/api/websites/%d/verification/verify", id), in)
}

func (c *Client) CatalogOptions(ctx context.Context) (*Response[map[string]any], error) {
	return call[map[string]any](ctx, c, http.MethodGet, "/api/catalog/options", nil)
}

func (c *Client) IssueWSTicket(ctx context.Context) (*Response[WSTicket], error) {
	return call[WSTicket](ctx, c, http.MethodPost, "/api/ws/ticket", nil)
}

// AdminQueue lists listings for moderation.
func (c *Client) AdminQueue(ctx context.Context, status models.WebsiteStatus) (*Response[models.Page[models.Website]], error) {
	return call[models.Page[models.Website]](ctx, c, http.MethodGet, withStatus("/api/admin/websites", status), nil)
}

func (c *Client) Review(ctx context.Context, id uint) (*Response[models.Website], error) {
	return c.adminAction(ctx, id, "review", nil)
}

func (c *Client) Approve(ctx context.Context, id uint) (*Response[models.Website], error) {
	return c.adminAction(ctx, id, "approve", nil)
}

func (c *Client) Reject(ctx context.Context, id uint, reason string) (*Response[models.Website], error) {
	return c.adminAction(ctx, id, "reject", map[string]string{"reason": reason})
}

func (c *Client) Pause(ctx context.Context, id uint) (*Response[models.Website], error) {
	return c.adminAction(ctx, id, "pause", nil)
}

func (c *Client) Resume(ctx context.Context, id uint) (*Response[models.Website], error) {
	return c.adminAction(ctx, id, "resume", nil)
}

func (c *Client) Delete(ctx context.Context, id uint) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodDelete, fmt.Sprintf("/api/admin/websites/%d", id), nil)
}

func (c *Client) SetMethodFlags(ctx context.Context, id uint, flags models.MethodFlags) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodPut,
		fmt.Sprintf("/api/admin/websites/%d/verification-methods", id), flags)
}

func (c *Client) adminAction(ctx context.Context, id uint, action string, body any) (*Response[models.Website], error) {
	return call[models.Website](ctx, c, http.MethodPost, fmt.Sprintf("/api/admin/websites/%d/%s", id, action), body)
}

func withStatus(path string, status models.WebsiteStatus) string {
	if status == "" {
		return path
	}
	return path + "?" + url.Values{"status": {string(status)}}.Encode()
}
