package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guestpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestDecode_PayloadShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		existed  bool
		nextStep string
	}{
		{"Envelope", `{"ok":true,"data":{"id":7,"domain":"example.com"}}`, false, ""},
		{"Double Wrapped", `{"ok":true,"data":{"data":{"id":7,"domain":"example.com"},"existed":true,"nextStep":"pricing"}}`, true, "pricing"},
		{"Bare", `{"id":7,"domain":"example.com"}`, false, ""},
		{"Bare Data Wrapper", `{"data":{"id":7,"domain":"example.com"}}`, false, ""},
		{"Envelope Flags", `{"ok":true,"existed":true,"nextStep":"verify","data":{"id":7,"domain":"example.com"}}`, true, "verify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decode[models.Website](http.StatusOK, []byte(tt.body))
			require.NoError(t, err)
			assert.True(t, res.OK)
			assert.Equal(t, uint(7), res.Data.ID)
			assert.Equal(t, "example.com", res.Data.Domain)
			assert.Equal(t, tt.existed, res.Existed)
			assert.Equal(t, tt.nextStep, res.NextStep)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"App Error", 409, `{"ok":false,"message":"Website already approved","error":"conflict","code":"CONFLICT"}`, "CONFLICT", "Website already approved"},
		{"Error Field Only", 400, `{"error":"bad domain"}`, "", "bad domain"},
		{"Empty Body", 500, ``, "", ""},
		{"Plain Text", 502, `upstream unavailable`, "", "upstream unavailable"},
		{"OK False With 200", 200, `{"ok":false,"message":"nope"}`, "", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode[models.Website](tt.status, []byte(tt.body))
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "", FormatError(nil))
	assert.Equal(t, "Domain is invalid", FormatError(&APIError{Status: 400, Message: "Domain is invalid"}))
	assert.Equal(t, GenericErrorMessage, FormatError(&APIError{Status: 500}))
	assert.Equal(t, "boom", FormatError(errors.New("boom")))
	assert.Equal(t, "Domain is invalid", FormatError(fmt.Errorf("add: %w", &APIError{Message: "Domain is invalid"})))
}

func TestAddWebsite_NormalizesDomain(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/websites", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"ok":true,"existed":true,"nextStep":"pricing","data":{"id":3,"domain":"example.com","status":"submitted"}}`)
	}, WithToken("tok"))

	res, err := c.AddWebsite(context.Background(), "  HTTPS://www.Example.com/blog ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got["domain"])
	assert.True(t, res.Existed)
	assert.Equal(t, models.NextStepPricing, res.NextStep)
	assert.Equal(t, models.WebsiteStatusSubmitted, res.Data.Status)
}

func TestLogin_StoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, `{"ok":true,"data":{"token":"jwt-1","user":{"id":1,"role":"publisher"}}}`)
		case "/api/websites/1":
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				writeJSON(w, http.StatusUnauthorized, `{"ok":false,"message":"Authorization required","code":"UNAUTHORIZED"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"ok":true,"data":{"id":1,"domain":"example.com"}}`)
		default:
			http.NotFound(w, r)
		}
	})

	_, err := c.GetWebsite(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	res, err := c.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RolePublisher, res.Data.User.Role)
	assert.Equal(t, "jwt-1", c.Token())

	site, err := c.GetWebsite(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "example.com", site.Data.Domain)
}

func TestVerify_SendsTokensOrNull(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		writeJSON(w, http.StatusOK, `{"ok":true,"data":{"verified":true,"ownershipTransferred":true,"website":{"id":4}}}`)
	})

	res, err := c.Verify(context.Background(), 4, VerifyRequest{})
	require.NoError(t, err)
	assert.True(t, res.Data.OwnershipTransferred)
	assert.Equal(t, uint(4), res.Data.Website.ID)

	require.Len(t, bodies, 1)
	v, present := bodies[0]["googleTokens"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestAdminActions(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		writeJSON(w, http.StatusOK, `{"ok":true,"data":{"id":9}}`)
	})
	ctx := context.Background()

	_, err := c.Approve(ctx, 9)
	require.NoError(t, err)
	_, err = c.Reject(ctx, 9, "thin content")
	require.NoError(t, err)
	_, err = c.Pause(ctx, 9)
	require.NoError(t, err)
	_, err = c.Resume(ctx, 9)
	require.NoError(t, err)
	_, err = c.Delete(ctx, 9)
	require.NoError(t, err)
	_, err = c.SetMethodFlags(ctx, 9, models.MethodFlags{DisableHTMLFile: true})
	require.NoError(t, err)
	_, err = c.AdminQueue(ctx, models.WebsiteStatusSubmitted)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/admin/websites/9/approve",
		"POST /api/admin/websites/9/reject",
		"POST /api/admin/websites/9/pause",
		"POST /api/admin/websites/9/resume",
		"DELETE /api/admin/websites/9",
		"PUT /api/admin/websites/9/verification-methods",
		"GET /api/admin/websites?status=submitted",
	}, calls)
}

func TestTimeoutAndNetworkErrors(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, WithTimeout(50*time.Millisecond))

		_, err := c.GetWebsite(context.Background(), 1)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeTimeout, apiErr.Code)
		assert.Equal(t, "The request timed out", FormatError(err))
	})

	t.Run("Connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := New(srv.URL)

		_, err := c.GetWebsite(context.Background(), 1)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeNetwork, apiErr.Code)
		assert.Equal(t, 0, apiErr.Status)
		assert.Equal(t, GenericErrorMessage, FormatError(err))
	})
}
