package ownership

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"guestpost/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const maxChallengeBody = 64 << 10

// HTMLFileChecker fetches the challenge file from the publisher's site.
type HTMLFileChecker struct {
	client  *http.Client
	schemes []string
}

var errNonPublicAddress = errors.New("address is not publicly routable")

// NewHTMLFileChecker returns a checker that tries https first, then http.
// It refuses to connect to loopback, private and link-local addresses.
func NewHTMLFileChecker(timeout time.Duration) *HTMLFileChecker {
	return newHTMLFileChecker(timeout, false)
}

func newHTMLFileChecker(timeout time.Duration, allowPrivate bool) *HTMLFileChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	if !allowPrivate {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &HTMLFileChecker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		schemes: []string{"https", "http"},
	}
}

// publicOnly runs after DNS resolution, so it also covers host names and
// redirects that point at internal addresses.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return fmt.Errorf("%w: %s", errNonPublicAddress, host)
	}
	return nil
}

func isPublic(ip net.IP) bool {
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified()
}

// Check succeeds when https://<domain>/<fileName> (or the http fallback) serves expected.
func (c *HTMLFileChecker) Check(ctx context.Context, domain, fileName, expected string) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "ownership.html_file",
		attribute.String("domain", domain),
	)
	defer func() { observability.EndSpan(span, err) }()

	var lastErr error
	for _, scheme := range c.schemes {
		url := fmt.Sprintf("%s://%s/%s", scheme, domain, fileName)
		body, status, fetchErr := c.fetch(ctx, url)
		if fetchErr != nil {
			lastErr = fetchErr
			continue
		}
		if status != http.StatusOK {
			lastErr = notVerified("%s returned status %d", url, status)
			continue
		}
		if strings.TrimSpace(body) == strings.TrimSpace(expected) {
			return nil
		}
		return notVerified("verification file content does not match")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return notVerified("verification file not reachable: %v", lastErr)
}

func (c *HTMLFileChecker) fetch(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", "guestpost-verifier/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeBody))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}
