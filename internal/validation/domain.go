package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	domainLabelRegex = regexp.MustCompile(`^[a-z0-9-]{1,63}$`)
	tldRegex         = regexp.MustCompile(`[a-z]`)
)

// NormalizeDomain reduces user input to a bare lowercase host:
// "HTTPS://WWW.Example.com/" becomes "example.com".
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))

	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}

	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	return d
}

// ValidateDomain checks a normalized domain.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	if len(domain) > 253 {
		return fmt.Errorf("domain must not exceed 253 characters")
	}
	if net.ParseIP(domain) != nil {
		return fmt.Errorf("domain must be a host name, not an IP address")
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain must include a top-level domain")
	}
	for _, label := range labels {
		if !domainLabelRegex.MatchString(label) {
			return fmt.Errorf("invalid domain label %q", label)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("domain labels cannot start or end with a hyphen")
		}
	}
	if !tldRegex.MatchString(labels[len(labels)-1]) {
		return fmt.Errorf("domain must end in a top-level domain name")
	}
	return nil
}
