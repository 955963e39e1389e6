package validation

import (
	"fmt"
	"strings"

	"guestpost/internal/catalog"
	"guestpost/internal/models"
)

const (
	maxDescriptionLength = 5000
	maxReasonLength      = 2000
)

// ValidateListing checks pricing, classification caps and the fields a submission needs.
func ValidateListing(f models.ListingFields, status models.WebsiteStatus) error {
	prices := []struct {
		name  string
		value float64
	}{
		{"publishingPrice", f.PublishingPrice},
		{"copywritingPrice", f.CopywritingPrice},
		{"homepageAnnouncementPrice", f.HomepageAnnouncementPrice},
		{"sensitiveContentExtraCharge", f.SensitiveContentExtraCharge},
		{"discountPercentage", f.DiscountPercentage},
	}
	for _, p := range prices {
		if p.value < 0 {
			return fmt.Errorf("%s must not be negative", p.name)
		}
	}
	if f.DiscountPercentage > 100 {
		return fmt.Errorf("discountPercentage must not exceed 100")
	}

	caps := []struct {
		name   string
		values []string
		max    int
	}{
		{"allCategories", f.AllCategories, catalog.MaxCategories},
		{"additionalCountries", f.AdditionalCountries, catalog.MaxCountries},
		{"additionalLanguages", f.AdditionalLanguages, catalog.MaxLanguages},
		{"keywords", f.Keywords, catalog.MaxKeywords},
	}
	for _, c := range caps {
		if len(c.values) > c.max {
			return fmt.Errorf("%s accepts at most %d items", c.name, c.max)
		}
	}

	if len(f.Description) > maxDescriptionLength {
		return fmt.Errorf("description must not exceed %d characters", maxDescriptionLength)
	}

	if status == models.WebsiteStatusSubmitted {
		if strings.TrimSpace(f.MainLanguage) == "" {
			return fmt.Errorf("mainLanguage is required to submit a website")
		}
		if strings.TrimSpace(f.Country) == "" {
			return fmt.Errorf("country is required to submit a website")
		}
	}

	return nil
}

// ValidateReason checks a free-text justification such as a rejection reason.
func ValidateReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return fmt.Errorf("reason is required")
	}
	if len(trimmed) > maxReasonLength {
		return fmt.Errorf("reason must not exceed %d characters", maxReasonLength)
	}
	return nil
}
