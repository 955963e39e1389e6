package validation

import (
	"strings"
	"testing"

	"guestpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "Abcdefghij1!", false},
		{"Too Short", "Small1!", true},
		{"Too Long", "A" + strings.Repeat("b", 126) + "1!", true},
		{"No Upper", "securepass12!", true},
		{"No Lower", "SECUREPASS12!", true},
		{"No Digit", "SecurePass!!", true},
		{"No Special", "SecurePass123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsernameAndEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("publisher_01"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("-abc"))
	assert.Error(t, ValidateUsername("a@bc"))

	assert.NoError(t, ValidateEmail("owner@example.com"))
	assert.Error(t, ValidateEmail("owner@"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidateSignupRole(t *testing.T) {
	t.Parallel()
	role, err := ValidateSignupRole("")
	require.NoError(t, err)
	assert.Equal(t, models.RolePublisher, role)

	role, err = ValidateSignupRole("advertiser")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdvertiser, role)

	_, err = ValidateSignupRole("admin")
	assert.Error(t, err)
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://WWW.Example.com/", "example.com"},
		{"http://example.com", "example.com"},
		{"  Example.COM  ", "example.com"},
		{"www.blog.example.co.uk/path?q=1#frag", "blog.example.co.uk"},
		{"example.com:8080/", "example.com"},
		{"ftp://user@www.example.org", "example.org"},
		{"example.com.", "example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDomain(tt.in))
		})
	}
}

func TestValidateDomain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{"Valid", "example.com", false},
		{"Subdomain", "blog.example.co.uk", false},
		{"Empty", "", true},
		{"No TLD", "localhost", true},
		{"Underscore", "my_site.com", true},
		{"Leading Hyphen", "-site.com", true},
		{"Empty Label", "site..com", true},
		{"Too Long", strings.Repeat("a", 250) + ".com", true},
		{"Loopback IP", "127.0.0.1", true},
		{"Metadata IP", NormalizeDomain("http://169.254.169.254/"), true},
		{"Private IP With Port", NormalizeDomain("10.0.0.5:8080"), true},
		{"Numeric TLD", "example.123", true},
		{"Digits Before TLD", "123.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateListing(t *testing.T) {
	t.Parallel()
	valid := models.ListingFields{
		PublishingPrice:     100,
		DiscountPercentage:  10,
		AllCategories:       []string{"Business", "Finance", "Technology"},
		Keywords:            []string{"a", "b", "c", "d", "e"},
		Country:             "Germany",
		AdditionalCountries: []string{"France"},
		MainLanguage:        "German",
		AdditionalLanguages: []string{"English"},
	}
	require.NoError(t, ValidateListing(valid, models.WebsiteStatusSubmitted))

	tests := []struct {
		name   string
		mutate func(f *models.ListingFields)
		status models.WebsiteStatus
	}{
		{"Negative Price", func(f *models.ListingFields) { f.CopywritingPrice = -1 }, models.WebsiteStatusDraft},
		{"Discount Over 100", func(f *models.ListingFields) { f.DiscountPercentage = 101 }, models.WebsiteStatusDraft},
		{"Four Categories", func(f *models.ListingFields) { f.AllCategories = append(f.AllCategories, "Travel") }, models.WebsiteStatusDraft},
		{"Six Keywords", func(f *models.ListingFields) { f.Keywords = append(f.Keywords, "f") }, models.WebsiteStatusDraft},
		{"Four Countries", func(f *models.ListingFields) { f.AdditionalCountries = []string{"a", "b", "c", "d"} }, models.WebsiteStatusDraft},
		{"Four Languages", func(f *models.ListingFields) { f.AdditionalLanguages = []string{"a", "b", "c", "d"} }, models.WebsiteStatusDraft},
		{"Long Description", func(f *models.ListingFields) { f.Description = strings.Repeat("x", 5001) }, models.WebsiteStatusDraft},
		{"Submit Without Language", func(f *models.ListingFields) { f.MainLanguage = "" }, models.WebsiteStatusSubmitted},
		{"Submit Without Country", func(f *models.ListingFields) { f.Country = " " }, models.WebsiteStatusSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			f.AllCategories = append([]string(nil), valid.AllCategories...)
			f.Keywords = append([]string(nil), valid.Keywords...)
			tt.mutate(&f)
			assert.Error(t, ValidateListing(f, tt.status))
		})
	}

	draft := valid
	draft.MainLanguage = ""
	assert.NoError(t, ValidateListing(draft, models.WebsiteStatusDraft))
}

func TestValidateReason(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateReason("I manage DNS through a registrar that blocks uploads"))
	assert.Error(t, ValidateReason("   "))
	assert.Error(t, ValidateReason(strings.Repeat("r", 2001)))
}
