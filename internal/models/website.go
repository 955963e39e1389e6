// Package models contains the persisted domain types and API envelopes.
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebsiteStatus is the moderation lifecycle state of a listing.
type WebsiteStatus string

const (
	WebsiteStatusDraft       WebsiteStatus = "draft"
	WebsiteStatusSubmitted   WebsiteStatus = "submitted"
	WebsiteStatusUnderReview WebsiteStatus = "under_review"
	WebsiteStatusApproved    WebsiteStatus = "approved"
	WebsiteStatusRejected    WebsiteStatus = "rejected"
	WebsiteStatusPaused      WebsiteStatus = "paused"
	WebsiteStatusDeleted     WebsiteStatus = "deleted"
)

// IsValid reports whether s is one of the known statuses.
func (s WebsiteStatus) IsValid() bool {
	switch s {
	case WebsiteStatusDraft, WebsiteStatusSubmitted, WebsiteStatusUnderReview,
		WebsiteStatusApproved, WebsiteStatusRejected, WebsiteStatusPaused, WebsiteStatusDeleted:
		return true
	}
	return false
}

// VerificationStatus is the ownership-verification state of a listing.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// VerificationMethod is one of the ways a publisher can prove domain ownership.
type VerificationMethod string

const (
	MethodGoogleAnalytics     VerificationMethod = "google_analytics"
	MethodGoogleSearchConsole VerificationMethod = "google_search_console"
	MethodHTMLFile            VerificationMethod = "html_file"
	MethodAnotherMethod       VerificationMethod = "another_method"
)

// VerificationMethods lists every method in display order.
var VerificationMethods = []VerificationMethod{
	MethodGoogleAnalytics,
	MethodGoogleSearchConsole,
	MethodHTMLFile,
	MethodAnotherMethod,
}

// IsValid reports whether m is a known method.
func (m VerificationMethod) IsValid() bool {
	switch m {
	case MethodGoogleAnalytics, MethodGoogleSearchConsole, MethodHTMLFile, MethodAnotherMethod:
		return true
	}
	return false
}

// IsGoogle reports whether m goes through the Google OAuth flow.
func (m VerificationMethod) IsGoogle() bool {
	return m == MethodGoogleAnalytics || m == MethodGoogleSearchConsole
}

// StageAwaitingModeration is the derived stage of a verified listing waiting for an admin.
const StageAwaitingModeration = "awaiting_moderation"

// Website is a publisher's site listed for guest-post placements.
type Website struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Domain string `gorm:"size:253;not null;index" json:"domain"`

	Status             WebsiteStatus      `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"verificationStatus"`
	VerificationMethod VerificationMethod `gorm:"type:varchar(32)" json:"verificationMethod"`

	DisableGoogleAnalytics     bool `gorm:"not null;default:false" json:"disableGoogleAnalytics"`
	DisableGoogleSearchConsole bool `gorm:"not null;default:false" json:"disableGoogleSearchConsole"`
	DisableHTMLFile            bool `gorm:"column:disable_html_file;not null;default:false" json:"disableHtmlFile"`

	PublishingPrice             float64 `gorm:"not null;default:0" json:"publishingPrice"`
	CopywritingPrice            float64 `gorm:"not null;default:0" json:"copywritingPrice"`
	HomepageAnnouncementPrice   float64 `gorm:"not null;default:0" json:"homepageAnnouncementPrice"`
	SensitiveContentExtraCharge float64 `gorm:"not null;default:0" json:"sensitiveContentExtraCharge"`
	DiscountPercentage          float64 `gorm:"not null;default:0" json:"discountPercentage"`

	Category                    string                      `gorm:"size:120" json:"category"`
	AllCategories               datatypes.JSONSlice[string] `gorm:"type:json" json:"allCategories"`
	Keywords                    datatypes.JSONSlice[string] `gorm:"type:json" json:"keywords"`
	Country                     string                      `gorm:"size:80" json:"country"`
	AdditionalCountries         datatypes.JSONSlice[string] `gorm:"type:json" json:"additionalCountries"`
	MainLanguage                string                      `gorm:"size:80" json:"mainLanguage"`
	AdditionalLanguages         datatypes.JSONSlice[string] `gorm:"type:json" json:"additionalLanguages"`
	AcceptedSensitiveCategories datatypes.JSONSlice[string] `gorm:"type:json" json:"acceptedSensitiveCategories"`
	Description                 string                      `gorm:"type:text" json:"description"`

	NeedsReModeration   bool   `gorm:"not null;default:false" json:"needsReModeration"`
	AnotherMethodReason string `gorm:"type:text" json:"anotherMethodReason,omitempty"`
	RejectionReason     string `gorm:"type:text" json:"rejectionReason,omitempty"`

	VerificationToken    string `gorm:"size:64" json:"-"`
	VerificationFileName string `gorm:"size:128" json:"-"`

	VerifiedAt *time.Time     `json:"verifiedAt,omitempty"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty"`
	ReviewedBy *uint          `json:"reviewedBy,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Stage string `gorm:"-" json:"stage"`
}

// TableName specifies the table name for GORM.
func (Website) TableName() string {
	return "websites"
}

// AfterFind fills the derived stage after every load.
func (w *Website) AfterFind(_ *gorm.DB) error {
	w.Stage = w.DerivedStage()
	return nil
}

// DerivedStage collapses verified+submitted into the awaiting-moderation stage.
func (w *Website) DerivedStage() string {
	if w.VerificationStatus == VerificationVerified && w.Status == WebsiteStatusSubmitted {
		return StageAwaitingModeration
	}
	return string(w.Status)
}

// MethodDisabled reports whether the given method may not be used for this website.
// Approved websites have graduated to the catalog, so every method is inert.
func (w *Website) MethodDisabled(m VerificationMethod) bool {
	if w.Status == WebsiteStatusApproved {
		return true
	}
	switch m {
	case MethodGoogleAnalytics:
		return w.DisableGoogleAnalytics
	case MethodGoogleSearchConsole:
		return w.DisableGoogleSearchConsole
	case MethodHTMLFile:
		return w.DisableHTMLFile
	}
	return false
}

// IsVerified reports whether ownership has been proven.
func (w *Website) IsVerified() bool {
	return w.VerificationStatus == VerificationVerified
}

// MethodFlags are the admin-controlled per-method switches.
type MethodFlags struct {
	DisableGoogleAnalytics     bool `json:"disableGoogleAnalytics"`
	DisableGoogleSearchConsole bool `json:"disableGoogleSearchConsole"`
	DisableHTMLFile            bool `json:"disableHtmlFile"`
}
