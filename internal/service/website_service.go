package service

import (
	"context"
	"fmt"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/observability"
	"guestpost/internal/repository"
	"guestpost/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type WebsiteService struct {
	db        *gorm.DB
	websites  repository.WebsiteRepository
	users     repository.UserRepository
	publisher notifications.Publisher
	audit     *observability.AuditLogger
	cacheTTL  time.Duration
}

// AddWebsiteResult reports the listing and what the client should do next.
type AddWebsiteResult struct {
	Website  *models.Website
	Existed  bool
	NextStep string
}

// AddWebsiteInput is the body of POST /api/websites.
type AddWebsiteInput struct {
	Domain string `json:"domain"`
}

// UpdateWebsiteInput is the flat listing payload of PUT /api/websites/:id.
type UpdateWebsiteInput struct {
	models.ListingFields
	Status            models.WebsiteStatus `json:"status"`
	NeedsReModeration *bool                `json:"needsReModeration"`
}

// CatalogFilter selects approved listings for advertisers.
type CatalogFilter struct {
	Category           string
	Country            string
	Language           string
	MaxPublishingPrice float64
	Limit              int
	Offset             int
}

func NewWebsiteService(
	db *gorm.DB,
	websites repository.WebsiteRepository,
	users repository.UserRepository,
	publisher notifications.Publisher,
	audit *observability.AuditLogger,
	cacheTTL time.Duration,
) *WebsiteService {
	if cacheTTL <= 0 {
		cacheTTL = cache.CatalogTTL
	}
	return &WebsiteService{
		db:        db,
		websites:  websites,
		users:     users,
		publisher: publisher,
		audit:     audit,
		cacheTTL:  cacheTTL,
	}
}

// AddWebsite creates a draft listing or returns the caller's existing one for the same domain.
func (s *WebsiteService) AddWebsite(ctx context.Context, userID uint, in AddWebsiteInput) (res *AddWebsiteResult, err error) {
	domain := validation.NormalizeDomain(in.Domain)
	ctx, span := observability.StartSpan(ctx, "WebsiteService", "AddWebsite", attribute.String("domain", domain))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidateDomain(domain); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.websites.GetByUserAndDomain(ctx, userID, domain)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AddWebsiteResult{Website: existing, Existed: true, NextStep: nextStepFor(existing)}, nil
	}

	w := &models.Website{
		UserID:             userID,
		Domain:             domain,
		Status:             models.WebsiteStatusDraft,
		VerificationStatus: models.VerificationPending,
	}
	models.ListingFields{}.ApplyTo(w)
	if err := s.websites.Create(ctx, w); err != nil {
		return nil, err
	}

	s.audit.LogTransition(ctx, userID, w.ID, "create", "", string(w.Status), "domain", domain)
	return &AddWebsiteResult{Website: w, NextStep: models.NextStepVerify}, nil
}

func nextStepFor(w *models.Website) string {
	switch {
	case !w.IsVerified():
		return models.NextStepVerify
	case w.Status == models.WebsiteStatusDraft:
		return models.NextStepPricing
	default:
		return models.NextStepDashboard
	}
}

// GetWebsite returns a listing visible to userID.
func (s *WebsiteService) GetWebsite(ctx context.Context, userID, id uint) (*models.Website, error) {
	var w models.Website
	if _, err := cache.CacheAside(ctx, cache.WebsiteKey(id), &w, cache.WebsiteTTL, func() error {
		loaded, err := s.websites.GetByID(ctx, id)
		if err != nil {
			return err
		}
		w = *loaded
		return nil
	}); err != nil {
		return nil, err
	}

	if w.UserID != userID && !isAdmin(ctx, s.users, userID) {
		return nil, models.NewForbiddenError("You do not own this website")
	}
	return &w, nil
}

// ListMine pages through the caller's listings.
func (s *WebsiteService) ListMine(ctx context.Context, userID uint, status models.WebsiteStatus, limit, offset int) (*models.Page[models.Website], error) {
	if status != "" && !status.IsValid() {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid status %q", status))
	}
	sites, total, err := s.websites.List(ctx, repository.WebsiteFilter{
		UserID: userID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Website]{Items: sites, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateWebsite saves listing fields and the requested status. Editing a live
// listing sends it back to moderation.
func (s *WebsiteService) UpdateWebsite(ctx context.Context, userID, id uint, in UpdateWebsiteInput) (w *models.Website, err error) {
	ctx, span := observability.StartSpan(ctx, "WebsiteService", "UpdateWebsite", attribute.Int("website.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := loadOwned(ctx, s.websites, s.users, userID, id); err != nil {
		return nil, err
	}

	var (
		from   models.WebsiteStatus
		forced bool
	)
	err = withLockedWebsite(ctx, s.db, s.websites, id, func(_ *gorm.DB, websites repository.WebsiteRepository, locked *models.Website) error {
		from = locked.Status
		target := in.Status
		if target == "" {
			target = from
		}

		forced = from == models.WebsiteStatusApproved || from == models.WebsiteStatusPaused
		switch {
		case forced:
			target = models.WebsiteStatusSubmitted
		case in.Status != "" && in.Status != models.WebsiteStatusDraft && in.Status != models.WebsiteStatusSubmitted:
			return models.NewValidationError("Status can only be set to draft or submitted")
		case from == models.WebsiteStatusUnderReview && in.Status == models.WebsiteStatusDraft:
			return models.NewConflictError("Website is under review")
		}

		if target == models.WebsiteStatusSubmitted && from != models.WebsiteStatusSubmitted && !forced && !readyToSubmit(locked) {
			return models.NewValidationError("Verify ownership of the website before submitting it")
		}

		if err := validation.ValidateListing(in.ListingFields, target); err != nil {
			return models.NewValidationError(err.Error())
		}

		in.ListingFields.ApplyTo(locked)
		locked.Status = target
		switch {
		case forced:
			locked.NeedsReModeration = true
		case in.NeedsReModeration != nil:
			locked.NeedsReModeration = *in.NeedsReModeration
		}

		if err := websites.Update(ctx, locked); err != nil {
			return err
		}
		w = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, w, forced)

	if from != w.Status {
		s.audit.LogTransition(ctx, userID, w.ID, "update", string(from), string(w.Status), "needs_re_moderation", w.NeedsReModeration)
		if w.Status == models.WebsiteStatusSubmitted {
			publishAdmins(ctx, s.publisher, notifications.NewEvent(notifications.EventWebsiteSubmitted, w.ID, websitePayload(w)))
		}
	}
	return w, nil
}

func readyToSubmit(w *models.Website) bool {
	if w.IsVerified() {
		return true
	}
	return w.VerificationMethod == models.MethodAnotherMethod && w.AnotherMethodReason != ""
}

// Catalog lists approved websites. Pages are cached per filter until the next moderation action.
func (s *WebsiteService) Catalog(ctx context.Context, f CatalogFilter) (*models.Page[models.Website], error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	key := cache.CatalogPageKey(cache.CatalogVersion(ctx), fmt.Sprintf("%s|%s|%s|%g|%d|%d",
		f.Category, f.Country, f.Language, f.MaxPublishingPrice, f.Limit, f.Offset))

	var page models.Page[models.Website]
	hit, err := cache.CacheAside(ctx, key, &page, s.cacheTTL, func() error {
		sites, total, err := s.websites.List(ctx, repository.WebsiteFilter{
			Status:             models.WebsiteStatusApproved,
			Category:           f.Category,
			Country:            f.Country,
			Language:           f.Language,
			MaxPublishingPrice: f.MaxPublishingPrice,
			Limit:              f.Limit,
			Offset:             f.Offset,
		})
		if err != nil {
			return err
		}
		if sites == nil {
			sites = []models.Website{}
		}
		page = models.Page[models.Website]{Items: sites, Total: total, Limit: f.Limit, Offset: f.Offset}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	observability.CatalogCacheLookups.WithLabelValues(result).Inc()
	return &page, nil
}
