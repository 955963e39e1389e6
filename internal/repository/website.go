package repository

import (
	"context"
	"errors"

	"guestpost/internal/models"

	"gorm.io/gorm"
)

// WebsiteFilter narrows website listings. Zero values are ignored.
type WebsiteFilter struct {
	UserID             uint
	Status             models.WebsiteStatus
	Stage              string
	Category           string
	Country            string
	Language           string
	MaxPublishingPrice float64
	Limit              int
	Offset             int
}

// WebsiteRepository defines persistence operations for website listings.
type WebsiteRepository interface {
	Create(ctx context.Context, w *models.Website) error
	GetByID(ctx context.Context, id uint) (*models.Website, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Website, error)
	GetByUserAndDomain(ctx context.Context, userID uint, domain string) (*models.Website, error)
	FindLiveByDomainExcludingUser(ctx context.Context, domain string, userID uint) ([]models.Website, error)
	List(ctx context.Context, f WebsiteFilter) ([]models.Website, int64, error)
	Update(ctx context.Context, w *models.Website) error
	SoftDelete(ctx context.Context, w *models.Website) error
	WithTx(tx *gorm.DB) WebsiteRepository
}

type websiteRepository struct {
	db *gorm.DB
}

// NewWebsiteRepository returns a new WebsiteRepository implementation.
func NewWebsiteRepository(db *gorm.DB) WebsiteRepository {
	return &websiteRepository{db: db}
}

func (r *websiteRepository) WithTx(tx *gorm.DB) WebsiteRepository {
	return &websiteRepository{db: tx}
}

func (r *websiteRepository) Create(ctx context.Context, w *models.Website) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Website already listed")
		}
		return models.NewInternalError(err)
	}
	w.Stage = w.DerivedStage()
	return nil
}

func (r *websiteRepository) GetByID(ctx context.Context, id uint) (*models.Website, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate loads the row under a write lock; call it inside a transaction.
func (r *websiteRepository) GetForUpdate(ctx context.Context, id uint) (*models.Website, error) {
	return r.get(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *websiteRepository) get(db *gorm.DB, id uint) (*models.Website, error) {
	var w models.Website
	if err := db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Website", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &w, nil
}

// GetByUserAndDomain returns nil, nil when the user has no live listing for domain.
func (r *websiteRepository) GetByUserAndDomain(ctx context.Context, userID uint, domain string) (*models.Website, error) {
	var w models.Website
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND domain = ? AND status <> ?", userID, domain, models.WebsiteStatusDeleted).
		First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &w, nil
}

func (r *websiteRepository) FindLiveByDomainExcludingUser(ctx context.Context, domain string, userID uint) ([]models.Website, error) {
	var sites []models.Website
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("domain = ? AND user_id <> ? AND status <> ?", domain, userID, models.WebsiteStatusDeleted).
		Order("id ASC").
		Find(&sites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sites, nil
}

func (r *websiteRepository) List(ctx context.Context, f WebsiteFilter) ([]models.Website, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Website{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	switch {
	case f.Stage == models.StageAwaitingModeration:
		q = q.Where("status = ? AND verification_status = ?", models.WebsiteStatusSubmitted, models.VerificationVerified)
	case f.Stage != "":
		q = q.Where("status = ?", f.Stage)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Country != "" {
		q = q.Where("country = ?", f.Country)
	}
	if f.Language != "" {
		q = q.Where("main_language = ?", f.Language)
	}
	if f.MaxPublishingPrice > 0 {
		q = q.Where("publishing_price <= ?", f.MaxPublishingPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var sites []models.Website
	if err := q.Order("created_at DESC, id DESC").
		Limit(clampLimit(f.Limit)).
		Offset(f.Offset).
		Find(&sites).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return sites, total, nil
}

func (r *websiteRepository) Update(ctx context.Context, w *models.Website) error {
	if err := r.db.WithContext(ctx).Omit("User").Save(w).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Website already listed")
		}
		return models.NewInternalError(err)
	}
	w.Stage = w.DerivedStage()
	return nil
}

// SoftDelete marks the listing deleted and sets gorm's DeletedAt.
func (r *websiteRepository) SoftDelete(ctx context.Context, w *models.Website) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(w).Update("status", models.WebsiteStatusDeleted).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Delete(w).Error; err != nil {
		return models.NewInternalError(err)
	}
	w.Status = models.WebsiteStatusDeleted
	w.Stage = w.DerivedStage()
	return nil
}
