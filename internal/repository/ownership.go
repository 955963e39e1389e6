package repository

import (
	"context"
	"errors"

	"guestpost/internal/models"

	"gorm.io/gorm"
)

// OwnershipRepository stores the append-only verification history.
type OwnershipRepository interface {
	Append(ctx context.Context, rec *models.OwnershipRecord) error
	LatestForDomain(ctx context.Context, domain string) (*models.OwnershipRecord, error)
	ListForWebsite(ctx context.Context, websiteID uint) ([]models.OwnershipRecord, error)
	WithTx(tx *gorm.DB) OwnershipRepository
}

type ownershipRepository struct {
	db *gorm.DB
}

// NewOwnershipRepository returns a new OwnershipRepository implementation.
func NewOwnershipRepository(db *gorm.DB) OwnershipRepository {
	return &ownershipRepository{db: db}
}

func (r *ownershipRepository) WithTx(tx *gorm.DB) OwnershipRepository {
	return &ownershipRepository{db: tx}
}

func (r *ownershipRepository) Append(ctx context.Context, rec *models.OwnershipRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// LatestForDomain returns nil, nil when the domain was never verified.
func (r *ownershipRepository) LatestForDomain(ctx context.Context, domain string) (*models.OwnershipRecord, error) {
	var rec models.OwnershipRecord
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Order("created_at DESC, id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rec, nil
}

func (r *ownershipRepository) ListForWebsite(ctx context.Context, websiteID uint) ([]models.OwnershipRecord, error) {
	var recs []models.OwnershipRecord
	if err := r.db.WithContext(ctx).
		Where("website_id = ?", websiteID).
		Order("created_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recs, nil
}
