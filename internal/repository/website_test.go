package repository

import (
	"context"
	"testing"

	"guestpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWebsiteRepository_CRUD(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")

	w := &models.Website{UserID: owner.ID, Domain: "example.com", Status: models.WebsiteStatusDraft, VerificationStatus: models.VerificationPending}
	require.NoError(t, repo.Create(ctx, w))
	require.NotZero(t, w.ID)
	assert.Equal(t, "draft", w.Stage)

	got, err := repo.GetByUserAndDomain(ctx, owner.ID, "example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.ID, got.ID)

	none, err := repo.GetByUserAndDomain(ctx, owner.ID, "other.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	got.VerificationStatus = models.VerificationVerified
	got.Status = models.WebsiteStatusSubmitted
	got.Keywords = []string{"travel"}
	require.NoError(t, repo.Update(ctx, got))
	assert.Equal(t, models.StageAwaitingModeration, got.Stage)

	reloaded, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageAwaitingModeration, reloaded.Stage)
	assert.Equal(t, []string{"travel"}, []string(reloaded.Keywords))

	locked, err := repo.GetForUpdate(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, locked.ID)

	_, err = repo.GetByID(ctx, 9999)
	assert.Equal(t, 404, models.StatusFor(err))
}

func TestWebsiteRepository_SoftDelete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")

	w := &models.Website{UserID: owner.ID, Domain: "gone.com", Status: models.WebsiteStatusApproved}
	require.NoError(t, repo.Create(ctx, w))
	require.NoError(t, repo.SoftDelete(ctx, w))
	assert.Equal(t, models.WebsiteStatusDeleted, w.Status)

	_, err := repo.GetByID(ctx, w.ID)
	assert.Equal(t, 404, models.StatusFor(err))

	var raw models.Website
	require.NoError(t, db.Unscoped().First(&raw, w.ID).Error)
	assert.Equal(t, models.WebsiteStatusDeleted, raw.Status)
	assert.True(t, raw.DeletedAt.Valid)

	// a deleted listing does not block re-adding the domain
	again, err := repo.GetByUserAndDomain(ctx, owner.ID, "gone.com")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestWebsiteRepository_FindLiveByDomainExcludingUser(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	require.NoError(t, repo.Create(ctx, &models.Website{UserID: alice.ID, Domain: "shared.com", Status: models.WebsiteStatusApproved}))
	require.NoError(t, repo.Create(ctx, &models.Website{UserID: bob.ID, Domain: "shared.com", Status: models.WebsiteStatusDraft}))
	deleted := &models.Website{UserID: carol.ID, Domain: "shared.com", Status: models.WebsiteStatusDraft}
	require.NoError(t, repo.Create(ctx, deleted))
	require.NoError(t, repo.SoftDelete(ctx, deleted))

	others, err := repo.FindLiveByDomainExcludingUser(ctx, "shared.com", bob.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, alice.ID, others[0].UserID)
}

func TestWebsiteRepository_List(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")

	fixtures := []*models.Website{
		{UserID: owner.ID, Domain: "a.com", Status: models.WebsiteStatusApproved, Category: "Tech", Country: "US", MainLanguage: "English", PublishingPrice: 50},
		{UserID: owner.ID, Domain: "b.com", Status: models.WebsiteStatusApproved, Category: "Travel", Country: "DE", MainLanguage: "German", PublishingPrice: 150},
		{UserID: owner.ID, Domain: "c.com", Status: models.WebsiteStatusSubmitted, VerificationStatus: models.VerificationVerified},
		{UserID: other.ID, Domain: "d.com", Status: models.WebsiteStatusSubmitted, VerificationStatus: models.VerificationPending},
	}
	for _, w := range fixtures {
		require.NoError(t, repo.Create(ctx, w))
	}

	tests := []struct {
		name    string
		filter  WebsiteFilter
		domains []string
	}{
		{"By owner", WebsiteFilter{UserID: other.ID}, []string{"d.com"}},
		{"Approved", WebsiteFilter{Status: models.WebsiteStatusApproved}, []string{"b.com", "a.com"}},
		{"Awaiting moderation", WebsiteFilter{Stage: models.StageAwaitingModeration}, []string{"c.com"}},
		{"Category", WebsiteFilter{Status: models.WebsiteStatusApproved, Category: "Tech"}, []string{"a.com"}},
		{"Country", WebsiteFilter{Country: "DE"}, []string{"b.com"}},
		{"Language", WebsiteFilter{Language: "English"}, []string{"a.com"}},
		{"Max price", WebsiteFilter{Status: models.WebsiteStatusApproved, MaxPublishingPrice: 100}, []string{"a.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.domains)), total)
			var got []string
			for _, s := range sites {
				got = append(got, s.Domain)
			}
			assert.ElementsMatch(t, tt.domains, got)
		})
	}

	page, total, err := repo.List(ctx, WebsiteFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 1)
}

func TestWebsiteRepository_WithTxRollback(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, &models.Website{UserID: owner.ID, Domain: "tx.com"}); err != nil {
			return err
		}
		return models.NewConflictError("abort")
	})
	require.Error(t, err)

	got, err := repo.GetByUserAndDomain(ctx, owner.ID, "tx.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOwnershipRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewOwnershipRepository(db)
	sites := NewWebsiteRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")

	none, err := repo.LatestForDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	w := &models.Website{UserID: owner.ID, Domain: "example.com"}
	require.NoError(t, sites.Create(ctx, w))

	prev := uint(77)
	require.NoError(t, repo.Append(ctx, &models.OwnershipRecord{WebsiteID: w.ID, UserID: owner.ID, Domain: "example.com", Method: models.MethodHTMLFile}))
	require.NoError(t, repo.Append(ctx, &models.OwnershipRecord{WebsiteID: w.ID, UserID: owner.ID, Domain: "example.com", Method: models.MethodGoogleAnalytics, TransferredFromUserID: &prev}))

	latest, err := repo.LatestForDomain(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.MethodGoogleAnalytics, latest.Method)
	require.NotNil(t, latest.TransferredFromUserID)
	assert.Equal(t, prev, *latest.TransferredFromUserID)

	history, err := repo.WithTx(db).ListForWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
