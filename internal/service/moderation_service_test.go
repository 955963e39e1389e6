package service

import (
	"context"
	"testing"

	"guestpost/internal/models"
	"guestpost/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationService_Transitions(t *testing.T) {
	ctx := context.Background()

	type action func(s *ModerationService, adminID, id uint) (*models.Website, error)
	approve := func(s *ModerationService, a, id uint) (*models.Website, error) { return s.Approve(ctx, a, id) }
	review := func(s *ModerationService, a, id uint) (*models.Website, error) { return s.StartReview(ctx, a, id) }
	reject := func(s *ModerationService, a, id uint) (*models.Website, error) {
		return s.Reject(ctx, a, id, RejectInput{Reason: "Thin content"})
	}
	pause := func(s *ModerationService, a, id uint) (*models.Website, error) { return s.Pause(ctx, a, id) }
	resume := func(s *ModerationService, a, id uint) (*models.Website, error) { return s.Resume(ctx, a, id) }

	tests := []struct {
		name      string
		from      models.WebsiteStatus
		do        action
		want      models.WebsiteStatus
		wantEvent string
		conflict  bool
	}{
		{"Review submitted", models.WebsiteStatusSubmitted, review, models.WebsiteStatusUnderReview, notifications.EventWebsiteUnderReview, false},
		{"Approve submitted", models.WebsiteStatusSubmitted, approve, models.WebsiteStatusApproved, notifications.EventWebsiteApproved, false},
		{"Approve under review", models.WebsiteStatusUnderReview, approve, models.WebsiteStatusApproved, notifications.EventWebsiteApproved, false},
		{"Reject under review", models.WebsiteStatusUnderReview, reject, models.WebsiteStatusRejected, notifications.EventWebsiteRejected, false},
		{"Pause approved", models.WebsiteStatusApproved, pause, models.WebsiteStatusPaused, notifications.EventWebsitePaused, false},
		{"Resume paused", models.WebsiteStatusPaused, resume, models.WebsiteStatusApproved, notifications.EventWebsiteResumed, false},
		{"Approve draft", models.WebsiteStatusDraft, approve, "", "", true},
		{"Reject approved", models.WebsiteStatusApproved, reject, "", "", true},
		{"Pause submitted", models.WebsiteStatusSubmitted, pause, "", "", true},
		{"Resume approved", models.WebsiteStatusApproved, resume, "", "", true},
		{"Review draft", models.WebsiteStatusDraft, review, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServices(t, "")
			owner := createUser(t, ts.db, "owner", models.RolePublisher)
			admin := createUser(t, ts.db, "admin", models.RoleAdmin)
			w := createWebsite(t, ts.db, owner.ID, "example.com", tt.from, models.VerificationPending)

			got, err := tt.do(ts.moderation, admin.ID, w.ID)
			if tt.conflict {
				assertCode(t, err, models.CodeConflict)
				var stored models.Website
				require.NoError(t, ts.db.First(&stored, w.ID).Error)
				assert.Equal(t, tt.from, stored.Status)
				assert.Empty(t, ts.publisher.types())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			require.Len(t, ts.publisher.events, 1)
			assert.Equal(t, owner.ID, ts.publisher.events[0].UserID)
			assert.Equal(t, tt.wantEvent, ts.publisher.events[0].Event.Type)
		})
	}
}

func TestModerationService_ApproveMarksVerified(t *testing.T) {
	ts := newTestServices(t, "")
	ctx := context.Background()
	owner := createUser(t, ts.db, "owner", models.RolePublisher)
	admin := createUser(t, ts.db, "admin", models.RoleAdmin)
	w := createWebsite(t, ts.db, owner.ID, "example.com", models.WebsiteStatusSubmitted, models.VerificationPending)
	require.NoError(t, ts.db.Model(w).Update("needs_re_moderation", true).Error)

	got, err := ts.moderation.Approve(ctx, admin.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, got.VerificationStatus)
	assert.False(t, got.NeedsReModeration)
	assert.NotNil(t, got.ApprovedAt)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, admin.ID, *got.ReviewedBy)
}

func TestModerationService_RejectRequiresReason(t *testing.T) {
	ts := newTestServices(t, "")
	owner := createUser(t, ts.db, "owner", models.RolePublisher)
	w := createWebsite(t, ts.db, owner.ID, "example.com", models.WebsiteStatusSubmitted, models.VerificationVerified)

	_, err := ts.moderation.Reject(context.Background(), 1, w.ID, RejectInput{Reason: " "})
	assertCode(t, err, models.CodeValidation)

	got, err := ts.moderation.Reject(context.Background(), 1, w.ID, RejectInput{Reason: "Spammy outbound links"})
	require.NoError(t, err)
	assert.Equal(t, "Spammy outbound links", got.RejectionReason)
	assert.Equal(t, "Spammy outbound links", ts.publisher.events[0].Event.Payload["reason"])
}

func TestModerationService_Delete(t *testing.T) {
	ts := newTestServices(t, "")
	ctx := context.Background()
	owner := createUser(t, ts.db, "owner", models.RolePublisher)
	w := createWebsite(t, ts.db, owner.ID, "example.com", models.WebsiteStatusApproved, models.VerificationVerified)

	require.NoError(t, ts.moderation.Delete(ctx, 1, w.ID))

	var stored models.Website
	require.NoError(t, ts.db.Unscoped().First(&stored, w.ID).Error)
	assert.Equal(t, models.WebsiteStatusDeleted, stored.Status)
	assert.True(t, stored.DeletedAt.Valid)

	err := ts.moderation.Delete(ctx, 1, w.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestModerationService_SetMethodFlags(t *testing.T) {
	ts := newTestServices(t, "")
	ctx := context.Background()
	owner := createUser(t, ts.db, "owner", models.RolePublisher)
	w := createWebsite(t, ts.db, owner.ID, "example.com", models.WebsiteStatusDraft, models.VerificationPending)

	got, err := ts.moderation.SetMethodFlags(ctx, 1, w.ID, models.MethodFlags{DisableHTMLFile: true, DisableGoogleAnalytics: true})
	require.NoError(t, err)
	assert.True(t, got.DisableHTMLFile)
	assert.True(t, got.DisableGoogleAnalytics)
	assert.False(t, got.DisableGoogleSearchConsole)
	assert.Equal(t, models.WebsiteStatusDraft, got.Status)

	_, err = ts.verification.Initiate(ctx, owner.ID, w.ID, InitiateInput{Method: models.MethodHTMLFile})
	assertCode(t, err, models.CodeValidation)
}

func TestModerationService_List(t *testing.T) {
	ts := newTestServices(t, "")
	ctx := context.Background()
	owner := createUser(t, ts.db, "owner", models.RolePublisher)
	createWebsite(t, ts.db, owner.ID, "a.com", models.WebsiteStatusSubmitted, models.VerificationVerified)
	createWebsite(t, ts.db, owner.ID, "b.com", models.WebsiteStatusSubmitted, models.VerificationPending)
	createWebsite(t, ts.db, owner.ID, "c.com", models.WebsiteStatusApproved, models.VerificationVerified)

	page, err := ts.moderation.List(ctx, ModerationFilter{Status: models.WebsiteStatusSubmitted})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = ts.moderation.List(ctx, ModerationFilter{Stage: models.StageAwaitingModeration})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a.com", page.Items[0].Domain)

	_, err = ts.moderation.List(ctx, ModerationFilter{Status: "bogus"})
	assertCode(t, err, models.CodeValidation)
}
