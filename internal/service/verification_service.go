package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"guestpost/internal/featureflags"
	"guestpost/internal/middleware"
	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/observability"
	"guestpost/internal/ownership"
	"guestpost/internal/repository"
	"guestpost/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// HTMLChecker fetches and compares the html_file challenge.
type HTMLChecker interface {
	Check(ctx context.Context, domain, fileName, expected string) error
}

// GoogleVerifier runs the Google OAuth leg and the property lookups.
type GoogleVerifier interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ownership.Tokens, error)
	Check(ctx context.Context, method models.VerificationMethod, domain string, tokens ownership.Tokens) (ownership.Result, error)
}

// StateStore issues and consumes the signed OAuth state.
type StateStore interface {
	Issue(ctx context.Context, websiteID, userID uint, method models.VerificationMethod) (string, error)
	Consume(ctx context.Context, raw string) (*ownership.OAuthState, error)
}

// InitiateInput is the body of POST /api/websites/:id/verification/initiate.
type InitiateInput struct {
	Method models.VerificationMethod `json:"verificationMethod"`
}

// InitiateResult carries method-specific instructions.
type InitiateResult struct {
	FileName         string `json:"fileName,omitempty"`
	FileContent      string `json:"fileContent,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
	AuthRequired     bool   `json:"authRequired,omitempty"`
	GoogleAuthURL    string `json:"googleAuthUrl,omitempty"`
}

// VerifyInput is the body of POST /api/websites/:id/verification/verify.
type VerifyInput struct {
	GoogleTokens *ownership.Tokens `json:"googleTokens"`
	Reason       string            `json:"reason"`
}

// VerifyResult reports the outcome of a verification attempt.
type VerifyResult struct {
	Website              *models.Website `json:"website"`
	Verified             bool            `json:"verified"`
	OwnershipTransferred bool            `json:"ownershipTransferred"`
}

type VerificationService struct {
	db          *gorm.DB
	websites    repository.WebsiteRepository
	users       repository.UserRepository
	records     repository.OwnershipRepository
	html        HTMLChecker
	google      GoogleVerifier
	state       StateStore
	flags       *featureflags.Manager
	publisher   notifications.Publisher
	audit       *observability.AuditLogger
	frontendURL string
	now         func() time.Time
}

// VerificationDeps groups the collaborators of VerificationService. Google may be nil when
// the OAuth client is not configured.
type VerificationDeps struct {
	DB          *gorm.DB
	Websites    repository.WebsiteRepository
	Users       repository.UserRepository
	Records     repository.OwnershipRepository
	HTML        HTMLChecker
	Google      GoogleVerifier
	State       StateStore
	Flags       *featureflags.Manager
	Publisher   notifications.Publisher
	Audit       *observability.AuditLogger
	FrontendURL string
}

func NewVerificationService(d VerificationDeps) *VerificationService {
	return &VerificationService{
		db:          d.DB,
		websites:    d.Websites,
		users:       d.Users,
		records:     d.Records,
		html:        d.HTML,
		google:      d.Google,
		state:       d.State,
		flags:       d.Flags,
		publisher:   d.Publisher,
		audit:       d.Audit,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		now:         time.Now,
	}
}

func (s *VerificationService) checkMethodUsable(w *models.Website, method models.VerificationMethod, userID uint) error {
	if !method.IsValid() {
		return models.NewValidationError(fmt.Sprintf("Unknown verification method %q", method))
	}
	if w.Status == models.WebsiteStatusApproved {
		return models.NewValidationError("Website is already approved")
	}
	if w.MethodDisabled(method) {
		return models.NewValidationError("This verification method has been disabled for this website")
	}
	if !s.flags.MethodAllowed(string(method), userID) {
		return models.NewValidationError("This verification method is currently unavailable")
	}
	if method.IsGoogle() && s.google == nil {
		return models.NewValidationError("Google verification is not configured")
	}
	return nil
}

// Initiate prepares a verification attempt for the chosen method.
func (s *VerificationService) Initiate(ctx context.Context, userID, websiteID uint, in InitiateInput) (res *InitiateResult, err error) {
	ctx, span := observability.StartSpan(ctx, "VerificationService", "Initiate",
		attribute.Int("website.id", int(websiteID)),
		attribute.String("method", string(in.Method)),
	)
	defer func() { observability.EndSpan(span, err) }()

	w, err := loadOwned(ctx, s.websites, s.users, userID, websiteID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMethodUsable(w, in.Method, userID); err != nil {
		return nil, err
	}

	res = &InitiateResult{}
	err = withLockedWebsite(ctx, s.db, s.websites, websiteID, func(_ *gorm.DB, websites repository.WebsiteRepository, locked *models.Website) error {
		if err := s.checkMethodUsable(locked, in.Method, userID); err != nil {
			return err
		}

		switch in.Method {
		case models.MethodHTMLFile:
			ch := ownership.NewChallenge()
			if locked.VerificationMethod == models.MethodHTMLFile && locked.VerificationToken != "" {
				ch = ownership.ChallengeFor(locked.VerificationToken)
			}
			locked.VerificationToken = ch.Token
			locked.VerificationFileName = ch.FileName
			res.FileName = ch.FileName
			res.FileContent = ch.Content
			res.VerificationCode = ch.Token

		case models.MethodGoogleAnalytics, models.MethodGoogleSearchConsole:
			state, err := s.state.Issue(ctx, locked.ID, userID, in.Method)
			if err != nil {
				return models.NewInternalError(err)
			}
			res.AuthRequired = true
			res.GoogleAuthURL = s.google.AuthCodeURL(state)
		}

		locked.VerificationMethod = in.Method
		if err := websites.Update(ctx, locked); err != nil {
			return err
		}
		w = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, w, false)
	return res, nil
}

// Verify runs the check for the website's chosen method and records the result.
func (s *VerificationService) Verify(ctx context.Context, userID, websiteID uint, in VerifyInput) (res *VerifyResult, err error) {
	ctx, span := observability.StartSpan(ctx, "VerificationService", "Verify", attribute.Int("website.id", int(websiteID)))
	defer func() { observability.EndSpan(span, err) }()

	w, err := loadOwned(ctx, s.websites, s.users, userID, websiteID)
	if err != nil {
		return nil, err
	}
	method := w.VerificationMethod
	if method == "" {
		return nil, models.NewValidationError("Choose a verification method first")
	}
	if err := s.checkMethodUsable(w, method, userID); err != nil {
		return nil, err
	}

	if method == models.MethodAnotherMethod {
		return s.requestManualReview(ctx, userID, w.ID, in.Reason)
	}

	start := s.now()
	var accountEmail string
	switch method {
	case models.MethodHTMLFile:
		if w.VerificationToken == "" {
			return nil, models.NewValidationError("Start html file verification first")
		}
		ch := ownership.ChallengeFor(w.VerificationToken)
		err = s.html.Check(ctx, w.Domain, ch.FileName, ch.Content)
	default:
		if in.GoogleTokens == nil || in.GoogleTokens.AccessToken == "" {
			return nil, models.NewValidationError("Google authorization is required")
		}
		var out ownership.Result
		out, err = s.google.Check(ctx, method, w.Domain, *in.GoogleTokens)
		accountEmail = out.AccountEmail
	}
	if err != nil {
		observability.RecordVerification(string(method), observability.OutcomeFailed, start)
		s.audit.LogFailure(ctx, userID, w.ID, "verify", err)
		return nil, models.NewValidationError(checkFailureMessage(err))
	}

	res, err = s.markVerified(ctx, userID, w.ID, method, accountEmail)
	if err != nil {
		return nil, err
	}

	outcome := observability.OutcomeVerified
	if res.OwnershipTransferred {
		outcome = observability.OutcomeTransferred
	}
	observability.RecordVerification(string(method), outcome, start)
	return res, nil
}

func checkFailureMessage(err error) string {
	if errors.Is(err, ownership.ErrNotVerified) {
		msg := strings.TrimPrefix(err.Error(), ownership.ErrNotVerified.Error()+": ")
		return "Verification failed: " + msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Verification failed: the website did not respond in time"
	}
	return "Verification failed: " + err.Error()
}

func (s *VerificationService) requestManualReview(ctx context.Context, userID, websiteID uint, reason string) (*VerifyResult, error) {
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateReason(reason); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var (
		site *models.Website
		from models.WebsiteStatus
	)
	err := withLockedWebsite(ctx, s.db, s.websites, websiteID, func(_ *gorm.DB, websites repository.WebsiteRepository, w *models.Website) error {
		if err := s.checkMethodUsable(w, models.MethodAnotherMethod, userID); err != nil {
			return err
		}
		if w.VerificationMethod != models.MethodAnotherMethod {
			return models.NewConflictError("Verification method changed, start again")
		}
		if w.Status == models.WebsiteStatusUnderReview || w.Status == models.WebsiteStatusPaused {
			return models.NewConflictError(fmt.Sprintf("Website is %s", w.Status))
		}

		from = w.Status
		w.AnotherMethodReason = reason
		w.Status = models.WebsiteStatusSubmitted
		if err := websites.Update(ctx, w); err != nil {
			return err
		}
		site = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, site, false)

	observability.RecordVerification(string(models.MethodAnotherMethod), observability.OutcomePending, s.now())
	s.audit.LogTransition(ctx, userID, site.ID, "request_manual_review", string(from), string(site.Status))
	publishAdmins(ctx, s.publisher, notifications.NewEvent(notifications.EventWebsiteSubmitted, site.ID, websitePayload(site)))
	return &VerifyResult{Website: site}, nil
}

// markVerified flips the listing to verified and removes other accounts' listings
// of the domain. Only previously verified listings count as an ownership transfer.
func (s *VerificationService) markVerified(ctx context.Context, userID, websiteID uint, method models.VerificationMethod, accountEmail string) (*VerifyResult, error) {
	var (
		site        *models.Website
		from        models.WebsiteStatus
		previous    []models.Website
		prevStatus  []models.WebsiteStatus
		transferred bool
	)

	err := withLockedWebsite(ctx, s.db, s.websites, websiteID, func(tx *gorm.DB, websites repository.WebsiteRepository, w *models.Website) error {
		if err := s.checkMethodUsable(w, method, userID); err != nil {
			return err
		}
		if w.VerificationMethod != method {
			return models.NewConflictError("Verification method changed, start again")
		}
		from = w.Status

		var err error
		previous, err = websites.FindLiveByDomainExcludingUser(ctx, w.Domain, w.UserID)
		if err != nil {
			return err
		}

		rec := &models.OwnershipRecord{
			WebsiteID:          w.ID,
			UserID:             w.UserID,
			Domain:             w.Domain,
			Method:             method,
			GoogleAccountEmail: accountEmail,
		}
		for i := range previous {
			if previous[i].IsVerified() && rec.TransferredFromUserID == nil {
				prev := previous[i].UserID
				rec.TransferredFromUserID = &prev
			}
			prevStatus = append(prevStatus, previous[i].Status)
			if err := websites.SoftDelete(ctx, &previous[i]); err != nil {
				return err
			}
		}
		transferred = rec.TransferredFromUserID != nil

		now := s.now().UTC()
		w.VerificationStatus = models.VerificationVerified
		w.Status = models.WebsiteStatusSubmitted
		w.VerifiedAt = &now
		if err := websites.Update(ctx, w); err != nil {
			return err
		}
		if err := s.records.WithTx(tx).Append(ctx, rec); err != nil {
			return err
		}

		site = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	catalogChanged := false
	for i := range previous {
		p := &previous[i]
		if prevStatus[i] == models.WebsiteStatusApproved {
			catalogChanged = true
		}
		invalidate(ctx, p, false)

		action, eventType := "removed_unverified_duplicate", notifications.EventWebsiteDeleted
		if p.IsVerified() {
			action, eventType = "ownership_transferred", notifications.EventWebsiteOwnershipTransferred
		}
		s.audit.LogTransition(ctx, userID, p.ID, action, string(prevStatus[i]), string(models.WebsiteStatusDeleted),
			"new_owner_id", site.UserID)
		publishUser(ctx, s.publisher, p.UserID, notifications.NewEvent(eventType, p.ID, map[string]any{
			"domain": p.Domain,
		}))
	}
	invalidate(ctx, site, catalogChanged)

	s.audit.LogTransition(ctx, userID, site.ID, "verify", string(from), string(site.Status), "method", string(method))
	publishUser(ctx, s.publisher, site.UserID, notifications.NewEvent(notifications.EventWebsiteVerified, site.ID, websitePayload(site)))
	publishAdmins(ctx, s.publisher, notifications.NewEvent(notifications.EventWebsiteSubmitted, site.ID, websitePayload(site)))

	return &VerifyResult{Website: site, Verified: true, OwnershipTransferred: transferred}, nil
}

// HandleOAuthCallback finishes the Google redirect and returns where to send the browser.
func (s *VerificationService) HandleOAuthCallback(ctx context.Context, code, rawState, errParam string) string {
	if errParam != "" {
		return s.errorRedirect("Google authorization was not granted: " + errParam)
	}
	if s.google == nil {
		return s.errorRedirect("Google verification is not configured")
	}

	st, err := s.state.Consume(ctx, rawState)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "rejected oauth state", slog.String("error", err.Error()))
		return s.errorRedirect("Invalid or expired verification session, please start again")
	}
	if code == "" {
		return s.errorRedirect("Missing authorization code")
	}

	tokens, err := s.google.Exchange(ctx, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "oauth code exchange failed",
			slog.Uint64("website_id", uint64(st.WebsiteID)),
			slog.String("error", err.Error()),
		)
		return s.errorRedirect("Could not complete Google sign-in")
	}

	encoded, err := json.Marshal(tokens)
	if err != nil {
		return s.errorRedirect("Could not complete Google sign-in")
	}

	q := url.Values{}
	q.Set("websiteId", strconv.FormatUint(uint64(st.WebsiteID), 10))
	q.Set("method", string(st.Method))
	q.Set("tokens", string(encoded))
	return s.frontendURL + "/verification/success?" + q.Encode()
}

func (s *VerificationService) errorRedirect(message string) string {
	q := url.Values{}
	q.Set("error", message)
	return s.frontendURL + "/verification/error?" + q.Encode()
}
