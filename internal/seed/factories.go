// Package seed provides helpers to create demo publishers, admins and
// website listings. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"guestpost/internal/catalog"
	"guestpost/internal/models"
	"guestpost/internal/ownership"
	"guestpost/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configures the seeder.
type Options struct {
	Publishers  int
	Advertisers int
	Websites    int // per publisher
	ShouldClean bool
	DryRun      bool
	SkipBcrypt  bool
	MaxDays     int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	opt  *catalog.OptionSet
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	set, err := catalog.Options()
	if err != nil {
		return nil, fmt.Errorf("load catalog options: %w", err)
	}
	gofakeit.Seed(time.Now().UnixNano())
	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Factory{db: db, opts: opts, opt: set, rng: rng, nextID: 1000}, nil
}

// CreateUser constructs and persists a sample user with role.
func (f *Factory) CreateUser(role models.Role, overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    strings.ToLower(gofakeit.Email()),
		Role:     role,
	}

	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s (%s)", user.Username, user.Role)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildListing returns listing fields drawn from the catalog options.
func (f *Factory) BuildListing() models.ListingFields {
	categories := f.pick(f.opt.Categories, 1+f.rng.Intn(catalog.MaxCategories))
	return models.ListingFields{
		PublishingPrice:  float64(gofakeit.Number(20, 800)),
		CopywritingPrice: float64(gofakeit.Number(0, 150)),
		DiscountPercentage: func() float64 {
			if f.rng.Intn(3) == 0 {
				return float64(gofakeit.Number(5, 30))
			}
			return 0
		}(),
		Category:            categories[0],
		AllCategories:       categories,
		Keywords:            f.keywords(),
		Country:             f.pick(f.opt.Countries, 1)[0],
		AdditionalCountries: f.pick(f.opt.Countries, f.rng.Intn(catalog.MaxCountries)),
		MainLanguage:        f.pick(f.opt.Languages, 1)[0],
		AdditionalLanguages: f.pick(f.opt.Languages, f.rng.Intn(catalog.MaxLanguages)),
		Description:         gofakeit.Paragraph(1, 3, 12, " "),
	}
}

// BuildWebsite constructs an unsaved listing for owner in status.
func (f *Factory) BuildWebsite(owner *models.User, status models.WebsiteStatus, overrides ...func(*models.Website)) *models.Website {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	created := time.Now().Add(-time.Duration(f.rng.Intn(maxDays*24)) * time.Hour)

	w := &models.Website{
		UserID:             owner.ID,
		Domain:             validation.NormalizeDomain(gofakeit.DomainName()),
		Status:             status,
		VerificationStatus: models.VerificationPending,
		CreatedAt:          created,
	}
	f.BuildListing().ApplyTo(w)

	switch status {
	case models.WebsiteStatusDraft:
		if f.rng.Intn(2) == 0 {
			c := ownership.NewChallenge()
			w.VerificationMethod = models.MethodHTMLFile
			w.VerificationToken = c.Token
			w.VerificationFileName = c.FileName
		}
	case models.WebsiteStatusSubmitted, models.WebsiteStatusUnderReview:
		if f.rng.Intn(4) == 0 {
			w.VerificationMethod = models.MethodAnotherMethod
			w.AnotherMethodReason = gofakeit.Sentence(12)
		} else {
			f.markVerified(w, created)
		}
	case models.WebsiteStatusApproved, models.WebsiteStatusPaused:
		f.markVerified(w, created)
		approved := created.Add(48 * time.Hour)
		w.ApprovedAt = &approved
	case models.WebsiteStatusRejected:
		f.markVerified(w, created)
		w.RejectionReason = gofakeit.Sentence(8)
	}

	for _, override := range overrides {
		override(w)
	}
	return w
}

// CreateWebsite persists a listing built by BuildWebsite, plus its ownership
// record when it is verified.
func (f *Factory) CreateWebsite(owner *models.User, status models.WebsiteStatus, overrides ...func(*models.Website)) (*models.Website, error) {
	w := f.BuildWebsite(owner, status, overrides...)
	if f.opts.DryRun {
		f.nextID++
		w.ID = f.nextID
		log.Printf("[dry-run] CreateWebsite: %s status=%s owner=%d", w.Domain, w.Status, w.UserID)
		return w, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		if !w.IsVerified() {
			return nil
		}
		return tx.Create(&models.OwnershipRecord{
			WebsiteID: w.ID,
			UserID:    w.UserID,
			Domain:    w.Domain,
			Method:    w.VerificationMethod,
			CreatedAt: *w.VerifiedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (f *Factory) markVerified(w *models.Website, created time.Time) {
	methods := []models.VerificationMethod{models.MethodGoogleAnalytics, models.MethodGoogleSearchConsole, models.MethodHTMLFile}
	w.VerificationMethod = methods[f.rng.Intn(len(methods))]
	w.VerificationStatus = models.VerificationVerified
	verified := created.Add(time.Duration(1+f.rng.Intn(24)) * time.Hour)
	w.VerifiedAt = &verified
}

func (f *Factory) keywords() []string {
	sel := catalog.NewSelection(catalog.MaxKeywords)
	for i := 0; i < catalog.MaxKeywords+2; i++ {
		sel.Add(strings.ToLower(gofakeit.HipsterWord()))
	}
	return sel.Values()
}

// pick returns n distinct values from options.
func (f *Factory) pick(options []string, n int) []string {
	if n > len(options) {
		n = len(options)
	}
	out := make([]string, 0, n)
	for _, i := range f.rng.Perm(len(options))[:n] {
		out = append(out, options[i])
	}
	return out
}
