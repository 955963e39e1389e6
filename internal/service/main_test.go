package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"guestpost/internal/cache"
	"guestpost/internal/database"
	"guestpost/internal/featureflags"
	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/observability"
	"guestpost/internal/ownership"
	"guestpost/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)
	return mr
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createWebsite(t *testing.T, db *gorm.DB, userID uint, domain string, status models.WebsiteStatus, vs models.VerificationStatus) *models.Website {
	t.Helper()
	w := &models.Website{UserID: userID, Domain: domain, Status: status, VerificationStatus: vs}
	require.NoError(t, db.Create(w).Error)
	return w
}

type sentEvent struct {
	UserID uint
	Admins bool
	Event  notifications.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{UserID: userID, Event: ev})
	return nil
}

func (p *recordingPublisher) PublishAdmins(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{Admins: true, Event: ev})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event.Type)
	}
	return out
}

type htmlCheckerStub struct {
	checkFn func(ctx context.Context, domain, fileName, expected string) error
	calls   int
}

func (s *htmlCheckerStub) Check(ctx context.Context, domain, fileName, expected string) error {
	s.calls++
	if s.checkFn == nil {
		return nil
	}
	return s.checkFn(ctx, domain, fileName, expected)
}

type googleStub struct {
	exchangeFn func(ctx context.Context, code string) (*ownership.Tokens, error)
	checkFn    func(ctx context.Context, method models.VerificationMethod, domain string, tokens ownership.Tokens) (ownership.Result, error)
}

func (g *googleStub) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (g *googleStub) Exchange(ctx context.Context, code string) (*ownership.Tokens, error) {
	if g.exchangeFn == nil {
		return &ownership.Tokens{AccessToken: "access-" + code}, nil
	}
	return g.exchangeFn(ctx, code)
}

func (g *googleStub) Check(ctx context.Context, method models.VerificationMethod, domain string, tokens ownership.Tokens) (ownership.Result, error) {
	if g.checkFn == nil {
		return ownership.Result{}, nil
	}
	return g.checkFn(ctx, method, domain, tokens)
}

type testServices struct {
	db           *gorm.DB
	publisher    *recordingPublisher
	html         *htmlCheckerStub
	google       *googleStub
	websites     *WebsiteService
	verification *VerificationService
	moderation   *ModerationService
}

func newTestServices(t *testing.T, flags string) *testServices {
	t.Helper()
	db := setupDB(t)
	websites := repository.NewWebsiteRepository(db)
	users := repository.NewUserRepository(db)
	records := repository.NewOwnershipRepository(db)
	pub := &recordingPublisher{}
	audit := observability.NewAuditLogger(nil)
	html := &htmlCheckerStub{}
	google := &googleStub{}

	return &testServices{
		db:        db,
		publisher: pub,
		html:      html,
		google:    google,
		websites:  NewWebsiteService(db, websites, users, pub, audit, 0),
		verification: NewVerificationService(VerificationDeps{
			DB:          db,
			Websites:    websites,
			Users:       users,
			Records:     records,
			HTML:        html,
			Google:      google,
			State:       ownership.NewStateSigner("state-secret", 0),
			Flags:       featureflags.NewManager(flags),
			Publisher:   pub,
			Audit:       audit,
			FrontendURL: "https://app.example.com/",
		}),
		moderation: NewModerationService(db, websites, pub, audit),
	}
}

// interleavingWebsites runs before once, right after the first unlocked read,
// so another request commits between a service's read and its write.
type interleavingWebsites struct {
	repository.WebsiteRepository
	once   sync.Once
	before func()
}

func (r *interleavingWebsites) GetByID(ctx context.Context, id uint) (*models.Website, error) {
	w, err := r.WebsiteRepository.GetByID(ctx, id)
	r.once.Do(r.before)
	return w, err
}
