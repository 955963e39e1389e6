package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/config"
	"guestpost/internal/database"
	"guestpost/internal/middleware"
	"guestpost/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.Close()
		_ = sqlDB.Close()
	})

	cfg := &config.Config{
		JWTSecret:    testSecret,
		Port:         "0",
		Env:          "test",
		FeatureFlags: flags,
		FrontendURL:  "https://app.example.com",
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return &testEnv{server: s, app: app, db: db, mr: mr}
}

func (e *testEnv) createUser(t *testing.T, name string, role models.Role) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: name, Email: name + "@example.com", Password: string(hash), Role: role}
	require.NoError(t, e.db.Create(u).Error)
	token, _, err := middleware.IssueToken(testSecret, u.ID, u.Role, time.Now())
	require.NoError(t, err)
	return u, token
}

type apiResult struct {
	Status int
	Body   map[string]any
	Header http.Header
}

func (r apiResult) data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) apiResult {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := apiResult{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}
