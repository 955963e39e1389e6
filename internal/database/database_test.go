package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"guestpost/internal/config"
	"guestpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAutoMigrate_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	w := &models.Website{UserID: 1, Domain: "example.com", Keywords: []string{"seo", "tech"}}
	require.NoError(t, db.Create(w).Error)

	var loaded models.Website
	require.NoError(t, db.First(&loaded, w.ID).Error)
	assert.Equal(t, []string{"seo", "tech"}, []string(loaded.Keywords))
	assert.Equal(t, models.WebsiteStatusDraft, loaded.Status)
	assert.Equal(t, string(models.WebsiteStatusDraft), loaded.Stage)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "gp"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gp sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.True(t, strings.HasSuffix(DSN(cfg), "sslmode=require"))
}

func TestMigrationFiles(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "00001_init.sql", files[0])

	body, err := migrationFS.ReadFile("migrations/" + files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	silent := l.LogMode(logger.Silent)
	silent.Trace(ctx, time.Now().Add(-time.Second), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}
