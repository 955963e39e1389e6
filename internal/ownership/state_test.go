package ownership

import (
	"context"
	"errors"
	"testing"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)
	return mr
}

func TestStateSigner_RoundTrip(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	s := NewStateSigner("state-secret", time.Minute)

	raw, err := s.Issue(ctx, 12, 7, models.MethodGoogleSearchConsole)
	require.NoError(t, err)

	st, err := s.Consume(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, uint(12), st.WebsiteID)
	assert.Equal(t, uint(7), st.UserID)
	assert.Equal(t, models.MethodGoogleSearchConsole, st.Method)

	_, err = s.Consume(ctx, raw)
	assert.True(t, errors.Is(err, ErrStateReplayed))
}

func TestStateSigner_Rejects(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	s := NewStateSigner("state-secret", time.Minute)

	raw, err := s.Issue(ctx, 1, 2, models.MethodGoogleAnalytics)
	require.NoError(t, err)

	t.Run("Wrong secret", func(t *testing.T) {
		_, err := NewStateSigner("other", time.Minute).Consume(ctx, raw)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("Tampered", func(t *testing.T) {
		_, err := s.Consume(ctx, raw+"x")
		assert.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewStateSigner("state-secret", time.Minute)
		later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := later.Parse(raw)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("Non Google method", func(t *testing.T) {
		html, err := s.Issue(ctx, 1, 2, models.MethodHTMLFile)
		require.NoError(t, err)
		_, err = s.Parse(html)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})
}

func TestStateSigner_RedisUnavailable(t *testing.T) {
	cache.Close()
	_, err := NewStateSigner("s", time.Minute).Issue(context.Background(), 1, 2, models.MethodGoogleAnalytics)
	assert.Error(t, err)
}
