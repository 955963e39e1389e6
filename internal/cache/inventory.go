package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CatalogVersionKey    = "catalog:version"
	CatalogPageKeyPrefix = "catalog:v%d:%s"
	WebsiteKeyPrefix     = "website:%d"
	OAuthStateKeyPrefix  = "oauth_state:%s"
	BlacklistKeyPrefix   = "blacklist:%s"
	WSTicketKeyPrefix    = "ws_ticket:%s"
)

const (
	CatalogTTL    = 2 * time.Minute
	WebsiteTTL    = 5 * time.Minute
	OAuthStateTTL = 10 * time.Minute
	WSTicketTTL   = 60 * time.Second
)

func CatalogPageKey(version int64, fingerprint string) string {
	return fmt.Sprintf(CatalogPageKeyPrefix, version, fingerprint)
}

func WebsiteKey(websiteID uint) string {
	return fmt.Sprintf(WebsiteKeyPrefix, websiteID)
}

func OAuthStateKey(nonce string) string {
	return fmt.Sprintf(OAuthStateKeyPrefix, nonce)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateWebsite(ctx context.Context, websiteID uint) {
	Invalidate(ctx, WebsiteKey(websiteID))
}

// CatalogVersion returns the current catalog generation. Pages are keyed by it,
// so bumping the version orphans every cached page at once.
func CatalogVersion(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, CatalogVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// InvalidateCatalog starts a new catalog generation.
func InvalidateCatalog(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, CatalogVersionKey)
	}
}

// StoreOnce writes a single-use marker that TakeOnce consumes.
func StoreOnce(ctx context.Context, key, value string, ttl time.Duration) error {
	if client == nil {
		return errors.New("redis unavailable")
	}
	ok, err := client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("key %s already present", key)
	}
	return nil
}

// TakeOnce atomically reads and deletes key. Returns ("", false, nil) when absent.
func TakeOnce(ctx context.Context, key string) (string, bool, error) {
	if client == nil {
		return "", false, errors.New("redis unavailable")
	}
	v, err := client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
