package cache

import (
	"context"
	"fmt"
	"time"
)

// revokedTokenPrefix is the Redis key prefix for logged-out token ids.
const revokedTokenPrefix = "auth:revoked:"

func revokedTokenKey(tokenID string) string {
	return revokedTokenPrefix + tokenID
}

// RevokeToken denylists a token id until the token would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, revokedTokenKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token id has been logged out.
func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
