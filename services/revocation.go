package services

import (
	"context"
	"fmt"
	"time"

	"main/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// RedisTokenRevocation records refresh tokens that were invalidated by
// logout. Each entry lives only as long as the token itself would have.
type RedisTokenRevocation struct {
	Client *redis.Client
}

// TokenRevocation is the shared instance, set at startup. Nil means
// revocation tracking is disabled (tests, local runs without Redis).
var TokenRevocation *RedisTokenRevocation

func NewTokenRevocation(redisURL string) (*RedisTokenRevocation, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenRevocation{Client: client}, nil
}

func revocationKey(token string) string {
	return "revoked:" + token
}

// RevokeRefreshToken stores the token until its natural expiry.
func (tr *RedisTokenRevocation) RevokeRefreshToken(token string) error {
	ttl := utils.RefreshTokenTTL

	// Trim the TTL to the token's remaining life when the claims parse.
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
			if exp, ok := claims["exp"].(float64); ok {
				remaining := time.Until(time.Unix(int64(exp), 0))
				if remaining <= 0 {
					return nil // already expired, nothing to track
				}
				ttl = remaining
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tr.Client.Set(ctx, revocationKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to record revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a refresh token was revoked. Redis errors count
// as not revoked so an outage does not lock everyone out.
func (tr *RedisTokenRevocation) IsRevoked(token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := tr.Client.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		utils.TrackError("cache", "revocation_check_failed")
		return false
	}
	return n > 0
}

// RevokeRefreshToken records a refresh token on the shared instance, if any.
func RevokeRefreshToken(token string) error {
	if TokenRevocation == nil {
		return nil
	}
	return TokenRevocation.RevokeRefreshToken(token)
}

// IsRefreshTokenRevoked checks the shared instance, if any.
func IsRefreshTokenRevoked(token string) bool {
	if TokenRevocation == nil {
		return false
	}
	return TokenRevocation.IsRevoked(token)
}
