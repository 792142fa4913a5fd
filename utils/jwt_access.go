package utils

import (
	"log"
	"os"
	"time"
)

var (
	JWTSecretKey       string
	TokenIssuer        string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Pending2FATokenTTL time.Duration
)

// InitJWT loads token configuration from the environment. Access tokens are
// short-lived, refresh tokens survive about a week, and the pending-2FA
// token only has to outlive one verification round-trip.
func InitJWT() {
	// For tests, use default values if environment variables aren't set
	if os.Getenv("GO_ENV") == "test" && os.Getenv("JWT_SECRET_KEY") == "" {
		os.Setenv("JWT_SECRET_KEY", "test_secret_key")
	}

	JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if JWTSecretKey == "" {
		log.Fatal("JWT Secret Key not set")
	}

	TokenIssuer = GetEnvAsString("TOKEN_ISSUER", "shophub")
	AccessTokenTTL = GetEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	RefreshTokenTTL = GetEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	Pending2FATokenTTL = GetEnvAsDuration("PENDING_2FA_TOKEN_TTL", 10*time.Minute)
}
