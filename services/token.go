package services

import (
	"errors"
	"fmt"
	"time"

	"main/utils"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess     = "access"
	TokenTypeRefresh    = "refresh"
	TokenType2FAPending = "2fa-pending"
)

func signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(utils.JWTSecretKey))
}

// GenerateAccessToken issues a short-lived access token for the user.
func GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	return signToken(jwt.MapClaims{
		"user_id": userID,
		"type":    TokenTypeAccess,
		"iss":     utils.TokenIssuer,
		"iat":     now.Unix(),
		"exp":     now.Add(utils.AccessTokenTTL).Unix(),
	})
}

// GenerateRefreshToken issues a long-lived refresh token for the user.
func GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()
	return signToken(jwt.MapClaims{
		"user_id": userID,
		"type":    TokenTypeRefresh,
		"iss":     utils.TokenIssuer,
		"iat":     now.Unix(),
		"exp":     now.Add(utils.RefreshTokenTTL).Unix(),
	})
}

// GeneratePending2FAToken issues the short-lived token that carries a social
// login across the 2FA verification redirect.
func GeneratePending2FAToken(userID, provider string) (string, error) {
	now := time.Now()
	return signToken(jwt.MapClaims{
		"user_id":  userID,
		"provider": provider,
		"type":     TokenType2FAPending,
		"iss":      utils.TokenIssuer,
		"iat":      now.Unix(),
		"exp":      now.Add(utils.Pending2FATokenTTL).Unix(),
	})
}

// ValidateToken parses a token, checks signature, expiry, issuer and type,
// and returns the user id it was issued for. Provider is also returned for
// pending-2FA tokens.
func ValidateToken(tokenString, expectedType string) (userID, provider string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(utils.JWTSecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType != expectedType {
		return "", "", errors.New("invalid token type")
	}

	if iss, _ := claims["iss"].(string); iss != utils.TokenIssuer {
		return "", "", errors.New("invalid token issuer")
	}

	userID, ok = claims["user_id"].(string)
	if !ok || userID == "" {
		return "", "", errors.New("invalid user id in token")
	}

	provider, _ = claims["provider"].(string)
	return userID, provider, nil
}
