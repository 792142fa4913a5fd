package handler

import (
	"log"

	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// LogoutHandler clears the auth cookies (including the legacy session
// cookie) and records the refresh token as revoked for the rest of its life.
func LogoutHandler(c *gin.Context, deps *AuthDeps) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err == nil && refreshToken != "" {
		if err := services.RevokeRefreshToken(refreshToken); err != nil {
			// Revocation tracking is best effort; the cookies are gone
			// either way.
			log.Printf("Failed to revoke refresh token: %v", err)
			utils.TrackError("cache", "token_revocation")
		}
	}

	clearAuthCookies(c)
	utils.Success(c, gin.H{"message": "Successfully logged out"})
}
