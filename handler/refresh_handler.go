package handler

import (
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// RefreshTokenHandler rotates the token pair from a valid, non-revoked
// refresh cookie.
func RefreshTokenHandler(c *gin.Context, deps *AuthDeps) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		utils.Unauthorized(c, "Missing refresh token")
		return
	}

	if services.IsRefreshTokenRevoked(refreshToken) {
		utils.TrackAuthAttempt("failure", "refresh")
		utils.Unauthorized(c, "Token has been revoked")
		return
	}

	userID, _, err := services.ValidateToken(refreshToken, services.TokenTypeRefresh)
	if err != nil {
		utils.TrackAuthAttempt("failure", "refresh")
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	user, err := deps.Users.Users.FindByID(c.Request.Context(), userID)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Failed to refresh session")
		return
	}
	if user == nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	newAccessToken, err := services.GenerateAccessToken(userID)
	if err != nil {
		utils.TrackError("auth", "token_generation")
		utils.InternalError(c, "Failed to generate new access token")
		return
	}
	newRefreshToken, err := services.GenerateRefreshToken(userID)
	if err != nil {
		utils.TrackError("auth", "refresh_token_generation")
		utils.InternalError(c, "Failed to generate new refresh token")
		return
	}

	setAuthCookies(c, newAccessToken, newRefreshToken)

	utils.TrackAuthAttempt("success", "refresh")
	utils.Success(c, gin.H{"message": "Session refreshed"})
}
