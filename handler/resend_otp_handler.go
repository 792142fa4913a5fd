package handler

import (
	"main/dto"
	"main/model"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// ResendOTPHandler re-sends a registration verification code. One dispatch
// per email per cooldown window; violations get the remaining wait back.
func ResendOTPHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	if !deps.Store.Has(pendingKey(req.Email)) {
		utils.NotFound(c, "No pending registration for this email")
		return
	}

	retryAfter, err := deps.TwoFactor.ResendOTP(req.Email, "register")
	if err != nil {
		if retryAfter > 0 {
			utils.TooManyRequests(c, "Please wait before requesting another code", gin.H{
				"retry_after_seconds": retryAfter,
			})
			return
		}
		utils.TrackError("email", "otp_dispatch")
		utils.InternalError(c, "Failed to send verification email")
		return
	}

	utils.Success(c, gin.H{"message": "Verification code sent"})
}

// Resend2FAHandler re-sends a login/2FA code for a user whose email channel
// is enabled. Same cooldown as registration resends.
func Resend2FAHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Failed to send verification code")
		return
	}
	if user == nil || !user.HasTwoFactorMethod(model.TwoFactorEmail) {
		// Same shape as success so the endpoint doesn't reveal which
		// emails have accounts.
		utils.Success(c, gin.H{"message": "Verification code sent"})
		return
	}

	retryAfter, err := deps.TwoFactor.ResendOTP(req.Email, "login")
	if err != nil {
		if retryAfter > 0 {
			utils.TooManyRequests(c, "Please wait before requesting another code", gin.H{
				"retry_after_seconds": retryAfter,
			})
			return
		}
		utils.TrackError("email", "otp_dispatch")
		utils.InternalError(c, "Failed to send verification code")
		return
	}

	utils.Success(c, gin.H{"message": "Verification code sent"})
}
