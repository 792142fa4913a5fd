package handler

import (
	"main/dto"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// LoginHandler runs the password login state machine. Unknown email and
// wrong password produce byte-identical responses; a user with two-factor
// enabled gets a partial-success response and no tokens until the second
// factor clears.
func LoginHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.TrackAuthAttempt("failure", "validation")
		utils.BadRequest(c, "Invalid request")
		return
	}

	user, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Login failed")
		return
	}
	if user == nil {
		utils.TrackAuthAttempt("failure", "unknown_email")
		utils.Unauthorized(c, invalidCredentialsMsg)
		return
	}

	match, err := services.VerifyPassword(user.Password, req.Password)
	if err != nil || !match {
		utils.TrackAuthAttempt("failure", "invalid_password")
		recordFailedLogin(c, deps, user, "password")
		utils.Unauthorized(c, invalidCredentialsMsg)
		return
	}

	if user.TwoFactorEnabled {
		methods, err := deps.TwoFactor.LoginChallenge(user)
		if err != nil {
			utils.TrackError("email", "otp_dispatch")
			utils.InternalError(c, "Failed to send verification code")
			return
		}

		utils.TrackAuthAttempt("pending", "2fa")
		utils.Partial(c, gin.H{
			"requires2FA": true,
			"email":       user.Email,
			"methods":     methods,
			"message":     "Two-factor verification required",
		})
		return
	}

	response, ok := completeLogin(c, deps, user, "password", "")
	if !ok {
		return
	}
	utils.Success(c, response)
}
