package handler

import (
	"main/dto"
	"main/model"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
)

// Verification intents multiplexed over the single verify-otp endpoint.
// Every intent is an explicit case below; the binding rejects anything else.
const (
	ActionRegister   = "register"
	ActionLogin      = "login"
	ActionEnable2FA  = "enable-2fa"
	ActionDisable2FA = "disable-2fa"
)

// VerifyOTPHandler consumes a dispatched OTP. What happens on a match
// depends on the intent: registration promotes the pending record, login
// completes the deferred session, enable confirms the already-committed
// email channel, disable removes it.
func VerifyOTPHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	switch req.Action {
	case ActionRegister:
		verifyRegistration(c, deps, req)
	case ActionLogin:
		verifyLoginOTP(c, deps, req)
	case ActionEnable2FA:
		verifyEnableOTP(c, deps, req)
	case ActionDisable2FA:
		verifyDisableOTP(c, deps, req)
	default:
		utils.BadRequest(c, "Unknown action")
	}
}

func verifyRegistration(c *gin.Context, deps *AuthDeps, req dto.VerifyOTPRequest) {
	raw, found := deps.Store.Get(pendingKey(req.Email))
	if !found {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}
	pending, ok := raw.(*model.PendingRegistration)
	if !ok {
		deps.Store.Delete(pendingKey(req.Email))
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	if err := deps.TwoFactor.VerifyCode(req.Email, req.Code); err != nil {
		utils.TrackAuthAttempt("failure", "registration")
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	user, err := deps.Users.PromotePending(c.Request.Context(), pending)
	if err != nil {
		utils.TrackError("database", "user_creation")
		utils.InternalError(c, "Registration failed")
		return
	}

	// The pending record and the user are mutually exclusive: it goes away
	// the moment the user exists.
	deps.Store.Delete(pendingKey(req.Email))

	utils.TrackAuthAttempt("success", "registration")
	utils.Success(c, gin.H{
		"message": "Email verified. You can now log in.",
		"user": gin.H{
			"user_id": user.UserID,
			"email":   user.Email,
		},
	})
}

func verifyLoginOTP(c *gin.Context, deps *AuthDeps, req dto.VerifyOTPRequest) {
	user, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Verification failed")
		return
	}
	if user == nil || !user.TwoFactorEnabled {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	// Same channel pick as the social bridge: emailed codes always carry
	// letters, so an all-digit code from a user with an authenticator is a
	// TOTP code.
	if isNumericCode(req.Code) && user.HasTwoFactorMethod(model.TwoFactorAuthenticator) {
		if !totp.Validate(req.Code, user.TwoFactorSecret) {
			utils.TrackAuthAttempt("failure", "2fa")
			recordFailedLogin(c, deps, user, "2fa")
			utils.Unauthorized(c, "Invalid or expired verification code")
			return
		}
	} else if err := deps.TwoFactor.VerifyCode(req.Email, req.Code); err != nil {
		utils.TrackAuthAttempt("failure", "2fa")
		recordFailedLogin(c, deps, user, "2fa")
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	response, ok := completeLogin(c, deps, user, "2fa", "")
	if !ok {
		return
	}
	utils.Success(c, response)
}

func verifyEnableOTP(c *gin.Context, deps *AuthDeps, req dto.VerifyOTPRequest) {
	user, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil || user == nil {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	if err := deps.TwoFactor.VerifyCode(req.Email, req.Code); err != nil {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	// The email channel was committed when enablement was requested; this
	// call only proves the mailbox is reachable.
	utils.Success(c, gin.H{
		"message": "Email verification channel confirmed",
		"method":  model.TwoFactorEmail,
	})
}

func verifyDisableOTP(c *gin.Context, deps *AuthDeps, req dto.VerifyOTPRequest) {
	user, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil || user == nil || !user.HasTwoFactorMethod(model.TwoFactorEmail) {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	if err := deps.TwoFactor.VerifyCode(req.Email, req.Code); err != nil {
		utils.Unauthorized(c, "Invalid or expired verification code")
		return
	}

	if err := deps.Users.DisableMethod(c.Request.Context(), user, model.TwoFactorEmail); err != nil {
		utils.TrackError("database", "2fa_disable")
		utils.InternalError(c, "Failed to disable two-factor method")
		return
	}

	remaining := len(user.TwoFactorMethods) - 1
	utils.Success(c, gin.H{
		"message":            "Email two-factor method disabled",
		"two_factor_enabled": remaining > 0,
	})
}
