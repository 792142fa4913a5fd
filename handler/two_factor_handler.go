package handler

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"main/dto"
	"main/model"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
)

type AuthenticatorEnrollResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

func currentUser(c *gin.Context, deps *AuthDeps) *model.User {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return nil
	}

	user, err := deps.Users.Users.FindByID(c.Request.Context(), userID.(string))
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Failed to fetch user")
		return nil
	}
	if user == nil {
		utils.Unauthorized(c, "Missing or invalid token")
		return nil
	}
	return user
}

// Enable2FAHandler turns on a verification channel. The email channel is
// committed right away and the OTP that follows only proves the mailbox is
// reachable; the authenticator channel commits nothing here and directs the
// client to the enrollment endpoint instead.
func Enable2FAHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.Toggle2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user := currentUser(c, deps)
	if user == nil {
		return
	}

	if user.HasTwoFactorMethod(req.Method) {
		utils.BadRequest(c, "Method is already enabled")
		return
	}

	switch req.Method {
	case model.TwoFactorEmail:
		if err := deps.TwoFactor.DispatchOTP(user.Email, "enable-2fa"); err != nil {
			utils.TrackError("email", "otp_dispatch")
			utils.InternalError(c, "Failed to send verification email")
			return
		}

		if err := deps.Users.EnableMethod(c.Request.Context(), user, model.TwoFactorEmail); err != nil {
			utils.TrackError("database", "2fa_enable")
			utils.InternalError(c, "Failed to enable two-factor method")
			return
		}

		utils.Success(c, gin.H{
			"message":           "Email two-factor enabled. A confirmation code was sent to your inbox.",
			"method":            model.TwoFactorEmail,
			"verification_sent": true,
		})

	case model.TwoFactorAuthenticator:
		utils.Success(c, gin.H{
			"message":             "Authenticator enrollment required",
			"method":              model.TwoFactorAuthenticator,
			"enrollment_required": true,
		})
	}
}

// Disable2FAHandler starts (email) or completes (authenticator) removal of a
// channel. Email removal finishes in verify-otp once the emailed code comes
// back; authenticator removal needs a valid TOTP code in this call.
func Disable2FAHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.Disable2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user := currentUser(c, deps)
	if user == nil {
		return
	}

	if !user.HasTwoFactorMethod(req.Method) {
		utils.BadRequest(c, "Method is not enabled")
		return
	}

	switch req.Method {
	case model.TwoFactorEmail:
		if err := deps.TwoFactor.DispatchOTP(user.Email, "disable-2fa"); err != nil {
			utils.TrackError("email", "otp_dispatch")
			utils.InternalError(c, "Failed to send verification email")
			return
		}

		utils.Success(c, gin.H{
			"message":           "Confirm removal with the code sent to your email",
			"verification_sent": true,
		})

	case model.TwoFactorAuthenticator:
		if req.Code == "" {
			utils.BadRequest(c, "Authenticator code required")
			return
		}
		if !totp.Validate(req.Code, user.TwoFactorSecret) {
			utils.Unauthorized(c, "Invalid authenticator code")
			return
		}

		if err := deps.Users.DisableMethod(c.Request.Context(), user, model.TwoFactorAuthenticator); err != nil {
			utils.TrackError("database", "2fa_disable")
			utils.InternalError(c, "Failed to disable two-factor method")
			return
		}

		utils.Success(c, gin.H{
			"message":            "Authenticator two-factor method disabled",
			"two_factor_enabled": len(user.TwoFactorMethods) > 1,
		})
	}
}

// GenerateAuthenticatorHandler creates a TOTP secret and enrollment QR.
// Nothing is stored server-side until the verify call succeeds.
func GenerateAuthenticatorHandler(c *gin.Context, deps *AuthDeps) {
	user := currentUser(c, deps)
	if user == nil {
		return
	}

	if user.HasTwoFactorMethod(model.TwoFactorAuthenticator) {
		utils.BadRequest(c, "Authenticator is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      utils.TokenIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		utils.TrackError("auth", "totp_generation")
		utils.InternalError(c, "Failed to generate authenticator secret")
		return
	}

	var buf bytes.Buffer
	img, err := key.Image(200, 200)
	if err != nil {
		utils.InternalError(c, "Failed to generate QR code")
		return
	}
	if err := png.Encode(&buf, img); err != nil {
		utils.InternalError(c, "Failed to encode QR code")
		return
	}

	utils.Success(c, AuthenticatorEnrollResponse{
		Secret: key.Secret(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// VerifyAuthenticatorHandler completes enrollment: the client echoes the
// secret with a code from the app, and only a valid pair commits the secret
// and the method.
func VerifyAuthenticatorHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.VerifyAuthenticatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user := currentUser(c, deps)
	if user == nil {
		return
	}

	if user.HasTwoFactorMethod(model.TwoFactorAuthenticator) {
		utils.BadRequest(c, "Authenticator is already enabled")
		return
	}

	if !totp.Validate(req.Code, req.Secret) {
		utils.TrackAuthAttempt("failure", "2fa")
		utils.Unauthorized(c, "Invalid authenticator code")
		return
	}

	ctx := c.Request.Context()
	if err := deps.Users.Users.SetAuthenticatorSecret(ctx, user.UserID, req.Secret); err != nil {
		utils.TrackError("database", "2fa_enable")
		utils.InternalError(c, "Failed to enable authenticator")
		return
	}
	if err := deps.Users.EnableMethod(ctx, user, model.TwoFactorAuthenticator); err != nil {
		utils.TrackError("database", "2fa_enable")
		utils.InternalError(c, "Failed to enable authenticator")
		return
	}

	utils.TrackAuthAttempt("success", "2fa")
	utils.Success(c, gin.H{
		"message": "Authenticator two-factor enabled",
		"method":  model.TwoFactorAuthenticator,
	})
}
