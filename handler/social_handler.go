package handler

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"main/dto"
	"main/model"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
)

const oauthStateTTL = 10 * time.Minute

func frontendURL() string {
	return utils.GetEnvAsString("FRONTEND_URL", "http://localhost:3000")
}

// SocialLoginHandler starts the OAuth dance by redirecting to the provider.
func SocialLoginHandler(c *gin.Context, deps *AuthDeps) {
	provider := c.Param("provider")
	conf, err := services.OAuthConfig(provider)
	if err != nil {
		utils.BadRequest(c, "Unsupported provider")
		return
	}

	state := uuid.NewString()
	deps.Store.Set("oauthstate:"+state, provider, oauthStateTTL)

	c.Redirect(http.StatusTemporaryRedirect, conf.AuthCodeURL(state))
}

// SocialCallbackHandler receives the provider callback. With 2FA enabled the
// login defers into the verification flow behind a short-lived pending
// token; otherwise it completes on the spot. Either way the client ends up
// back on the frontend with the outcome in the query string.
func SocialCallbackHandler(c *gin.Context, deps *AuthDeps) {
	provider := c.Param("provider")
	state := c.Query("state")
	code := c.Query("code")

	stored, found := deps.Store.Get("oauthstate:" + state)
	deps.Store.Delete("oauthstate:" + state)
	if !found || stored != provider || code == "" {
		redirectWithStatus(c, "failed", "invalid_state")
		return
	}

	profile, err := services.FetchOAuthProfile(c.Request.Context(), provider, code)
	if err != nil {
		log.Printf("OAuth profile fetch failed for %s: %v", provider, err)
		utils.TrackError("oauth", "profile_fetch")
		redirectWithStatus(c, "failed", "provider_error")
		return
	}

	user, err := deps.Users.FindOrCreateFromOAuth(c.Request.Context(), usecase.OAuthIdentity{
		Provider:   profile.Provider,
		ProviderID: profile.ProviderID,
		Email:      profile.Email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
	})
	if err != nil {
		utils.TrackError("database", "oauth_user_resolve")
		redirectWithStatus(c, "failed", "server_error")
		return
	}

	if user.TwoFactorEnabled {
		pendingToken, err := services.GeneratePending2FAToken(user.UserID, provider)
		if err != nil {
			utils.TrackError("auth", "token_generation")
			redirectWithStatus(c, "failed", "server_error")
			return
		}

		if user.HasTwoFactorMethod(model.TwoFactorEmail) {
			if err := deps.TwoFactor.DispatchOTP(user.Email, "social"); err != nil {
				log.Printf("Failed to dispatch social 2FA code to %s: %v", user.Email, err)
			}
		}

		utils.TrackAuthAttempt("pending", "social")
		dest := fmt.Sprintf("%s/verify-2fa?token=%s&methods=%s",
			frontendURL(),
			url.QueryEscape(pendingToken),
			url.QueryEscape(strings.Join(user.TwoFactorMethods, ",")))
		c.Redirect(http.StatusTemporaryRedirect, dest)
		return
	}

	if _, ok := completeLogin(c, deps, user, "social", provider); !ok {
		return
	}

	redirectWithStatus(c, "success", "")
}

func redirectWithStatus(c *gin.Context, status, reason string) {
	dest := fmt.Sprintf("%s/?login=%s", frontendURL(), status)
	if reason != "" {
		dest += "&reason=" + url.QueryEscape(reason)
	}
	c.Redirect(http.StatusTemporaryRedirect, dest)
}

func isNumericCode(code string) bool {
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(code) > 0
}

// SocialVerify2FAHandler finishes a login the callback deferred. The channel
// is picked by the client's explicit method when present; otherwise an
// all-digit code from a user with an authenticator goes to TOTP, anything
// else is checked against the emailed code.
func SocialVerify2FAHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.SocialVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	userID, provider, err := services.ValidateToken(req.Token, services.TokenType2FAPending)
	if err != nil {
		utils.TrackAuthAttempt("failure", "social")
		utils.Unauthorized(c, "Invalid or expired verification session")
		return
	}

	user, err := deps.Users.Users.FindByID(c.Request.Context(), userID)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Verification failed")
		return
	}
	if user == nil || !user.TwoFactorEnabled {
		utils.Unauthorized(c, "Invalid or expired verification session")
		return
	}

	useAuthenticator := req.Method == model.TwoFactorAuthenticator ||
		(req.Method == "" && isNumericCode(req.Code) && user.HasTwoFactorMethod(model.TwoFactorAuthenticator))

	if useAuthenticator {
		if !totp.Validate(req.Code, user.TwoFactorSecret) {
			utils.TrackAuthAttempt("failure", "social")
			recordFailedLogin(c, deps, user, "social-2fa")
			utils.Unauthorized(c, "Invalid verification code")
			return
		}
	} else {
		if err := deps.TwoFactor.VerifyCode(user.Email, req.Code); err != nil {
			utils.TrackAuthAttempt("failure", "social")
			recordFailedLogin(c, deps, user, "social-2fa")
			utils.Unauthorized(c, "Invalid verification code")
			return
		}
	}

	response, ok := completeLogin(c, deps, user, "social-2fa", provider)
	if !ok {
		return
	}
	utils.Success(c, response)
}
