package handler

import (
	"log"
	"net/http"
	"os"
	"time"

	"main/model"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// Every credential failure surfaces this same message, whether the email is
// unknown or the password wrong.
const invalidCredentialsMsg = "Invalid credentials"

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
	// cookie left over from the pre-JWT session middleware, still cleared
	// on logout for clients that carry it
	legacyCookieName = "session"
)

// AuthDeps bundles the collaborators the auth handlers share. main.go builds
// one and closes over it per route; tests build one around fakes.
type AuthDeps struct {
	Users     *usecase.UserService
	TwoFactor *services.TwoFactor
	Store     services.KeyedStore
	Mailer    services.EmailSender
}

func pendingKey(email string) string {
	return "pending:" + email
}

func setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	secure := os.Getenv("GO_ENV") == "production"
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}

	c.SetCookie(accessCookieName, accessToken, int(utils.AccessTokenTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(refreshCookieName, refreshToken, int(utils.RefreshTokenTTL.Seconds()), "/", "", secure, true)
}

func clearAuthCookies(c *gin.Context) {
	secure := os.Getenv("GO_ENV") == "production"
	c.SetCookie(accessCookieName, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookieName, "", -1, "/", "", secure, true)
	c.SetCookie(legacyCookieName, "", -1, "/", "", secure, true)
}

func containsDevice(devices []string, key string) bool {
	for _, d := range devices {
		if d == key {
			return true
		}
	}
	return false
}

// completeLogin finishes a fully verified login: history entry, cookies and
// the optional notification email. The email goes out in a goroutine so the
// response never waits on SMTP; delivery failures are logged and dropped.
func completeLogin(c *gin.Context, deps *AuthDeps, user *model.User, method, provider string) (gin.H, bool) {
	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()
	deviceKey := utils.DeviceKey(userAgent, ip)
	isNewDevice := !containsDevice(user.KnownDevices, deviceKey)
	location, _ := utils.GetLocationFromIP(ip)

	attempt := model.LoginAttempt{
		Success:     true,
		Method:      method,
		Provider:    provider,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Location:    location,
		IsNewDevice: isNewDevice,
		Timestamp:   time.Now(),
	}
	if err := deps.Users.RecordLoginAttempt(c.Request.Context(), user.UserID, attempt, deviceKey); err != nil {
		log.Printf("Failed to record login attempt for %s: %v", user.UserID, err)
	}

	accessToken, err := services.GenerateAccessToken(user.UserID)
	if err != nil {
		utils.TrackError("auth", "token_generation")
		utils.InternalError(c, "Failed to generate token")
		return nil, false
	}

	refreshToken, err := services.GenerateRefreshToken(user.UserID)
	if err != nil {
		utils.TrackError("auth", "refresh_token_generation")
		utils.InternalError(c, "Failed to generate refresh token")
		return nil, false
	}

	setAuthCookies(c, accessToken, refreshToken)

	if user.LoginNotifications {
		info := services.LoginNotification{
			Time:        attempt.Timestamp,
			IPAddress:   ip,
			Location:    location,
			Device:      utils.DescribeDevice(userAgent),
			Method:      method,
			IsNewDevice: isNewDevice,
		}
		email := user.Email
		go func() {
			if err := deps.Mailer.SendLoginNotification(email, info); err != nil {
				log.Printf("Failed to send login notification to %s: %v", email, err)
			}
		}()
	}

	utils.TrackAuthAttempt("success", method)
	return gin.H{
		"message": "Login successful",
		"user": gin.H{
			"user_id":            user.UserID,
			"email":              user.Email,
			"first_name":         user.FirstName,
			"last_name":          user.LastName,
			"role":               user.Role,
			"two_factor_enabled": user.TwoFactorEnabled,
		},
	}, true
}

// recordFailedLogin appends a failed attempt without touching device history.
func recordFailedLogin(c *gin.Context, deps *AuthDeps, user *model.User, method string) {
	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()
	location, _ := utils.GetLocationFromIP(ip)

	attempt := model.LoginAttempt{
		Success:   false,
		Method:    method,
		IPAddress: ip,
		UserAgent: userAgent,
		Location:  location,
		Timestamp: time.Now(),
	}
	if err := deps.Users.RecordLoginAttempt(c.Request.Context(), user.UserID, attempt, ""); err != nil {
		log.Printf("Failed to record failed login for %s: %v", user.UserID, err)
	}
}
