package handler

import (
	"main/dto"
	"main/utils"

	"github.com/gin-gonic/gin"
)

func GetProfileHandler(c *gin.Context, deps *AuthDeps) {
	user := currentUser(c, deps)
	if user == nil {
		return
	}

	utils.Success(c, gin.H{
		"user_id":             user.UserID,
		"email":               user.Email,
		"first_name":          user.FirstName,
		"last_name":           user.LastName,
		"role":                user.Role,
		"created_at":          user.CreatedAt,
		"two_factor_enabled":  user.TwoFactorEnabled,
		"two_factor_methods":  user.TwoFactorMethods,
		"login_notifications": user.LoginNotifications,
	})
}

// GetLoginHistoryHandler returns the most recent login attempts, newest
// first.
func GetLoginHistoryHandler(c *gin.Context, deps *AuthDeps) {
	user := currentUser(c, deps)
	if user == nil {
		return
	}

	const maxEntries = 20
	history := user.LoginHistory
	if len(history) > maxEntries {
		history = history[len(history)-maxEntries:]
	}

	// newest first
	reversed := make([]interface{}, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		reversed = append(reversed, history[i])
	}

	utils.Success(c, gin.H{"login_history": reversed})
}

func UpdateNotificationsHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.UpdateNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user := currentUser(c, deps)
	if user == nil {
		return
	}

	if err := deps.Users.Users.SetLoginNotifications(c.Request.Context(), user.UserID, *req.LoginNotifications); err != nil {
		utils.TrackError("database", "notifications_update")
		utils.InternalError(c, "Failed to update preferences")
		return
	}

	utils.Success(c, gin.H{
		"message":             "Preferences updated",
		"login_notifications": *req.LoginNotifications,
	})
}
