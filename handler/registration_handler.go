package handler

import (
	"time"

	"main/dto"
	"main/model"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

// How long an unverified registration waits in the store before it is
// silently forgotten.
const pendingRegistrationTTL = 24 * time.Hour

// RegistrationHandler stashes a pending registration and emails the
// verification code. No user record exists until the code is verified.
func RegistrationHandler(c *gin.Context, deps *AuthDeps) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.TrackAuthAttempt("failure", "registration")
		utils.BadRequest(c, "Invalid request")
		return
	}

	existing, err := deps.Users.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		utils.TrackError("database", "user_lookup")
		utils.InternalError(c, "Registration failed")
		return
	}
	if existing != nil {
		utils.Conflict(c, "Email already registered")
		return
	}

	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		utils.TrackError("auth", "password_hashing")
		utils.InternalError(c, "Registration failed")
		return
	}

	pending := &model.PendingRegistration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hashed,
		Role:      req.Role,
		CreatedAt: time.Now(),
	}
	// A repeat registration for the same email just replaces the old
	// pending record.
	deps.Store.Set(pendingKey(req.Email), pending, pendingRegistrationTTL)

	if err := deps.TwoFactor.DispatchOTP(req.Email, "register"); err != nil {
		utils.TrackError("email", "otp_dispatch")
		utils.InternalError(c, "Failed to send verification email")
		return
	}

	utils.TrackAuthAttempt("pending", "registration")
	utils.Created(c, gin.H{
		"message": "Registration pending. Check your email for the verification code.",
		"email":   req.Email,
	})
}
