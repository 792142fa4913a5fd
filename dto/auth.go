package dto

type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" binding:"required,min=1,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,password"`
	Role      string `json:"role" binding:"omitempty,oneof=customer seller"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest is multiplexed over every OTP-consuming flow by Action.
type VerifyOTPRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Code   string `json:"code" binding:"required,len=6"`
	Action string `json:"action" binding:"required,oneof=register login enable-2fa disable-2fa"`
}

type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type Toggle2FARequest struct {
	Method string `json:"method" binding:"required,oneof=email authenticator"`
}

type Disable2FARequest struct {
	Method string `json:"method" binding:"required,oneof=email authenticator"`
	Code   string `json:"code" binding:"omitempty,len=6"`
}

// VerifyAuthenticatorRequest completes authenticator enrollment: the client
// echoes the issued secret together with a code generated from it.
type VerifyAuthenticatorRequest struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required,len=6"`
}

// SocialVerifyRequest completes a login deferred into 2FA after an OAuth
// callback. Method is an optional client hint; when absent the code shape
// decides the channel.
type SocialVerifyRequest struct {
	Token  string `json:"token" binding:"required"`
	Code   string `json:"code" binding:"required,len=6"`
	Method string `json:"method" binding:"omitempty,oneof=email authenticator"`
}

type UpdateNotificationsRequest struct {
	LoginNotifications *bool `json:"login_notifications" binding:"required"`
}
