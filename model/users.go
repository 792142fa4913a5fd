package model

import "time"

// Two-factor verification channels a user can enable.
const (
	TwoFactorEmail         = "email"
	TwoFactorAuthenticator = "authenticator"
)

type User struct {
	UserID             string         `bson:"user_id" json:"user_id"`
	FirstName          string         `bson:"first_name" json:"first_name"`
	LastName           string         `bson:"last_name" json:"last_name"`
	Email              string         `bson:"email" json:"email"`
	Password           string         `bson:"password" json:"-"` // argon2id salt$hash
	Role               string         `bson:"role" json:"role"`
	CreatedAt          time.Time      `bson:"createdAt" json:"createdAt"`
	GoogleID           string         `bson:"google_id,omitempty" json:"-"`
	GithubID           string         `bson:"github_id,omitempty" json:"-"`
	TwoFactorEnabled   bool           `bson:"two_factor_enabled" json:"two_factor_enabled"`
	TwoFactorMethods   []string       `bson:"two_factor_methods" json:"two_factor_methods"`
	TwoFactorSecret    string         `bson:"two_factor_secret,omitempty" json:"-"`
	ResetToken         string         `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry   time.Time      `bson:"reset_token_expiry,omitempty" json:"-"`
	LoginNotifications bool           `bson:"login_notifications" json:"login_notifications"`
	KnownDevices       []string       `bson:"known_devices" json:"-"`
	LoginHistory       []LoginAttempt `bson:"login_history" json:"-"`
}

// HasTwoFactorMethod reports whether the given channel is enabled for the user.
func (u *User) HasTwoFactorMethod(method string) bool {
	for _, m := range u.TwoFactorMethods {
		if m == method {
			return true
		}
	}
	return false
}

// LoginAttempt is appended to a user's history on every login attempt,
// successful or not.
type LoginAttempt struct {
	Success     bool      `bson:"success" json:"success"`
	Method      string    `bson:"method" json:"method"` // password, 2fa, social, social-2fa
	Provider    string    `bson:"provider,omitempty" json:"provider,omitempty"`
	IPAddress   string    `bson:"ip_address" json:"ip_address"`
	UserAgent   string    `bson:"user_agent" json:"user_agent"`
	Location    string    `bson:"location" json:"location"`
	IsNewDevice bool      `bson:"is_new_device" json:"is_new_device"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// PendingRegistration lives only in the ephemeral store, keyed by email,
// until the registration OTP is verified. It is deleted exactly when the
// User record is created.
type PendingRegistration struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"` // already hashed
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
