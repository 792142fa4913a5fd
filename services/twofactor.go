package services

import (
	"errors"
	"strings"
	"time"

	"main/model"
	"main/utils"
)

// OTPTTL bounds how long a dispatched code stays valid.
const OTPTTL = 10 * time.Minute

var (
	ErrInvalidCode = errors.New("invalid or expired verification code")
)

// TwoFactor coordinates OTP issuance and verification across every flow
// that consumes a code: registration, login, 2FA enable/disable and the
// social bridge. One active code per email at a time; a new dispatch
// overwrites the old code.
type TwoFactor struct {
	Store   KeyedStore
	Mailer  EmailSender
	Limiter *ResendLimiter
}

func NewTwoFactor(store KeyedStore, mailer EmailSender) *TwoFactor {
	return &TwoFactor{
		Store:   store,
		Mailer:  mailer,
		Limiter: &ResendLimiter{Store: store},
	}
}

func otpKey(email string) string {
	return "otp:" + email
}

// DispatchOTP generates a fresh code, stores it under the email and mails
// it. Every dispatch starts a resend cooldown window.
func (t *TwoFactor) DispatchOTP(email, purpose string) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	t.Store.Set(otpKey(email), code, OTPTTL)

	if err := t.Mailer.SendOTPEmail(email, code, purpose); err != nil {
		return err
	}

	t.Limiter.Record(email)
	utils.TrackOTPDispatch(purpose)
	return nil
}

// ResendOTP re-dispatches a code, subject to the cooldown. A violation
// returns the remaining wait in seconds alongside the error.
func (t *TwoFactor) ResendOTP(email, purpose string) (retryAfterSeconds int, err error) {
	if retryAfter, ok := t.Limiter.Allow(email); !ok {
		return retryAfter, errors.New("please wait before requesting another code")
	}
	return 0, t.DispatchOTP(email, purpose)
}

// VerifyCode checks a submitted code against the stored one. Codes are
// generated uppercase, so input is normalized before comparison. A match is
// single-use: the stored code is deleted the moment it is accepted.
func (t *TwoFactor) VerifyCode(email, code string) error {
	stored, found := t.Store.Get(otpKey(email))
	if !found {
		return ErrInvalidCode
	}

	storedCode, ok := stored.(string)
	if !ok || storedCode != strings.ToUpper(code) {
		return ErrInvalidCode
	}

	t.Store.Delete(otpKey(email))
	return nil
}

// LoginChallenge handles login-time dispatch for a user with 2FA enabled:
// an OTP email goes out when the email channel is on, while an
// authenticator-only user is just told to open their app. Returns the
// methods the client may complete with.
func (t *TwoFactor) LoginChallenge(user *model.User) ([]string, error) {
	methods := user.TwoFactorMethods

	if user.HasTwoFactorMethod(model.TwoFactorEmail) {
		if err := t.DispatchOTP(user.Email, "login"); err != nil {
			return methods, err
		}
	}

	return methods, nil
}
